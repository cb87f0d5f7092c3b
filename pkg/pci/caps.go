package pci

import "fmt"

// CapKind distinguishes the two capability lists in configuration space.
type CapKind uint8

const (
	// CapNone marks an address that is absolute, not capability-relative.
	CapNone CapKind = iota
	// CapNormal is a conventional capability, id range [0, 0xff].
	CapNormal
	// CapExtended is a PCIe extended capability, id range [0, 0xfff].
	CapExtended
)

// CapRef is a deferred, device-relative address base: either no capability
// (absolute addressing) or a capability id whose location must be resolved
// per device at execution time.
type CapRef struct {
	Kind CapKind
	ID   uint32
}

// String renders the reference the way trace output shows it.
func (c CapRef) String() string {
	switch c.Kind {
	case CapNormal:
		return fmt.Sprintf("cap %02x", c.ID)
	case CapExtended:
		return fmt.Sprintf("ecap %04x", c.ID)
	}
	return "none"
}

// Configuration-space locations used by the capability walk.
const (
	regStatus     = 0x06
	regHeaderType = 0x0e
	regCapPtr     = 0x34
	regCBCapPtr   = 0x14 // CardBus bridges keep the pointer here

	statusCapList  = 0x10
	headerTypeMask = 0x7f
	headerCardBus  = 2

	extCapStart = 0x100
)

// FindCapability walks the device's capability list of the given kind and
// returns the configuration-space address of the capability header for id.
// The boolean is false when the device does not expose the capability. The
// walk is bounded so a corrupted list cannot loop forever.
func FindCapability(a Access, d *Device, id uint32, kind CapKind) (uint32, bool, error) {
	switch kind {
	case CapNormal:
		return findNormalCap(a, d, id)
	case CapExtended:
		return findExtendedCap(a, d, id)
	}
	return 0, false, fmt.Errorf("pci: cannot resolve capability kind %d", kind)
}

func findNormalCap(a Access, d *Device, id uint32) (uint32, bool, error) {
	status, err := a.Read(d, regStatus, 2)
	if err != nil {
		return 0, false, err
	}
	if status&statusCapList == 0 {
		return 0, false, nil
	}
	ptrLoc := uint32(regCapPtr)
	hdr, err := a.Read(d, regHeaderType, 1)
	if err != nil {
		return 0, false, err
	}
	if hdr&headerTypeMask == headerCardBus {
		ptrLoc = regCBCapPtr
	}
	where, err := a.Read(d, ptrLoc, 1)
	if err != nil {
		return 0, false, err
	}
	// 256 bytes / 4-byte minimum capability size bounds the list length.
	for hops := 0; where != 0 && hops < 64; hops++ {
		where &^= 3
		capID, err := a.Read(d, where, 1)
		if err != nil {
			return 0, false, err
		}
		if capID == 0xff {
			break
		}
		if capID == id {
			return where, true, nil
		}
		where, err = a.Read(d, where+1, 1)
		if err != nil {
			return 0, false, err
		}
	}
	return 0, false, nil
}

func findExtendedCap(a Access, d *Device, id uint32) (uint32, bool, error) {
	addr := uint32(extCapStart)
	for hops := 0; hops < (ConfigSpaceSize-extCapStart)/8; hops++ {
		header, err := a.Read(d, addr, 4)
		if err != nil {
			return 0, false, err
		}
		if header == 0 || header == 0xffffffff {
			break
		}
		if header&0xffff == id {
			return addr, true, nil
		}
		addr = (header >> 20) &^ 3
		if addr < extCapStart {
			break
		}
	}
	return 0, false, nil
}
