// Package pci models PCI devices and raw configuration-space access.
//
// The package deliberately knows nothing about register names or the
// operation grammar; it provides device enumeration, filtering, raw
// width-sized reads and writes, and capability-list traversal. Higher
// layers decide what to read or write.
package pci

import (
	"errors"
	"fmt"
)

// ConfigSpaceSize is the size of the PCIe extended configuration space.
const ConfigSpaceSize = 4096

// ErrOutOfRange is returned by backends for accesses past the end of the
// configuration space.
var ErrOutOfRange = errors.New("pci: config address out of range")

// BDF identifies a device by domain, bus, slot and function.
type BDF struct {
	Domain uint16
	Bus    uint8
	Slot   uint8
	Func   uint8
}

// String returns the canonical form dddd:bb:ss.f.
func (b BDF) String() string {
	return fmt.Sprintf("%04x:%02x:%02x.%x", b.Domain, b.Bus, b.Slot, b.Func)
}

// Short returns bb:ss.f, the form used in trace output when the domain is
// zero.
func (b BDF) Short() string {
	return fmt.Sprintf("%02x:%02x.%x", b.Bus, b.Slot, b.Func)
}

// ParseBDF parses dddd:bb:ss.f or bb:ss.f.
func ParseBDF(s string) (BDF, error) {
	var b BDF
	if n, err := fmt.Sscanf(s, "%04x:%02x:%02x.%x", &b.Domain, &b.Bus, &b.Slot, &b.Func); err == nil && n == 4 {
		return b, nil
	}
	b = BDF{}
	if n, err := fmt.Sscanf(s, "%02x:%02x.%x", &b.Bus, &b.Slot, &b.Func); err == nil && n == 3 {
		return b, nil
	}
	return BDF{}, fmt.Errorf("pci: invalid device address %q", s)
}

// Device is one enumerated PCI device. Devices are created by an Access
// backend during Scan and shared, not copied, from then on.
type Device struct {
	BDF      BDF
	VendorID uint16
	DeviceID uint16
}

// Label returns the identity used in trace output: bb:ss.f, with the domain
// prepended when it is nonzero.
func (d *Device) Label() string {
	if d.BDF.Domain != 0 {
		return d.BDF.String()
	}
	return d.BDF.Short()
}

// Access is the raw configuration-space transport. Read and Write take a
// byte width of 1, 2 or 4; multi-byte quantities are little-endian, as laid
// out in configuration space. Implementations open devices read-only until
// AllowWrite is called, which must happen before the first Write.
type Access interface {
	// Scan enumerates the devices visible to this backend, in a stable
	// order.
	Scan() ([]*Device, error)
	Read(d *Device, addr, width uint32) (uint32, error)
	Write(d *Device, addr, width, value uint32) error
	AllowWrite()
	Close() error
}

// WidthMask returns the all-ones pattern for a 1, 2 or 4 byte access. It
// panics on any other width; widths are validated at parse time.
func WidthMask(width uint32) uint32 {
	switch width {
	case 1:
		return 0xff
	case 2:
		return 0xffff
	case 4:
		return 0xffffffff
	}
	panic(fmt.Sprintf("pci: invalid access width %d", width))
}
