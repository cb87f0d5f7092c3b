// Package regname is the static catalog of well-known configuration-space
// register and capability names.
package regname

import (
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTracePCI/pkg/pci"
)

// Entry describes one named register. Capability entries carry no offset
// and no implicit width; the width must come from an explicit suffix in the
// register spec.
type Entry struct {
	Cap    pci.CapRef
	Offset uint32
	Width  uint32
	Name   string
}

func capRef(id uint32) pci.CapRef  { return pci.CapRef{Kind: pci.CapNormal, ID: id} }
func ecapRef(id uint32) pci.CapRef { return pci.CapRef{Kind: pci.CapExtended, ID: id} }

// The table covers the type-0 header, the type-1 (bridge) header, the
// CardBus header and the capability ids assigned by the PCI and PCIe specs.
// Offsets overlap between header types on purpose; the tool does not check
// the header type, exactly like the register numbers themselves.
var table = []Entry{
	{Offset: 0x00, Width: 2, Name: "VENDOR_ID"},
	{Offset: 0x02, Width: 2, Name: "DEVICE_ID"},
	{Offset: 0x04, Width: 2, Name: "COMMAND"},
	{Offset: 0x06, Width: 2, Name: "STATUS"},
	{Offset: 0x08, Width: 1, Name: "REVISION"},
	{Offset: 0x09, Width: 1, Name: "CLASS_PROG"},
	{Offset: 0x0a, Width: 2, Name: "CLASS_DEVICE"},
	{Offset: 0x0c, Width: 1, Name: "CACHE_LINE_SIZE"},
	{Offset: 0x0d, Width: 1, Name: "LATENCY_TIMER"},
	{Offset: 0x0e, Width: 1, Name: "HEADER_TYPE"},
	{Offset: 0x0f, Width: 1, Name: "BIST"},
	{Offset: 0x10, Width: 4, Name: "BASE_ADDRESS_0"},
	{Offset: 0x14, Width: 4, Name: "BASE_ADDRESS_1"},
	{Offset: 0x18, Width: 4, Name: "BASE_ADDRESS_2"},
	{Offset: 0x1c, Width: 4, Name: "BASE_ADDRESS_3"},
	{Offset: 0x20, Width: 4, Name: "BASE_ADDRESS_4"},
	{Offset: 0x24, Width: 4, Name: "BASE_ADDRESS_5"},
	{Offset: 0x28, Width: 4, Name: "CARDBUS_CIS"},
	{Offset: 0x2c, Width: 4, Name: "SUBSYSTEM_VENDOR_ID"},
	{Offset: 0x2e, Width: 2, Name: "SUBSYSTEM_ID"},
	{Offset: 0x30, Width: 4, Name: "ROM_ADDRESS"},
	{Offset: 0x3c, Width: 1, Name: "INTERRUPT_LINE"},
	{Offset: 0x3d, Width: 1, Name: "INTERRUPT_PIN"},
	{Offset: 0x3e, Width: 1, Name: "MIN_GNT"},
	{Offset: 0x3f, Width: 1, Name: "MAX_LAT"},
	{Offset: 0x18, Width: 1, Name: "PRIMARY_BUS"},
	{Offset: 0x19, Width: 1, Name: "SECONDARY_BUS"},
	{Offset: 0x1a, Width: 1, Name: "SUBORDINATE_BUS"},
	{Offset: 0x1b, Width: 1, Name: "SEC_LATENCY_TIMER"},
	{Offset: 0x1c, Width: 1, Name: "IO_BASE"},
	{Offset: 0x1d, Width: 1, Name: "IO_LIMIT"},
	{Offset: 0x1e, Width: 2, Name: "SEC_STATUS"},
	{Offset: 0x20, Width: 2, Name: "MEMORY_BASE"},
	{Offset: 0x22, Width: 2, Name: "MEMORY_LIMIT"},
	{Offset: 0x24, Width: 2, Name: "PREF_MEMORY_BASE"},
	{Offset: 0x26, Width: 2, Name: "PREF_MEMORY_LIMIT"},
	{Offset: 0x28, Width: 4, Name: "PREF_BASE_UPPER32"},
	{Offset: 0x2c, Width: 4, Name: "PREF_LIMIT_UPPER32"},
	{Offset: 0x30, Width: 2, Name: "IO_BASE_UPPER16"},
	{Offset: 0x32, Width: 2, Name: "IO_LIMIT_UPPER16"},
	{Offset: 0x38, Width: 4, Name: "BRIDGE_ROM_ADDRESS"},
	{Offset: 0x3e, Width: 2, Name: "BRIDGE_CONTROL"},
	{Offset: 0x10, Width: 4, Name: "CB_CARDBUS_BASE"},
	{Offset: 0x14, Width: 2, Name: "CB_CAPABILITIES"},
	{Offset: 0x16, Width: 2, Name: "CB_SEC_STATUS"},
	{Offset: 0x18, Width: 1, Name: "CB_BUS_NUMBER"},
	{Offset: 0x19, Width: 1, Name: "CB_CARDBUS_NUMBER"},
	{Offset: 0x1a, Width: 1, Name: "CB_SUBORDINATE_BUS"},
	{Offset: 0x1b, Width: 1, Name: "CB_CARDBUS_LATENCY"},
	{Offset: 0x1c, Width: 4, Name: "CB_MEMORY_BASE_0"},
	{Offset: 0x20, Width: 4, Name: "CB_MEMORY_LIMIT_0"},
	{Offset: 0x24, Width: 4, Name: "CB_MEMORY_BASE_1"},
	{Offset: 0x28, Width: 4, Name: "CB_MEMORY_LIMIT_1"},
	{Offset: 0x2c, Width: 2, Name: "CB_IO_BASE_0"},
	{Offset: 0x2e, Width: 2, Name: "CB_IO_BASE_0_HI"},
	{Offset: 0x30, Width: 2, Name: "CB_IO_LIMIT_0"},
	{Offset: 0x32, Width: 2, Name: "CB_IO_LIMIT_0_HI"},
	{Offset: 0x34, Width: 2, Name: "CB_IO_BASE_1"},
	{Offset: 0x36, Width: 2, Name: "CB_IO_BASE_1_HI"},
	{Offset: 0x38, Width: 2, Name: "CB_IO_LIMIT_1"},
	{Offset: 0x3a, Width: 2, Name: "CB_IO_LIMIT_1_HI"},
	{Offset: 0x40, Width: 2, Name: "CB_SUBSYSTEM_VENDOR_ID"},
	{Offset: 0x42, Width: 2, Name: "CB_SUBSYSTEM_ID"},
	{Offset: 0x44, Width: 4, Name: "CB_LEGACY_MODE_BASE"},
	{Cap: capRef(0x01), Name: "CAP_PM"},
	{Cap: capRef(0x02), Name: "CAP_AGP"},
	{Cap: capRef(0x03), Name: "CAP_VPD"},
	{Cap: capRef(0x04), Name: "CAP_SLOTID"},
	{Cap: capRef(0x05), Name: "CAP_MSI"},
	{Cap: capRef(0x06), Name: "CAP_CHSWP"},
	{Cap: capRef(0x07), Name: "CAP_PCIX"},
	{Cap: capRef(0x08), Name: "CAP_HT"},
	{Cap: capRef(0x09), Name: "CAP_VNDR"},
	{Cap: capRef(0x0a), Name: "CAP_DBG"},
	{Cap: capRef(0x0b), Name: "CAP_CCRC"},
	{Cap: capRef(0x0c), Name: "CAP_HOTPLUG"},
	{Cap: capRef(0x0d), Name: "CAP_SSVID"},
	{Cap: capRef(0x0e), Name: "CAP_AGP3"},
	{Cap: capRef(0x0f), Name: "CAP_SECURE"},
	{Cap: capRef(0x10), Name: "CAP_EXP"},
	{Cap: capRef(0x11), Name: "CAP_MSIX"},
	{Cap: capRef(0x12), Name: "CAP_SATA"},
	{Cap: capRef(0x13), Name: "CAP_AF"},
	{Cap: ecapRef(0x0001), Name: "ECAP_AER"},
	{Cap: ecapRef(0x0002), Name: "ECAP_VC"},
	{Cap: ecapRef(0x0003), Name: "ECAP_DSN"},
	{Cap: ecapRef(0x0004), Name: "ECAP_PB"},
	{Cap: ecapRef(0x0005), Name: "ECAP_RCLINK"},
	{Cap: ecapRef(0x0006), Name: "ECAP_RCILINK"},
	{Cap: ecapRef(0x0007), Name: "ECAP_RCECOLL"},
	{Cap: ecapRef(0x0008), Name: "ECAP_MFVC"},
	{Cap: ecapRef(0x000a), Name: "ECAP_RBCB"},
	{Cap: ecapRef(0x000b), Name: "ECAP_VNDR"},
	{Cap: ecapRef(0x000d), Name: "ECAP_ACS"},
	{Cap: ecapRef(0x000e), Name: "ECAP_ARI"},
	{Cap: ecapRef(0x000f), Name: "ECAP_ATS"},
	{Cap: ecapRef(0x0010), Name: "ECAP_SRIOV"},
}

// Lookup resolves a register or capability name, case-insensitively. Beyond
// the static table it accepts the synthetic forms CAP<hex> and ECAP<hex>
// for capabilities that have no assigned name; those entries carry no
// implicit width.
func Lookup(name string) (Entry, bool) {
	for _, e := range table {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	if rest, ok := foldPrefix(name, "CAP"); ok {
		if id, ok := parseHex32(rest); ok && id < 0x100 {
			return Entry{Cap: capRef(id), Name: name}, true
		}
	}
	if rest, ok := foldPrefix(name, "ECAP"); ok {
		if id, ok := parseHex32(rest); ok && id < 0x1000 {
			return Entry{Cap: ecapRef(id), Name: name}, true
		}
	}
	return Entry{}, false
}

// All returns the static table in declaration order, for catalog listings.
func All() []Entry {
	out := make([]Entry, len(table))
	copy(out, table)
	return out
}

func foldPrefix(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return "", false
}

func parseHex32(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
