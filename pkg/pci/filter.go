package pci

import (
	"fmt"
	"strconv"
	"strings"
)

// Filter selects devices by location and/or vendor:device id. A field of -1
// is a wildcard. The zero value matches nothing useful; start from
// NewFilter.
type Filter struct {
	Domain int32
	Bus    int32
	Slot   int32
	Func   int32
	Vendor int32
	Device int32
}

// NewFilter returns a filter with every field wildcarded.
func NewFilter() Filter {
	return Filter{Domain: -1, Bus: -1, Slot: -1, Func: -1, Vendor: -1, Device: -1}
}

// filterField parses one hex field of a filter pattern. Empty fields and
// "*" leave the target untouched (wildcard).
func filterField(s, name string, max int64, out *int32) error {
	if s == "" || s == "*" {
		return nil
	}
	v, err := strconv.ParseInt(s, 16, 64)
	if err != nil || v < 0 || v > max {
		return fmt.Errorf("invalid %s %q", name, s)
	}
	*out = int32(v)
	return nil
}

// ParseSlot merges a [[domain:]bus:]slot[.func] pattern into the filter.
// Fields that are empty or "*" are left as they were.
func (f *Filter) ParseSlot(pattern string) error {
	head := pattern
	if i := strings.IndexByte(pattern, '.'); i >= 0 {
		head = pattern[:i]
		if err := filterField(pattern[i+1:], "function", 7, &f.Func); err != nil {
			return err
		}
	}
	parts := strings.Split(head, ":")
	switch len(parts) {
	case 1:
		return filterField(parts[0], "slot", 0x1f, &f.Slot)
	case 2:
		if err := filterField(parts[0], "bus", 0xff, &f.Bus); err != nil {
			return err
		}
		return filterField(parts[1], "slot", 0x1f, &f.Slot)
	case 3:
		if err := filterField(parts[0], "domain", 0xffff, &f.Domain); err != nil {
			return err
		}
		if err := filterField(parts[1], "bus", 0xff, &f.Bus); err != nil {
			return err
		}
		return filterField(parts[2], "slot", 0x1f, &f.Slot)
	}
	return fmt.Errorf("invalid slot pattern %q", pattern)
}

// ParseID merges a vendor:device pattern into the filter. Either side may
// be empty or "*".
func (f *Filter) ParseID(pattern string) error {
	i := strings.IndexByte(pattern, ':')
	if i < 0 {
		return fmt.Errorf("invalid id pattern %q: expected vendor:device", pattern)
	}
	if err := filterField(pattern[:i], "vendor id", 0xffff, &f.Vendor); err != nil {
		return err
	}
	return filterField(pattern[i+1:], "device id", 0xffff, &f.Device)
}

// Match reports whether the device satisfies every non-wildcard field.
func (f *Filter) Match(d *Device) bool {
	if f.Domain >= 0 && f.Domain != int32(d.BDF.Domain) {
		return false
	}
	if f.Bus >= 0 && f.Bus != int32(d.BDF.Bus) {
		return false
	}
	if f.Slot >= 0 && f.Slot != int32(d.BDF.Slot) {
		return false
	}
	if f.Func >= 0 && f.Func != int32(d.BDF.Func) {
		return false
	}
	if f.Vendor >= 0 && f.Vendor != int32(d.VendorID) {
		return false
	}
	if f.Device >= 0 && f.Device != int32(d.DeviceID) {
		return false
	}
	return true
}
