package pci

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dev(domain uint16, bus, slot, fn uint8, vendor, device uint16) *Device {
	return &Device{
		BDF:      BDF{Domain: domain, Bus: bus, Slot: slot, Func: fn},
		VendorID: vendor,
		DeviceID: device,
	}
}

func TestParseSlotForms(t *testing.T) {
	cases := []struct {
		pattern string
		match   *Device
		miss    *Device
	}{
		{"00:19.0", dev(0, 0, 0x19, 0, 0, 0), dev(0, 0, 0x19, 1, 0, 0)},
		{"19", dev(0, 2, 0x19, 3, 0, 0), dev(0, 2, 0x18, 3, 0, 0)},
		{"02:", dev(0, 2, 0x1f, 0, 0, 0), dev(0, 3, 0x1f, 0, 0, 0)},
		{".1", dev(0, 9, 4, 1, 0, 0), dev(0, 9, 4, 0, 0, 0)},
		{"0001:00:00.0", dev(1, 0, 0, 0, 0, 0), dev(0, 0, 0, 0, 0, 0)},
		{"*:*.*", dev(0, 7, 7, 7, 0, 0), nil},
	}
	for _, tc := range cases {
		f := NewFilter()
		require.NoError(t, f.ParseSlot(tc.pattern), "pattern %q", tc.pattern)
		assert.True(t, f.Match(tc.match), "pattern %q should match %s", tc.pattern, tc.match.BDF)
		if tc.miss != nil {
			assert.False(t, f.Match(tc.miss), "pattern %q should not match %s", tc.pattern, tc.miss.BDF)
		}
	}
}

func TestParseSlotErrors(t *testing.T) {
	for _, pattern := range []string{"gg", "00:20", "1.8", "1:2:3:4", "100:0"} {
		f := NewFilter()
		assert.Error(t, f.ParseSlot(pattern), "pattern %q", pattern)
	}
}

func TestParseID(t *testing.T) {
	f := NewFilter()
	require.NoError(t, f.ParseID("8086:"))
	assert.True(t, f.Match(dev(0, 0, 0, 0, 0x8086, 0x1234)))
	assert.False(t, f.Match(dev(0, 0, 0, 0, 0x10de, 0x1234)))

	f = NewFilter()
	require.NoError(t, f.ParseID(":10d3"))
	assert.True(t, f.Match(dev(0, 0, 0, 0, 0x8086, 0x10d3)))
	assert.False(t, f.Match(dev(0, 0, 0, 0, 0x8086, 0x10d4)))
}

func TestParseIDErrors(t *testing.T) {
	for _, pattern := range []string{"8086", "xyz:1", "1:10000"} {
		f := NewFilter()
		assert.Error(t, f.ParseID(pattern), "pattern %q", pattern)
	}
}

func TestFilterMerging(t *testing.T) {
	// Consecutive selectors refine one filter: location and id combine.
	f := NewFilter()
	require.NoError(t, f.ParseSlot("00:19.0"))
	require.NoError(t, f.ParseID("8086:"))
	assert.True(t, f.Match(dev(0, 0, 0x19, 0, 0x8086, 0x10d3)))
	assert.False(t, f.Match(dev(0, 0, 0x19, 0, 0x10de, 0x10d3)))
}

func TestWildcardFieldsLeaveFilterUntouched(t *testing.T) {
	f := NewFilter()
	require.NoError(t, f.ParseSlot("19"))
	require.NoError(t, f.ParseSlot("*"))
	assert.Equal(t, int32(0x19), f.Slot, "explicit wildcard must not clear an earlier field")
}
