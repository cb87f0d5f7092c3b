package specparse

import (
	"testing"

	"github.com/OpenTraceLab/OpenTracePCI/pkg/pci"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNamedRegister(t *testing.T) {
	op, err := Parse("VENDOR_ID")
	require.NoError(t, err)
	assert.Equal(t, pci.CapNone, op.Cap.Kind)
	assert.Equal(t, uint32(0x00), op.Addr)
	assert.Equal(t, uint32(2), op.Width)
	assert.Empty(t, op.Values)
}

func TestParseNameIsCaseInsensitive(t *testing.T) {
	op, err := Parse("vendor_id")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), op.Width)
}

func TestParseExplicitWidthOverridesCatalog(t *testing.T) {
	op, err := Parse("VENDOR_ID.B")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), op.Width)
}

func TestParseSyntheticCapability(t *testing.T) {
	op, err := Parse("CAP01.B=12")
	require.NoError(t, err)
	assert.Equal(t, pci.CapNormal, op.Cap.Kind)
	assert.Equal(t, uint32(1), op.Cap.ID)
	assert.Equal(t, uint32(0), op.Addr)
	assert.Equal(t, uint32(1), op.Width)
	require.Len(t, op.Values, 1)
	assert.Equal(t, uint32(0x12), op.Values[0].Value)
	assert.Equal(t, ^uint32(0), op.Values[0].Mask)
}

func TestParseExtendedCapabilityName(t *testing.T) {
	op, err := Parse("ECAP_AER+4.L")
	require.NoError(t, err)
	assert.Equal(t, pci.CapExtended, op.Cap.Kind)
	assert.Equal(t, uint32(0x0001), op.Cap.ID)
	assert.Equal(t, uint32(4), op.Addr)
	assert.Equal(t, uint32(4), op.Width)
}

func TestParseMaskedValueFoldsValueIntoMask(t *testing.T) {
	op, err := Parse("04.W=abcd:ff00")
	require.NoError(t, err)
	require.Len(t, op.Values, 1)
	assert.Equal(t, uint32(0xab00), op.Values[0].Value)
	assert.Equal(t, uint32(0xff00), op.Values[0].Mask)
}

func TestParseValueList(t *testing.T) {
	op, err := Parse("40.L=1,2,3")
	require.NoError(t, err)
	require.Len(t, op.Values, 3)
	assert.Equal(t, uint32(3), op.Values[2].Value)
	assert.Equal(t, ^uint32(0), op.Values[1].Mask)
}

func TestParseOffset(t *testing.T) {
	op, err := Parse("BASE_ADDRESS_0+4")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x14), op.Addr)
	assert.Equal(t, uint32(4), op.Width)
}

func TestParseBareAddress(t *testing.T) {
	op, err := Parse("ff.B")
	require.NoError(t, err)
	assert.Equal(t, pci.CapNone, op.Cap.Kind)
	assert.Equal(t, uint32(0xff), op.Addr)
}

func TestParseTwosComplementLeniency(t *testing.T) {
	// ffffff00 is -100 for a byte-wide register; accepted.
	op, err := Parse("00.B=ffffff00")
	require.NoError(t, err)
	assert.Equal(t, uint32(0xffffff00), op.Values[0].Value)

	// Below the negative band and above the positive limit; rejected.
	_, err = Parse("00.B=fffffe00")
	assert.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{"unknown register", "NO_SUCH_REG"},
		{"missing width on address", "40"},
		{"missing width on synthetic cap", "CAP05"},
		{"invalid width letter", "04.X"},
		{"two letter width", "04.BB"},
		{"unaligned word", "03.W"},
		{"unaligned long", "06.L"},
		{"address out of range", "1000.B"},
		{"span out of range", "ffc.L=1,2"},
		{"offset out of range", "00+1000.B"},
		{"bad offset", "00+zz.B"},
		{"value too wide", "00.B=100"},
		{"mask too wide", "00.W=1:10000"},
		{"bad value", "00.B=xyz"},
		{"bad mask", "00.B=1:"},
		{"empty value list", "COMMAND="},
		{"empty token", ""},
		{"cap id too large", "CAP100.B"},
		{"ecap id too large", "ECAP1000.L"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.token)
			assert.Error(t, err, "token %q", tc.token)
		})
	}
}

func TestParseCapabilityRangeCheckedRelative(t *testing.T) {
	// Capability-relative offsets are checked against the region size at
	// parse time; the capability base is only known per device.
	_, err := Parse("CAP10+ffc.L")
	require.NoError(t, err)

	_, err = Parse("CAP10+1000.L")
	assert.Error(t, err)
}
