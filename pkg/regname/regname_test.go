package regname

import (
	"testing"

	"github.com/OpenTraceLab/OpenTracePCI/pkg/pci"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupNamed(t *testing.T) {
	e, ok := Lookup("VENDOR_ID")
	require.True(t, ok)
	assert.Equal(t, pci.CapNone, e.Cap.Kind)
	assert.Equal(t, uint32(0x00), e.Offset)
	assert.Equal(t, uint32(2), e.Width)

	e, ok = Lookup("BRIDGE_CONTROL")
	require.True(t, ok)
	assert.Equal(t, uint32(0x3e), e.Offset)
	assert.Equal(t, uint32(2), e.Width)
}

func TestLookupCaseInsensitive(t *testing.T) {
	e, ok := Lookup("latency_timer")
	require.True(t, ok)
	assert.Equal(t, uint32(0x0d), e.Offset)
}

func TestLookupCapabilityNames(t *testing.T) {
	e, ok := Lookup("CAP_PM")
	require.True(t, ok)
	assert.Equal(t, pci.CapNormal, e.Cap.Kind)
	assert.Equal(t, uint32(0x01), e.Cap.ID)
	assert.Zero(t, e.Width, "capability entries have no implicit width")

	e, ok = Lookup("ECAP_SRIOV")
	require.True(t, ok)
	assert.Equal(t, pci.CapExtended, e.Cap.Kind)
	assert.Equal(t, uint32(0x0010), e.Cap.ID)
}

func TestLookupSyntheticForms(t *testing.T) {
	e, ok := Lookup("CAP42")
	require.True(t, ok)
	assert.Equal(t, pci.CapNormal, e.Cap.Kind)
	assert.Equal(t, uint32(0x42), e.Cap.ID)

	e, ok = Lookup("ecapFFF")
	require.True(t, ok)
	assert.Equal(t, pci.CapExtended, e.Cap.Kind)
	assert.Equal(t, uint32(0xfff), e.Cap.ID)
}

func TestLookupSyntheticRange(t *testing.T) {
	_, ok := Lookup("CAP100")
	assert.False(t, ok, "normal capability ids stop at 0xff")

	_, ok = Lookup("ECAP1000")
	assert.False(t, ok, "extended capability ids stop at 0xfff")

	_, ok = Lookup("CAPzz")
	assert.False(t, ok)

	_, ok = Lookup("CAP")
	assert.False(t, ok)
}

func TestLookupUnknown(t *testing.T) {
	_, ok := Lookup("NO_SUCH_REGISTER")
	assert.False(t, ok)
}

func TestAllPreservesOrder(t *testing.T) {
	all := All()
	require.NotEmpty(t, all)
	assert.Equal(t, "VENDOR_ID", all[0].Name)
	assert.Equal(t, "ECAP_SRIOV", all[len(all)-1].Name)
}
