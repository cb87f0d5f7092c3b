package pci

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSysfs lays out a minimal device tree the way the kernel does, with a
// 256-byte config file per device.
func fakeSysfs(t *testing.T, names ...string) *SysfsAccess {
	t.Helper()
	dir := t.TempDir()
	for i, name := range names {
		devDir := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(devDir, 0o755))
		config := make([]byte, 256)
		config[0] = 0x86
		config[1] = 0x80
		config[2] = byte(i)
		config[3] = 0x10
		require.NoError(t, os.WriteFile(filepath.Join(devDir, "config"), config, 0o644))
	}
	return &SysfsAccess{root: dir, files: make(map[BDF]*os.File)}
}

func TestSysfsScan(t *testing.T) {
	s := fakeSysfs(t, "0000:00:02.0", "0000:00:19.0")
	defer s.Close()

	devs, err := s.Scan()
	require.NoError(t, err)
	require.Len(t, devs, 2)
	assert.Equal(t, uint8(0x02), devs[0].BDF.Slot)
	assert.Equal(t, uint16(0x8086), devs[0].VendorID)
	assert.Equal(t, uint16(0x1000), devs[0].DeviceID)
	assert.Equal(t, uint16(0x1001), devs[1].DeviceID)
}

func TestSysfsScanIgnoresStrayEntries(t *testing.T) {
	s := fakeSysfs(t, "0000:00:02.0")
	require.NoError(t, os.MkdirAll(filepath.Join(s.root, "not-a-device"), 0o755))
	defer s.Close()

	devs, err := s.Scan()
	require.NoError(t, err)
	assert.Len(t, devs, 1)
}

func TestSysfsReadWrite(t *testing.T) {
	s := fakeSysfs(t, "0000:00:02.0")
	defer s.Close()
	devs, err := s.Scan()
	require.NoError(t, err)
	d := devs[0]

	v, err := s.Read(d, 0x00, 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x8086), v)

	err = s.Write(d, 0x40, 4, 0xdeadbeef)
	require.Error(t, err, "writes need AllowWrite first")

	s.AllowWrite()
	require.NoError(t, s.Write(d, 0x40, 4, 0xdeadbeef))
	v, err = s.Read(d, 0x40, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), v)

	v, err = s.Read(d, 0x42, 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdead), v, "config bytes are little-endian")
}

func TestSysfsRangeCheck(t *testing.T) {
	s := fakeSysfs(t, "0000:00:02.0")
	defer s.Close()
	devs, err := s.Scan()
	require.NoError(t, err)

	_, err = s.Read(devs[0], ConfigSpaceSize-1, 2)
	assert.ErrorIs(t, err, ErrOutOfRange)
}
