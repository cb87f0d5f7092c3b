package pci

import (
	"fmt"
	"os"
	"path/filepath"
)

const sysfsDeviceRoot = "/sys/bus/pci/devices"

// SysfsAccess reads and writes configuration space through the per-device
// config file exported by the Linux PCI core. Devices are opened lazily and
// kept open until Close.
type SysfsAccess struct {
	root     string
	writable bool
	files    map[BDF]*os.File
}

// NewSysfsAccess returns an Access backed by /sys/bus/pci/devices.
func NewSysfsAccess() *SysfsAccess {
	return &SysfsAccess{root: sysfsDeviceRoot, files: make(map[BDF]*os.File)}
}

// Scan enumerates the devices the kernel exposes, in directory order (which
// sorts by domain:bus:slot.func).
func (s *SysfsAccess) Scan() ([]*Device, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("sysfs scan: %w", err)
	}
	var devs []*Device
	for _, e := range entries {
		bdf, err := ParseBDF(e.Name())
		if err != nil {
			continue
		}
		d := &Device{BDF: bdf}
		idw, err := s.Read(d, 0, 4)
		if err != nil {
			return nil, fmt.Errorf("sysfs scan %s: %w", bdf, err)
		}
		d.VendorID = uint16(idw)
		d.DeviceID = uint16(idw >> 16)
		devs = append(devs, d)
	}
	return devs, nil
}

// AllowWrite makes subsequently opened devices writable. It must be called
// before the first Write; already-open read-only handles are reopened on
// demand.
func (s *SysfsAccess) AllowWrite() {
	if s.writable {
		return
	}
	s.writable = true
	for bdf, f := range s.files {
		f.Close()
		delete(s.files, bdf)
	}
}

func (s *SysfsAccess) file(d *Device) (*os.File, error) {
	if f, ok := s.files[d.BDF]; ok {
		return f, nil
	}
	flags := os.O_RDONLY
	if s.writable {
		flags = os.O_RDWR
	}
	f, err := os.OpenFile(filepath.Join(s.root, d.BDF.String(), "config"), flags, 0)
	if err != nil {
		return nil, fmt.Errorf("sysfs open %s: %w", d.BDF, err)
	}
	s.files[d.BDF] = f
	return f, nil
}

func (s *SysfsAccess) Read(d *Device, addr, width uint32) (uint32, error) {
	if addr+width > ConfigSpaceSize {
		return 0, ErrOutOfRange
	}
	f, err := s.file(d)
	if err != nil {
		return 0, err
	}
	var buf [4]byte
	if _, err := f.ReadAt(buf[:width], int64(addr)); err != nil {
		return 0, fmt.Errorf("sysfs read %s@%#04x: %w", d.BDF, addr, err)
	}
	v := uint32(0)
	for i := int(width) - 1; i >= 0; i-- {
		v = v<<8 | uint32(buf[i])
	}
	return v, nil
}

func (s *SysfsAccess) Write(d *Device, addr, width, value uint32) error {
	if addr+width > ConfigSpaceSize {
		return ErrOutOfRange
	}
	if !s.writable {
		return fmt.Errorf("sysfs write %s@%#04x: access is read-only", d.BDF, addr)
	}
	f, err := s.file(d)
	if err != nil {
		return err
	}
	var buf [4]byte
	for i := uint32(0); i < width; i++ {
		buf[i] = byte(value >> (8 * i))
	}
	if _, err := f.WriteAt(buf[:width], int64(addr)); err != nil {
		return fmt.Errorf("sysfs write %s@%#04x: %w", d.BDF, addr, err)
	}
	return nil
}

// Close releases every open config handle.
func (s *SysfsAccess) Close() error {
	var first error
	for bdf, f := range s.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
		delete(s.files, bdf)
	}
	return first
}
