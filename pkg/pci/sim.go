package pci

import (
	"fmt"
)

// ConfigOp captures one raw access against a simulated device so tests can
// assert on exactly what a run touched.
type ConfigOp struct {
	Dev     *Device
	Addr    uint32
	Width   uint32
	Value   uint32
	IsWrite bool
}

// SimDevice is one fake device with a full 4 KiB configuration space.
type SimDevice struct {
	Device
	Space [ConfigSpaceSize]byte

	capTail uint32 // location of the next-pointer byte to patch
	extTail uint32 // header address of the last extended capability
}

// Set8 stores one byte in the fake configuration space.
func (d *SimDevice) Set8(addr uint32, v uint8) { d.Space[addr] = v }

// Set16 stores a little-endian word.
func (d *SimDevice) Set16(addr uint32, v uint16) {
	d.Space[addr] = byte(v)
	d.Space[addr+1] = byte(v >> 8)
}

// Set32 stores a little-endian dword.
func (d *SimDevice) Set32(addr uint32, v uint32) {
	for i := uint32(0); i < 4; i++ {
		d.Space[addr+i] = byte(v >> (8 * i))
	}
}

func (d *SimDevice) get(addr, width uint32) uint32 {
	v := uint32(0)
	for i := int(width) - 1; i >= 0; i-- {
		v = v<<8 | uint32(d.Space[addr+uint32(i)])
	}
	return v
}

// AddCapability appends a conventional capability with the given id at the
// given address, maintaining the list pointer chain and the status bit.
func (d *SimDevice) AddCapability(id uint8, at uint32) {
	if d.capTail == 0 {
		d.Set16(regStatus, uint16(d.get(regStatus, 2))|statusCapList)
		d.capTail = regCapPtr
	}
	d.Set8(d.capTail, uint8(at))
	d.Set8(at, id)
	d.Set8(at+1, 0)
	d.capTail = at + 1
}

// AddExtCapability appends an extended capability header at the given
// address. The first one must be placed at 0x100, where the walk begins.
func (d *SimDevice) AddExtCapability(id uint16, at uint32) {
	header := uint32(id) | 1<<16
	d.Set32(at, header)
	if d.extTail != 0 {
		prev := d.get(d.extTail, 4)
		d.Set32(d.extTail, prev|at<<20)
	}
	d.extTail = at
}

// SimAccess is an in-memory Access backend for tests and for running the
// tool without hardware. Every read and write is recorded in Ops.
type SimAccess struct {
	Ops []ConfigOp

	devs     []*SimDevice
	byAddr   map[*Device]*SimDevice
	writable bool
}

// NewSimAccess returns an empty simulated bus.
func NewSimAccess() *SimAccess {
	return &SimAccess{byAddr: make(map[*Device]*SimDevice)}
}

// AddDevice creates a simulated device. The vendor and device ids are laid
// into the fake configuration space as well as the Device header.
func (s *SimAccess) AddDevice(bdf BDF, vendor, device uint16) *SimDevice {
	d := &SimDevice{Device: Device{BDF: bdf, VendorID: vendor, DeviceID: device}}
	d.Set16(0x00, vendor)
	d.Set16(0x02, device)
	s.devs = append(s.devs, d)
	s.byAddr[&d.Device] = d
	return d
}

// Writes returns just the recorded write operations, in order.
func (s *SimAccess) Writes() []ConfigOp {
	var w []ConfigOp
	for _, op := range s.Ops {
		if op.IsWrite {
			w = append(w, op)
		}
	}
	return w
}

// Reads returns just the recorded read operations, in order.
func (s *SimAccess) Reads() []ConfigOp {
	var r []ConfigOp
	for _, op := range s.Ops {
		if !op.IsWrite {
			r = append(r, op)
		}
	}
	return r
}

func (s *SimAccess) Scan() ([]*Device, error) {
	devs := make([]*Device, len(s.devs))
	for i, d := range s.devs {
		devs[i] = &d.Device
	}
	return devs, nil
}

func (s *SimAccess) lookup(d *Device) (*SimDevice, error) {
	sd, ok := s.byAddr[d]
	if !ok {
		return nil, fmt.Errorf("sim: unknown device %s", d.BDF)
	}
	return sd, nil
}

func (s *SimAccess) Read(d *Device, addr, width uint32) (uint32, error) {
	if addr+width > ConfigSpaceSize {
		return 0, ErrOutOfRange
	}
	sd, err := s.lookup(d)
	if err != nil {
		return 0, err
	}
	v := sd.get(addr, width)
	s.Ops = append(s.Ops, ConfigOp{Dev: d, Addr: addr, Width: width, Value: v})
	return v, nil
}

func (s *SimAccess) Write(d *Device, addr, width, value uint32) error {
	if addr+width > ConfigSpaceSize {
		return ErrOutOfRange
	}
	if !s.writable {
		return fmt.Errorf("sim write %s@%#04x: access is read-only", d.BDF, addr)
	}
	sd, err := s.lookup(d)
	if err != nil {
		return err
	}
	for i := uint32(0); i < width; i++ {
		sd.Space[addr+i] = byte(value >> (8 * i))
	}
	s.Ops = append(s.Ops, ConfigOp{Dev: d, Addr: addr, Width: width, Value: value, IsWrite: true})
	return nil
}

func (s *SimAccess) AllowWrite() { s.writable = true }

func (s *SimAccess) Close() error { return nil }

// NewDemoSim builds a simulated bus with a few plausible devices so the
// tool can be exercised end to end with -A sim.
func NewDemoSim() *SimAccess {
	s := NewSimAccess()

	host := s.AddDevice(BDF{Bus: 0, Slot: 0, Func: 0}, 0x8086, 0x29c0)
	host.Set16(0x04, 0x0006) // command: memory + master
	host.Set8(0x0b, 0x06)    // class: host bridge

	nic := s.AddDevice(BDF{Bus: 0, Slot: 0x19, Func: 0}, 0x8086, 0x10d3)
	nic.Set16(0x04, 0x0007)
	nic.Set8(0x0b, 0x02) // class: network
	nic.AddCapability(0x01, 0xc8)
	nic.AddCapability(0x05, 0xd0)
	nic.AddCapability(0x10, 0xe0)
	nic.AddExtCapability(0x0001, 0x100)
	return s
}
