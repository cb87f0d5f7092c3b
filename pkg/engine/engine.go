// Package engine binds parsed register operations to device selections and
// executes them in declaration order against a raw access backend.
package engine

import (
	"fmt"
	"io"

	"github.com/OpenTraceLab/OpenTracePCI/pkg/pci"
	"github.com/OpenTraceLab/OpenTracePCI/pkg/specparse"
)

// Select returns the devices matching the filter, preserving enumeration
// order. The result is independent of the source slice.
func Select(devs []*pci.Device, f *pci.Filter) []*pci.Device {
	n := 0
	for _, d := range devs {
		if f.Match(d) {
			n++
		}
	}
	out := make([]*pci.Device, 0, n)
	for _, d := range devs {
		if f.Match(d) {
			out = append(out, d)
		}
	}
	return out
}

// boundOp is one operation bound to a selection batch.
type boundOp struct {
	op    *specparse.Operation
	batch int
}

// Program is the ordered operation list. Operations are appended in
// declaration order; each carries the index of the selection it applies to,
// so consecutive operations sharing a selection form one device batch.
type Program struct {
	selections [][]*pci.Device
	ops        []boundOp
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{}
}

// AddSelection registers a device selection and returns its batch index.
func (p *Program) AddSelection(devs []*pci.Device) int {
	p.selections = append(p.selections, devs)
	return len(p.selections) - 1
}

// Selection returns the devices of a batch.
func (p *Program) Selection(batch int) []*pci.Device {
	return p.selections[batch]
}

// Add appends an operation bound to the given batch.
func (p *Program) Add(batch int, op *specparse.Operation) {
	p.ops = append(p.ops, boundOp{op: op, batch: batch})
}

// Len reports the number of operations.
func (p *Program) Len() int {
	return len(p.ops)
}

// NeedsWrite reports whether any operation writes, which decides whether
// the access backend must be opened writable before execution.
func (p *Program) NeedsWrite() bool {
	for _, b := range p.ops {
		if len(b.op.Values) > 0 {
			return true
		}
	}
	return false
}

// Options control execution output and the dry-run mode.
type Options struct {
	Verbose int
	DryRun  bool
	Out     io.Writer
}

// Execute runs the whole program. Within one batch the iteration is
// device-major: every operation of the batch runs against a device before
// the next device is touched, so a later operation reads the effect of an
// earlier write and a verbose trace groups all lines of one device
// together. Any execution failure aborts the run.
func Execute(acc pci.Access, p *Program, opts Options) error {
	i := 0
	for i < len(p.ops) {
		batch := p.ops[i].batch
		j := i
		for j < len(p.ops) && p.ops[j].batch == batch {
			j++
		}
		for _, dev := range p.selections[batch] {
			for _, b := range p.ops[i:j] {
				if err := execOp(acc, dev, b.op, &opts); err != nil {
					return err
				}
			}
		}
		i = j
	}
	return nil
}

// hexDigits is the print width for a register of the given byte width.
func hexDigits(width uint32) int {
	return int(width) * 2
}

func execOp(acc pci.Access, dev *pci.Device, op *specparse.Operation, opts *Options) error {
	addr := op.Addr

	if opts.Verbose > 0 {
		fmt.Fprintf(opts.Out, "%s", dev.Label())
	}
	if op.Cap.Kind != pci.CapNone {
		if opts.Verbose > 0 {
			fmt.Fprintf(opts.Out, "(%s)", op.Cap)
		}
		base, found, err := pci.FindCapability(acc, dev, op.Cap.ID, op.Cap.Kind)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%s not found on device %s", op.Cap, dev.Label())
		}
		addr += base
	}
	if opts.Verbose > 0 {
		fmt.Fprintf(opts.Out, ":%02x", addr)
	}

	digits := hexDigits(op.Width)

	if len(op.Values) == 0 {
		if addr+op.Width > pci.ConfigSpaceSize {
			return fmt.Errorf("register address %#x out of range on device %s", addr, dev.Label())
		}
		x, err := acc.Read(dev, addr, op.Width)
		if err != nil {
			return err
		}
		if opts.Verbose > 0 {
			fmt.Fprintf(opts.Out, " = ")
		}
		fmt.Fprintf(opts.Out, "%0*x\n", digits, x)
		return nil
	}

	full := pci.WidthMask(op.Width)
	for _, v := range op.Values {
		if addr+op.Width > pci.ConfigSpaceSize {
			return fmt.Errorf("register address %#x out of range on device %s", addr, dev.Label())
		}
		var x uint32
		if v.Mask&full == full {
			// Unconditional write, no read needed.
			x = v.Value
			if opts.Verbose > 0 {
				fmt.Fprintf(opts.Out, " %0*x", digits, v.Value)
			}
		} else {
			y, err := acc.Read(dev, addr, op.Width)
			if err != nil {
				return err
			}
			x = (y &^ v.Mask) | v.Value
			if opts.Verbose > 0 {
				fmt.Fprintf(opts.Out, " %0*x->(%0*x:%0*x)->%0*x",
					digits, y, digits, v.Value, digits, v.Mask, digits, x)
			}
		}
		if !opts.DryRun {
			if err := acc.Write(dev, addr, op.Width, x); err != nil {
				return err
			}
		}
		addr += op.Width
	}
	if opts.Verbose > 0 {
		fmt.Fprintln(opts.Out)
	}
	return nil
}
