// Package specparse turns one register-spec token of the form
//
//	base[+offset][.width][=value[:mask],...]
//
// into a validated, immutable Operation. The base is a bare hex address, a
// catalog name, or a synthetic CAP<id>/ECAP<id> form; values carry an
// optional write mask. All numbers are hexadecimal.
package specparse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTracePCI/pkg/pci"
	"github.com/OpenTraceLab/OpenTracePCI/pkg/regname"
)

// Value is one unit to write. Mask selects the bits to overwrite; an
// all-ones mask for the operation's width means an unconditional write that
// needs no prior read. Value is already folded into Mask at parse time.
type Value struct {
	Value uint32
	Mask  uint32
}

// Operation is one parsed register spec. An empty Values slice means "read
// and report"; otherwise each Value is written at consecutive addresses
// starting at Addr, advancing by Width. For capability-relative operations
// Addr is the offset from the capability header, resolved per device at
// execution time.
type Operation struct {
	Cap    pci.CapRef
	Addr   uint32
	Width  uint32
	Values []Value
}

// Parse validates one token and builds the Operation. Every reported error
// is a usage error: the token itself is malformed, names an unknown
// register, or violates a width, alignment or range invariant.
func Parse(token string) (*Operation, error) {
	node, err := specParser.ParseString("", token)
	if err != nil {
		return nil, fmt.Errorf("invalid register spec %q: %w", token, err)
	}

	op := &Operation{}

	if node.Width != nil {
		w, ok := widthLetter(*node.Width)
		if !ok {
			return nil, fmt.Errorf("invalid width %q in %q", *node.Width, token)
		}
		op.Width = w
	}

	if err := resolveBase(op, node.Base); err != nil {
		return nil, err
	}
	if op.Width == 0 {
		return nil, fmt.Errorf("missing width in %q", token)
	}

	if node.Offset != nil {
		off, ok := parseHex32(*node.Offset)
		if !ok || off >= pci.ConfigSpaceSize {
			return nil, fmt.Errorf("invalid offset %q in %q", *node.Offset, token)
		}
		op.Addr += off
	}

	span := uint32(len(node.Values))
	if span == 0 {
		span = 1
	}
	if op.Addr >= pci.ConfigSpaceSize || op.Addr+op.Width*span > pci.ConfigSpaceSize {
		return nil, fmt.Errorf("register address out of range in %q", token)
	}
	if op.Addr&(op.Width-1) != 0 {
		return nil, fmt.Errorf("unaligned register address in %q", token)
	}

	lim := pci.WidthMask(op.Width)
	for _, vn := range node.Values {
		v, ok := parseHex32(vn.Value)
		if !ok {
			return nil, fmt.Errorf("invalid value %q in %q", vn.Value, token)
		}
		if !fitsWidth(v, lim) {
			return nil, fmt.Errorf("value %q out of range in %q", vn.Value, token)
		}
		val := Value{Value: v, Mask: ^uint32(0)}
		if vn.Mask != nil {
			m, ok := parseHex32(*vn.Mask)
			if !ok {
				return nil, fmt.Errorf("invalid mask %q in %q", *vn.Mask, token)
			}
			if !fitsWidth(m, lim) {
				return nil, fmt.Errorf("mask %q out of range in %q", *vn.Mask, token)
			}
			val.Mask = m
			val.Value &= m
		}
		op.Values = append(op.Values, val)
	}

	return op, nil
}

// resolveBase fills in the address base: a bare hex number is an absolute
// address, anything else goes through the catalog (which also handles the
// synthetic CAP/ECAP forms). A catalog width applies only when no explicit
// suffix was given.
func resolveBase(op *Operation, base string) error {
	if addr, ok := parseHex32(base); ok {
		op.Addr = addr
		return nil
	}
	e, ok := regname.Lookup(base)
	if !ok {
		return fmt.Errorf("unknown register %q", base)
	}
	op.Cap = e.Cap
	op.Addr = e.Offset
	if op.Width == 0 {
		op.Width = e.Width
	}
	return nil
}

// widthLetter maps the case-insensitive suffix letters B, W and L to byte
// widths.
func widthLetter(s string) (uint32, bool) {
	if len(s) != 1 {
		return 0, false
	}
	switch strings.ToUpper(s) {
	case "B":
		return 1, true
	case "W":
		return 2, true
	case "L":
		return 4, true
	}
	return 0, false
}

// fitsWidth accepts values in [0, lim] and in [^0-lim, ^0]; the upper band
// lets a narrow value be written in its 32-bit two's-complement form (for
// example ffffff00.B for -100). Deliberate leniency inherited from the
// tool's original grammar.
func fitsWidth(v, lim uint32) bool {
	return v <= lim || v >= ^uint32(0)-lim
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
