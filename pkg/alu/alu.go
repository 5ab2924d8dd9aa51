// Package alu implements the Hack ALU: a single straight-line function
// applying a fixed 6-flag control word to two 16-bit operands.
//
// It is deliberately not a lookup table over the 28 canonical comp codes —
// every one of the 64 flag combinations must produce defined, composable
// behavior, which a table keyed on "the ones Hack assembly uses" would not
// guarantee.
package alu

import "go.n2t.dev/sim/pkg/gates"

// Flags is the ALU's 6-bit control word, applied to (x, y) in this fixed
// order: zero x, negate x, zero y, negate y, add-or-and, negate output.
type Flags struct {
	ZX bool // zero the x input
	NX bool // negate the x input
	ZY bool // zero the y input
	NY bool // negate the y input
	F  bool // true: out = x+y, false: out = x&y
	NO bool // negate the output
}

// Compute applies flags to (x, y) and returns the output plus the zero and
// negative status flags. Overflow in the adder wraps silently; Ng reports
// only the sign bit of the result, not a true signed-overflow condition.
func Compute(x, y uint16, flags Flags) (out uint16, zr, ng bool) {
	if flags.ZX {
		x = gates.And16(x, 0x0000)
	}
	if flags.NX {
		x = gates.Not16(x)
	}
	if flags.ZY {
		y = gates.And16(y, 0x0000)
	}
	if flags.NY {
		y = gates.Not16(y)
	}

	if flags.F {
		out = gates.Add16(x, y)
	} else {
		out = gates.And16(x, y)
	}

	if flags.NO {
		out = gates.Not16(out)
	}

	zr = out == 0
	ng = gates.GetBit(out, 15)
	return out, zr, ng
}
