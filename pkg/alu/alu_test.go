package alu_test

import (
	"testing"

	"go.n2t.dev/sim/pkg/alu"
)

// The 18 canonical Hack comp codes, each named by its mnemonic and given as
// its flag combination, double as the ALU's acceptance test: every flag
// combination must reproduce the value this table says it should.
func TestComputeCanonical(t *testing.T) {
	x, y := uint16(17), uint16(3)

	cases := []struct {
		name  string
		flags alu.Flags
		want  uint16
	}{
		{"0", alu.Flags{ZX: true, NX: false, ZY: true, NY: false, F: true, NO: false}, 0},
		{"1", alu.Flags{ZX: true, NX: true, ZY: true, NY: true, F: true, NO: true}, 1},
		{"-1", alu.Flags{ZX: true, NX: true, ZY: true, NY: false, F: true, NO: false}, 0xFFFF},
		{"D", alu.Flags{ZX: false, NX: false, ZY: true, NY: true, F: false, NO: false}, x},
		{"A", alu.Flags{ZX: true, NX: true, ZY: false, NY: false, F: false, NO: false}, y},
		{"!D", alu.Flags{ZX: false, NX: false, ZY: true, NY: true, F: false, NO: true}, ^x},
		{"!A", alu.Flags{ZX: true, NX: true, ZY: false, NY: false, F: false, NO: true}, ^y},
		{"-D", alu.Flags{ZX: false, NX: false, ZY: true, NY: true, F: true, NO: true}, uint16(-int16(x))},
		{"-A", alu.Flags{ZX: true, NX: true, ZY: false, NY: false, F: true, NO: true}, uint16(-int16(y))},
		{"D+1", alu.Flags{ZX: false, NX: true, ZY: true, NY: true, F: true, NO: true}, x + 1},
		{"A+1", alu.Flags{ZX: true, NX: true, ZY: false, NY: true, F: true, NO: true}, y + 1},
		{"D-1", alu.Flags{ZX: false, NX: false, ZY: true, NY: true, F: true, NO: false}, x - 1},
		{"A-1", alu.Flags{ZX: true, NX: true, ZY: false, NY: false, F: true, NO: false}, y - 1},
		{"D+A", alu.Flags{ZX: false, NX: false, ZY: false, NY: false, F: true, NO: false}, x + y},
		{"D-A", alu.Flags{ZX: false, NX: true, ZY: false, NY: false, F: true, NO: true}, x - y},
		{"A-D", alu.Flags{ZX: false, NX: false, ZY: false, NY: true, F: true, NO: true}, y - x},
		{"D&A", alu.Flags{ZX: false, NX: false, ZY: false, NY: false, F: false, NO: false}, x & y},
		{"D|A", alu.Flags{ZX: false, NX: true, ZY: false, NY: true, F: false, NO: true}, x | y},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out, _, _ := alu.Compute(x, y, c.flags)
			if out != c.want {
				t.Errorf("%s: Compute = %d, want %d", c.name, out, c.want)
			}
		})
	}
}

func TestComputeFlags(t *testing.T) {
	t.Run("zr set on zero result", func(t *testing.T) {
		_, zr, _ := alu.Compute(5, 5, alu.Flags{NX: true, F: true, NO: true})
		if !zr {
			t.Error("expected zr for D-D")
		}
	})

	t.Run("ng set on negative result", func(t *testing.T) {
		out, _, ng := alu.Compute(3, 5, alu.Flags{NX: true, F: true, NO: true}) // !(!3+5) = 3-5 = -2
		if !ng {
			t.Errorf("expected ng for negative output, got %016b", out)
		}
	})

	t.Run("ng mirrors sign bit only", func(t *testing.T) {
		out, _, ng := alu.Compute(0x8000, 0xFFFF, alu.Flags{F: false})
		if out != 0x8000 || !ng {
			t.Errorf("expected out=0x8000 ng=true, got out=%04x ng=%v", out, ng)
		}
	})
}

func TestComputeWraps(t *testing.T) {
	out, _, _ := alu.Compute(0xFFFF, 1, alu.Flags{F: true})
	if out != 0 {
		t.Errorf("expected silent wraparound, got %d", out)
	}
}
