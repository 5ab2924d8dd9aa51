package gates_test

import (
	"testing"

	"go.n2t.dev/sim/pkg/gates"
)

func TestGetSetBit(t *testing.T) {
	value := uint16(0b1010_0000_0000_1010)

	t.Run("get", func(t *testing.T) {
		cases := map[int]bool{0: false, 1: true, 2: false, 3: true, 4: false, 15: true}
		for i, want := range cases {
			if got := gates.GetBit(value, i); got != want {
				t.Errorf("GetBit(%016b, %d) = %v, want %v", value, i, got, want)
			}
		}
	})

	t.Run("set", func(t *testing.T) {
		if got := gates.SetBit(0x0000, 0, true); got != 0b1 {
			t.Errorf("SetBit = %016b, want 1", got)
		}
		if got := gates.SetBit(0x0000, 1, true); got != 0b10 {
			t.Errorf("SetBit = %016b, want 10", got)
		}
		if got := gates.SetBit(0xFFFF, 0, false); got != 0xFFFE {
			t.Errorf("SetBit = %016b, want FFFE", got)
		}
	})

	t.Run("out of range panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic for out-of-range bit index")
			}
		}()
		gates.GetBit(0xFFFF, 16)
	})
}

func TestNandFamily(t *testing.T) {
	if got := gates.Nand16(0xFFFF, 0xFFFF); got != 0x0000 {
		t.Errorf("Nand16 = %016b, want 0", got)
	}
	if got := gates.Nand16(0x0000, 0x0000); got != 0xFFFF {
		t.Errorf("Nand16 = %016b, want FFFF", got)
	}

	if got := gates.Not16(0x0000); got != 0xFFFF {
		t.Errorf("Not16(0) = %016b, want FFFF", got)
	}
	if got := gates.Not16(0xFFFF); got != 0x0000 {
		t.Errorf("Not16(FFFF) = %016b, want 0", got)
	}

	if got := gates.And16(0b0011, 0b0101); got != 0b0001 {
		t.Errorf("And16 = %04b, want 0001", got)
	}
	if got := gates.Or16(0b0011, 0b0101); got != 0b0111 {
		t.Errorf("Or16 = %04b, want 0111", got)
	}
	if got := gates.Xor16(0b0011, 0b0101); got != 0b0110 {
		t.Errorf("Xor16 = %04b, want 0110", got)
	}
}

func TestMux16(t *testing.T) {
	if got := gates.Mux16(1, 2, true); got != 1 {
		t.Errorf("Mux16 sel=true = %d, want 1", got)
	}
	if got := gates.Mux16(1, 2, false); got != 2 {
		t.Errorf("Mux16 sel=false = %d, want 2", got)
	}
}

func TestAdders(t *testing.T) {
	cases := []struct {
		a, b, cin          bool
		sum, carryOut      bool
	}{
		{false, false, false, false, false},
		{false, false, true, true, false},
		{false, true, false, true, false},
		{false, true, true, false, true},
		{true, false, false, true, false},
		{true, false, true, false, true},
		{true, true, false, false, true},
		{true, true, true, true, true},
	}

	for _, c := range cases {
		sum, carryOut := gates.FullAdder(c.a, c.b, c.cin)
		if sum != c.sum || carryOut != c.carryOut {
			t.Errorf("FullAdder(%v,%v,%v) = (%v,%v), want (%v,%v)",
				c.a, c.b, c.cin, sum, carryOut, c.sum, c.carryOut)
		}
	}

	sum, carry := gates.HalfAdder(true, true)
	if sum != false || carry != true {
		t.Errorf("HalfAdder(true,true) = (%v,%v), want (false,true)", sum, carry)
	}
}

func TestAdd16(t *testing.T) {
	if got := gates.Add16(0b0001, 0b0001); got != 0b0010 {
		t.Errorf("Add16 = %d, want 2", got)
	}
	if got := gates.Add16(0xFFFF, 1); got != 0 {
		t.Errorf("Add16 overflow = %d, want 0 (wraps)", got)
	}
	if got := gates.Add16(5, 0xFFFF); got != 4 {
		t.Errorf("Add16(5,-1) = %d, want 4", got)
	}
}

func TestInc16(t *testing.T) {
	if got := gates.Inc16(0xFFFF); got != 0 {
		t.Errorf("Inc16(0xFFFF) = %d, want 0", got)
	}
	if got := gates.Inc16(41); got != 42 {
		t.Errorf("Inc16(41) = %d, want 42", got)
	}
}
