package sequential_test

import (
	"testing"

	"go.n2t.dev/sim/pkg/sequential"
)

func TestDff(t *testing.T) {
	var d sequential.Dff
	if d.Get() != 0 {
		t.Fatal("expected zero initial output")
	}

	d.Set(0xFFFF)
	if d.Get() != 0 {
		t.Fatal("output must not change before Tick")
	}

	d.Tick()
	if d.Get() != 0xFFFF {
		t.Fatal("output must change after Tick")
	}
}

func TestRegister(t *testing.T) {
	var r sequential.Register

	r.Set(0xAAAA, true)
	r.Tick()
	if r.Get() != 0xAAAA {
		t.Fatalf("got %04x, want AAAA", r.Get())
	}

	r.Set(0xBCBC, false)
	r.Tick()
	if r.Get() != 0xAAAA {
		t.Fatalf("load=false must preserve value, got %04x", r.Get())
	}

	r.Set(0xBCBC, true)
	r.Tick()
	if r.Get() != 0xBCBC {
		t.Fatalf("got %04x, want BCBC", r.Get())
	}
}

func TestCounterPriority(t *testing.T) {
	t.Run("reset wins over load and inc", func(t *testing.T) {
		var c sequential.Counter
		c.Set(0x10F0, false, true, false)
		c.Tick()

		c.Set(0x2222, true, true, true)
		c.Tick()
		if c.Get() != 0 {
			t.Fatalf("reset should win, got %04x", c.Get())
		}
	})

	t.Run("load wins over inc", func(t *testing.T) {
		var c sequential.Counter
		c.Set(0x10F0, false, true, false)
		c.Tick()

		c.Set(0x2222, false, true, true)
		c.Tick()
		if c.Get() != 0x2222 {
			t.Fatalf("load should win over inc, got %04x", c.Get())
		}
	})

	t.Run("inc wraps", func(t *testing.T) {
		var c sequential.Counter
		c.Set(0xFFFF, false, true, false)
		c.Tick()

		c.Set(0, false, false, true)
		c.Tick()
		if c.Get() != 0 {
			t.Fatalf("expected wraparound to 0, got %04x", c.Get())
		}
	})

	t.Run("no control preserves value", func(t *testing.T) {
		var c sequential.Counter
		c.Set(77, false, true, false)
		c.Tick()

		c.Set(0, false, false, false)
		c.Tick()
		if c.Get() != 77 {
			t.Fatalf("expected unchanged value, got %d", c.Get())
		}
	})
}

func TestRAM(t *testing.T) {
	ram := sequential.NewRAM()

	ram.Set(12345, 0xBEEF)
	if ram.Get(12345) != 0 {
		t.Fatal("write must not be visible before Tick")
	}
	ram.Tick()
	if ram.Get(12345) != 0xBEEF {
		t.Fatalf("got %04x, want BEEF", ram.Get(12345))
	}

	ram.Set(100, 0x1111)
	ram.Set(200, 0x2222)
	ram.Tick()
	if ram.Get(100) != 0x1111 || ram.Get(200) != 0x2222 {
		t.Fatal("independent addresses must not interfere")
	}
}

func TestRAMOutOfBoundsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on out-of-range address")
		}
	}()
	sequential.NewRAM().Get(32768)
}

func TestROMLoadFromString(t *testing.T) {
	rom := sequential.NewROM()
	image := "0000000000000001\n\n   \n0000000000000010"

	if err := rom.LoadFromString(image); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rom.Get(0) != 1 {
		t.Fatalf("got %d, want 1", rom.Get(0))
	}
	if rom.Get(1) != 2 {
		t.Fatalf("got %d, want 2", rom.Get(1))
	}
}

func TestROMLoadFromStringRejectsMalformed(t *testing.T) {
	rom := sequential.NewROM()
	if err := rom.LoadFromString("not-binary"); err == nil {
		t.Fatal("expected error for malformed line")
	}
}
