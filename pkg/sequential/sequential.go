// Package sequential implements the clocked storage elements the CPU is
// built from: a flip-flop, a load-gated register, a priority-controlled
// program counter, and flat 32K RAM/ROM arrays.
//
// Every element follows the same two-stage discipline: a write only stages
// a value, and it is not observable until Tick commits it. This is the
// hardest invariant in the whole simulator and every type here exists
// purely to make it mechanical.
package sequential

import (
	"fmt"
	"strconv"
	"strings"

	"go.n2t.dev/sim/pkg/gates"
)

// Dff is a 16-bit D flip-flop: the atomic unit of state in the simulator.
type Dff struct {
	input  uint16
	output uint16
}

// Set stages a new value; it has no effect until Tick.
func (d *Dff) Set(value uint16) {
	d.input = value
}

// Get returns the last committed value.
func (d *Dff) Get() uint16 {
	return d.output
}

// Tick commits the staged value.
func (d *Dff) Tick() {
	d.output = d.input
}

// Register is a Dff guarded by a load gate: a write is ignored unless load
// is asserted; when it is not, the register restages its own current output
// (so an un-asserted Set is a no-op across Tick, not just a skipped write).
type Register struct {
	dff Dff
}

func (r *Register) Set(value uint16, load bool) {
	r.dff.Set(gates.Mux16(value, r.dff.Get(), load))
}

func (r *Register) Get() uint16 {
	return r.dff.Get()
}

func (r *Register) Tick() {
	r.dff.Tick()
}

// Counter is a Register under three mutually exclusive controls, applied
// with fixed priority reset > load > inc. With none asserted it restages
// its own current output.
type Counter struct {
	dff Dff
}

func (c *Counter) Set(value uint16, reset, load, inc bool) {
	switch {
	case reset:
		c.dff.Set(0)
	case load:
		c.dff.Set(value)
	case inc:
		c.dff.Set(gates.Inc16(c.dff.Get()))
	default:
		c.dff.Set(c.dff.Get())
	}
}

func (c *Counter) Get() uint16 {
	return c.dff.Get()
}

func (c *Counter) Tick() {
	c.dff.Tick()
}

const memorySize = 32 * 1024

// RAM is the addressable 32K data memory (R0..R15, the screen region and
// the keyboard word all alias into it; the simulator reserves their ranges
// but does not interpret screen/keyboard semantics beyond that).
type RAM struct {
	cells [memorySize]Register
}

func NewRAM() *RAM {
	return &RAM{}
}

func (m *RAM) Get(address uint16) uint16 {
	assertAddress(address)
	return m.cells[address].Get()
}

func (m *RAM) Set(address uint16, value uint16) {
	assertAddress(address)
	m.cells[address].Set(value, true)
}

func (m *RAM) Tick() {
	for i := range m.cells {
		m.cells[i].Tick()
	}
}

// ROM is the 32K instruction memory; only Get is used at runtime. It is
// loaded once, in bulk, before the CPU starts clocking.
type ROM struct {
	cells [memorySize]Register
}

func NewROM() *ROM {
	return &ROM{}
}

func (m *ROM) Get(address uint16) uint16 {
	assertAddress(address)
	return m.cells[address].Get()
}

func (m *ROM) set(address uint16, value uint16) {
	assertAddress(address)
	m.cells[address].Set(value, true)
}

func (m *ROM) tick() {
	for i := range m.cells {
		m.cells[i].Tick()
	}
}

// LoadFromString loads a ROM image: one 16-character binary word per
// non-blank line. Whitespace-only lines are skipped; anything else that
// fails to parse as 16-bit binary, or a line count beyond the 32K
// instruction limit, is fatal -- a malformed program image is not a
// recoverable condition.
func (m *ROM) LoadFromString(image string) error {
	address := uint16(0)

	for lineNo, line := range strings.Split(image, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if int(address) >= memorySize {
			return fmt.Errorf("sequential: ROM image exceeds %d instruction limit", memorySize)
		}

		if len(trimmed) != 16 {
			return fmt.Errorf("sequential: expected a 16-bit binary word, got %q at line %d", trimmed, lineNo)
		}
		word, err := strconv.ParseUint(trimmed, 2, 16)
		if err != nil {
			return fmt.Errorf("sequential: invalid binary %q at line %d: %w", trimmed, lineNo, err)
		}

		m.set(address, uint16(word))
		address++
	}

	m.tick()
	return nil
}

func assertAddress(address uint16) {
	if int(address) >= memorySize {
		panic(fmt.Sprintf("sequential: address %d out of range [0,%d)", address, memorySize))
	}
}
