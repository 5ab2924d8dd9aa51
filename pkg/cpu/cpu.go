// Package cpu implements the Hack fetch-decode-execute cycle on top of
// pkg/alu and pkg/sequential: one Clock call is one combinational pass
// followed by a single atomic commit of A, D, PC and RAM.
package cpu

import (
	"go.n2t.dev/sim/pkg/alu"
	"go.n2t.dev/sim/pkg/gates"
	"go.n2t.dev/sim/pkg/sequential"
)

// Jump predicates, indexed by the 3-bit jump field of a C-instruction.
const (
	jumpNull = 0b000
	jumpGT   = 0b001
	jumpEQ   = 0b010
	jumpGE   = 0b011
	jumpLT   = 0b100
	jumpNE   = 0b101
	jumpLE   = 0b110
	jumpMP   = 0b111
)

// CPU holds the A/D registers, the program counter, the data RAM and the
// instruction ROM, and drives them through the Hack cycle.
type CPU struct {
	a    sequential.Register
	d    sequential.Register
	pc   sequential.Counter
	data *sequential.RAM
	rom  *sequential.ROM
}

// New returns a CPU with all registers and memory at zero.
func New() *CPU {
	return &CPU{data: sequential.NewRAM(), rom: sequential.NewROM()}
}

func (c *CPU) GetA() uint16              { return c.a.Get() }
func (c *CPU) GetD() uint16              { return c.d.Get() }
func (c *CPU) GetPC() uint16             { return c.pc.Get() }
func (c *CPU) GetData(address uint16) uint16 { return c.data.Get(address) }

// ResetPC asserts the counter's reset control for one cycle's worth of
// staging and commits it immediately, independent of the instruction cycle.
func (c *CPU) ResetPC() {
	c.pc.Set(0, true, false, false)
	c.pc.Tick()
}

// LoadFromString loads a ROM image; see sequential.ROM.LoadFromString.
func (c *CPU) LoadFromString(image string) error {
	return c.rom.LoadFromString(image)
}

// Clock runs exactly one fetch-decode-execute-commit cycle.
func (c *CPU) Clock() {
	instruction := c.rom.Get(c.pc.Get())

	if !gates.GetBit(instruction, 15) {
		c.executeAInstruction(instruction)
	} else {
		c.executeCInstruction(instruction)
	}

	c.a.Tick()
	c.d.Tick()
	c.pc.Tick()
	c.data.Tick()
}

func (c *CPU) executeAInstruction(instruction uint16) {
	c.a.Set(instruction, true)
	c.pc.Set(0, false, false, true)
}

func (c *CPU) executeCInstruction(instruction uint16) {
	// The M-write address (if d3 fires) and the ALU's y-operand both use
	// the A value as committed before this cycle -- decode reads c.a.Get()
	// exactly once, up front, so a same-cycle A-write never feeds back in.
	aBeforeCycle := c.a.Get()

	var y uint16
	if gates.GetBit(instruction, 12) {
		y = c.data.Get(aBeforeCycle)
	} else {
		y = aBeforeCycle
	}

	flags := alu.Flags{
		ZX: gates.GetBit(instruction, 11),
		NX: gates.GetBit(instruction, 10),
		ZY: gates.GetBit(instruction, 9),
		NY: gates.GetBit(instruction, 8),
		F:  gates.GetBit(instruction, 7),
		NO: gates.GetBit(instruction, 6),
	}
	out, zr, ng := alu.Compute(c.d.Get(), y, flags)

	destA := gates.GetBit(instruction, 5)
	destD := gates.GetBit(instruction, 4)
	destM := gates.GetBit(instruction, 3)

	if destM {
		c.data.Set(aBeforeCycle, out)
	}
	if destD {
		c.d.Set(out, true)
	}
	// The jump target is whatever A will hold once this cycle commits: the
	// ALU output if d1 fired, otherwise the unchanged pre-cycle A value.
	aAfterCycle := aBeforeCycle
	if destA {
		c.a.Set(out, true)
		aAfterCycle = out
	}

	if jumpTaken(instruction, zr, ng) {
		c.pc.Set(aAfterCycle, false, true, false)
	} else {
		c.pc.Set(0, false, false, true)
	}
}

func jumpTaken(instruction uint16, zr, ng bool) bool {
	pos := !zr && !ng
	jump := instruction & 0b111

	switch jump {
	case jumpNull:
		return false
	case jumpGT:
		return pos
	case jumpEQ:
		return zr
	case jumpGE:
		return pos || zr
	case jumpLT:
		return ng
	case jumpNE:
		return !zr
	case jumpLE:
		return ng || zr
	case jumpMP:
		return true
	default:
		return false
	}
}
