package vm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.n2t.dev/sim/pkg/asm"
)

// ----------------------------------------------------------------------------
// Vm Lowerer

// The Lowerer takes a 'vm.Program' (one Module per translation unit) and produces
// its 'asm.Program' counterpart: a single, flattened stream of assembly statements.
//
// Modules are walked in a stable (sorted) order so that two runs over the same
// input always produce byte-identical output, then each Operation is dispatched
// by a type switch -- pattern matching over the concrete operation types rather
// than a table of closures, since the set of operations is closed and each one
// needs a different number of AST fields inspected before it can be lowered.
type Lowerer struct {
	program  Program
	module   string // current translation unit, used to scope the 'static' segment
	function string // current enclosing function, used to scope labels
	labelSeq int     // monotonically increasing counter, guarantees unique internal labels
}

// Initializes and returns to the caller a brand new 'Lowerer' struct.
func NewLowerer(p Program) *Lowerer {
	return &Lowerer{program: p}
}

// Lower walks every module (in sorted name order) and every operation within
// it, producing the flattened 'asm.Program' equivalent.
func (l *Lowerer) Lower() (asm.Program, error) {
	names := make([]string, 0, len(l.program))
	for name := range l.program {
		names = append(names, name)
	}
	sort.Strings(names)

	program := asm.Program{}
	for _, name := range names {
		l.module = strings.TrimSuffix(name, ".vm")
		l.function = ""

		for _, op := range l.program[name] {
			lowered, err := l.lowerOperation(op)
			if err != nil {
				return nil, fmt.Errorf("module %q: %w", name, err)
			}
			program = append(program, lowered...)
		}
	}

	return program, nil
}

func (l *Lowerer) lowerOperation(op Operation) ([]asm.Statement, error) {
	switch o := op.(type) {
	case MemoryOp:
		return l.lowerMemoryOp(o)
	case ArithmeticOp:
		return l.lowerArithmeticOp(o)
	case LabelDecl:
		return l.lowerLabelDecl(o)
	case GotoOp:
		return l.lowerGotoOp(o)
	case FuncDecl:
		return l.lowerFuncDecl(o)
	case FuncCallOp:
		return l.lowerFuncCallOp(o)
	case ReturnOp:
		return l.lowerReturnOp(), nil
	default:
		return nil, fmt.Errorf("unrecognized operation '%T'", op)
	}
}

// scopedLabel qualifies a user label with the enclosing function, matching the
// standard nand2tetris convention (Function$Label) so that the same label
// name used in two different functions resolves to two distinct addresses.
func (l *Lowerer) scopedLabel(name string) string {
	if l.function == "" {
		return name
	}
	return l.function + "$" + name
}

// nextInternalLabel mints a fresh label for constructs the lowerer itself
// introduces (the jump targets of the eq/gt/lt sequences and the return
// address of every call), guaranteed unique across the whole program by the
// monotonic counter.
func (l *Lowerer) nextInternalLabel(tag string) string {
	l.labelSeq++
	return fmt.Sprintf("INTERNAL.%s.%d", tag, l.labelSeq)
}

// ----------------------------------------------------------------------------
// Memory operations (push/pop across all 8 segments)

func (l *Lowerer) lowerMemoryOp(op MemoryOp) ([]asm.Statement, error) {
	switch op.Operation {
	case Push:
		return l.lowerPush(op.Segment, op.Offset)
	case Pop:
		return l.lowerPop(op.Segment, op.Offset)
	default:
		return nil, fmt.Errorf("unrecognized OperationType '%s'", op.Operation)
	}
}

func (l *Lowerer) lowerPush(segment SegmentType, offset uint16) ([]asm.Statement, error) {
	var loadIntoD []asm.Statement

	switch segment {
	case Constant:
		loadIntoD = []asm.Statement{
			asm.AInstruction{Location: strconv.Itoa(int(offset))},
			asm.CInstruction{Dest: "D", Comp: "A"},
		}

	case Local, Argument, This, That:
		loadIntoD = []asm.Statement{
			asm.AInstruction{Location: segmentPointer(segment)},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: strconv.Itoa(int(offset))},
			asm.CInstruction{Dest: "A", Comp: "D+A"},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}

	case Temp:
		address, err := tempAddress(offset)
		if err != nil {
			return nil, err
		}
		loadIntoD = []asm.Statement{
			asm.AInstruction{Location: strconv.Itoa(address)},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}

	case Pointer:
		reg, err := pointerRegister(offset)
		if err != nil {
			return nil, err
		}
		loadIntoD = []asm.Statement{
			asm.AInstruction{Location: reg},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}

	case Static:
		loadIntoD = []asm.Statement{
			asm.AInstruction{Location: l.staticSymbol(offset)},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}

	default:
		return nil, fmt.Errorf("unrecognized SegmentType '%s'", segment)
	}

	return append(loadIntoD, pushD()...), nil
}

func (l *Lowerer) lowerPop(segment SegmentType, offset uint16) ([]asm.Statement, error) {
	switch segment {
	case Local, Argument, This, That:
		addressIntoD := []asm.Statement{
			asm.AInstruction{Location: segmentPointer(segment)},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: strconv.Itoa(int(offset))},
			asm.CInstruction{Dest: "D", Comp: "D+A"},
		}
		return append(addressIntoD, popIndirect()...), nil

	case Temp:
		address, err := tempAddress(offset)
		if err != nil {
			return nil, err
		}
		return append(popD(), asm.AInstruction{Location: strconv.Itoa(address)}, asm.CInstruction{Dest: "M", Comp: "D"}), nil

	case Pointer:
		reg, err := pointerRegister(offset)
		if err != nil {
			return nil, err
		}
		return append(popD(), asm.AInstruction{Location: reg}, asm.CInstruction{Dest: "M", Comp: "D"}), nil

	case Static:
		return append(popD(), asm.AInstruction{Location: l.staticSymbol(offset)}, asm.CInstruction{Dest: "M", Comp: "D"}), nil

	case Constant:
		return nil, fmt.Errorf("cannot pop into the read-only 'constant' segment")

	default:
		return nil, fmt.Errorf("unrecognized SegmentType '%s'", segment)
	}
}

func (l *Lowerer) staticSymbol(offset uint16) string {
	return fmt.Sprintf("%s.%d", l.module, offset)
}

func segmentPointer(segment SegmentType) string {
	switch segment {
	case Local:
		return "LCL"
	case Argument:
		return "ARG"
	case This:
		return "THIS"
	case That:
		return "THAT"
	default:
		return ""
	}
}

func tempAddress(offset uint16) (int, error) {
	if offset > 7 {
		return 0, fmt.Errorf("invalid 'temp' offset, got %d", offset)
	}
	return 5 + int(offset), nil
}

func pointerRegister(offset uint16) (string, error) {
	switch offset {
	case 0:
		return "THIS", nil
	case 1:
		return "THAT", nil
	default:
		return "", fmt.Errorf("invalid 'pointer' offset, got %d", offset)
	}
}

// pushD emits the fixed suffix every push variant shares once D holds the
// value to push: store it at *SP, then advance SP.
func pushD() []asm.Statement {
	return []asm.Statement{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
	}
}

// popD pops the stack's top into D, used directly by the segments whose
// target address is known at compile time (temp, pointer, static).
func popD() []asm.Statement {
	return []asm.Statement{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
	}
}

// popIndirect pops into a segment whose address is itself computed at
// runtime (local/argument/this/that): the target address, already staged in
// D by the caller, is stashed in R13 since popping the stack clobbers D.
func popIndirect() []asm.Statement {
	return []asm.Statement{
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}
}

// ----------------------------------------------------------------------------
// Arithmetic operations

func (l *Lowerer) lowerArithmeticOp(op ArithmeticOp) ([]asm.Statement, error) {
	switch op.Operation {
	case Neg:
		return unaryOp("-M"), nil
	case Not:
		return unaryOp("!M"), nil
	case Add:
		return binaryOp("D+M"), nil
	case Sub:
		return binaryOp("M-D"), nil
	case And:
		return binaryOp("D&M"), nil
	case Or:
		return binaryOp("D|M"), nil
	case Eq:
		return l.comparisonOp("JEQ"), nil
	case Gt:
		return l.comparisonOp("JGT"), nil
	case Lt:
		return l.comparisonOp("JLT"), nil
	default:
		return nil, fmt.Errorf("unrecognized ArithOpType '%s'", op.Operation)
	}
}

func unaryOp(comp string) []asm.Statement {
	return []asm.Statement{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: comp},
	}
}

func binaryOp(comp string) []asm.Statement {
	return []asm.Statement{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.CInstruction{Dest: "A", Comp: "A-1"},
		asm.CInstruction{Dest: "M", Comp: comp},
	}
}

// comparisonOp lowers eq/gt/lt to a branch-and-set sequence: the two top
// values are subtracted, the requested jump mnemonic decides whether the
// result satisfies the comparison, and the stack's new top is set to -1
// (true) or 0 (false) accordingly. Each call mints its own pair of labels so
// that multiple comparisons in the same function never collide.
func (l *Lowerer) comparisonOp(jump string) []asm.Statement {
	isTrue := l.nextInternalLabel(jump + ".TRUE")
	end := l.nextInternalLabel(jump + ".END")

	return []asm.Statement{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.CInstruction{Dest: "A", Comp: "A-1"},
		asm.CInstruction{Dest: "D", Comp: "M-D"},
		asm.AInstruction{Location: isTrue},
		asm.CInstruction{Comp: "D", Jump: jump},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: "0"},
		asm.AInstruction{Location: end},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: isTrue},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: "-1"},
		asm.LabelDecl{Name: end},
	}
}

// ----------------------------------------------------------------------------
// Control flow

func (l *Lowerer) lowerLabelDecl(op LabelDecl) ([]asm.Statement, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to produce empty label declaration")
	}
	return []asm.Statement{asm.LabelDecl{Name: l.scopedLabel(op.Name)}}, nil
}

func (l *Lowerer) lowerGotoOp(op GotoOp) ([]asm.Statement, error) {
	if op.Label == "" {
		return nil, fmt.Errorf("unable to produce empty jump label")
	}
	target := l.scopedLabel(op.Label)

	if op.Jump == Unconditional {
		return []asm.Statement{
			asm.AInstruction{Location: target},
			asm.CInstruction{Comp: "0", Jump: "JMP"},
		}, nil
	}

	return []asm.Statement{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: target},
		asm.CInstruction{Comp: "D", Jump: "JNE"},
	}, nil
}

// ----------------------------------------------------------------------------
// Functions (call/return convention)

func (l *Lowerer) lowerFuncDecl(op FuncDecl) ([]asm.Statement, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to produce empty function declaration")
	}
	l.function = op.Name

	instrs := []asm.Statement{asm.LabelDecl{Name: op.Name}}
	for i := uint8(0); i < op.NLocal; i++ {
		instrs = append(instrs,
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "A", Comp: "M"},
			asm.CInstruction{Dest: "M", Comp: "0"},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "M", Comp: "M+1"},
		)
	}
	return instrs, nil
}

// lowerFuncCallOp saves the caller's frame (return address, LCL, ARG, THIS,
// THAT), repositions ARG to the first argument the callee will see and LCL
// to the current stack top, then jumps to the callee.
func (l *Lowerer) lowerFuncCallOp(op FuncCallOp) ([]asm.Statement, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to produce empty function call")
	}
	returnLabel := l.nextInternalLabel("RET." + op.Name)

	instrs := []asm.Statement{
		asm.AInstruction{Location: returnLabel},
		asm.CInstruction{Dest: "D", Comp: "A"},
	}
	instrs = append(instrs, pushD()...)
	for _, reg := range []string{"LCL", "ARG", "THIS", "THAT"} {
		instrs = append(instrs,
			asm.AInstruction{Location: reg},
			asm.CInstruction{Dest: "D", Comp: "M"},
		)
		instrs = append(instrs, pushD()...)
	}

	instrs = append(instrs,
		// ARG = SP - nArgs - 5
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: strconv.Itoa(int(op.NArgs) + 5)},
		asm.CInstruction{Dest: "D", Comp: "D-A"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// LCL = SP
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// goto callee
		asm.AInstruction{Location: op.Name},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		// return address lands here
		asm.LabelDecl{Name: returnLabel},
	)

	return instrs, nil
}

// lowerReturnOp restores the caller's frame from the callee's LCL (aliased
// to R13/"FRAME" while unwinding) and hands control back via the saved
// return address (aliased to R14/"RET").
func (l *Lowerer) lowerReturnOp() []asm.Statement {
	restore := func(reg string) []asm.Statement {
		return []asm.Statement{
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "AM", Comp: "M-1"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: reg},
			asm.CInstruction{Dest: "M", Comp: "D"},
		}
	}

	instrs := []asm.Statement{
		// FRAME (R13) = LCL
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// RET (R14) = *(FRAME-5)
		asm.AInstruction{Location: "5"},
		asm.CInstruction{Dest: "A", Comp: "D-A"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// *ARG = pop()
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// SP = ARG + 1
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "D", Comp: "M+1"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}

	// THAT, THIS, ARG, LCL are the four words directly below FRAME, in that order.
	for _, reg := range []string{"THAT", "THIS", "ARG", "LCL"} {
		instrs = append(instrs, restore(reg)...)
	}

	instrs = append(instrs,
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	)
	return instrs
}
