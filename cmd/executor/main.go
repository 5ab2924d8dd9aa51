package main

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/teris-io/cli"
	"go.n2t.dev/sim/pkg/asm"
	"go.n2t.dev/sim/pkg/cpu"
	"go.n2t.dev/sim/pkg/hack"
	"go.n2t.dev/sim/pkg/utils"
	"go.n2t.dev/sim/pkg/vm"
)

var Description = strings.ReplaceAll(`
The Executor wires the VM translator, the Assembler and the CPU simulator end to end: it
lowers one or more .vm modules to Hack assembly, assembles the result to binary, loads the
binary into a simulated ROM and clocks the CPU for a bounded number of cycles, then dumps its
final register state. It exists to exercise the whole toolchain in one pass rather than to
replace the two standalone front-ends.
`, "\n", " ")

var Executor = cli.New(Description).
	WithArg(cli.NewArg("inputs", "The bytecode (.vm) file(s) to assemble and run").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("cycles", "Maximum number of clock cycles to run (default 1000)").
		WithType(cli.TypeNumber)).
	WithOption(cli.NewOption("bootstrap", "Prepend the 'SP=256; call Sys.init 0' bootstrap sequence").
		WithType(cli.TypeBool)).
	WithOption(cli.NewOption("dump", "Comma separated RAM addresses to print after halting").
		WithType(cli.TypeString)).
	WithAction(Handler)

const defaultCycles = 1000

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: at least one .vm input file is required, use --help\n")
		return -1
	}

	program := vm.Program{}
	for _, input := range args {
		content, err := os.ReadFile(input)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		parser := vm.NewParser(bytes.NewReader(content))
		module, err := parser.Parse()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
			return -1
		}
		program[path.Base(input)] = module
	}

	var asmProgram asm.Program
	if _, enabled := options["bootstrap"]; enabled {
		bootstrap, err := bootstrapPreamble()
		if err != nil {
			fmt.Printf("ERROR: Unable to build bootstrap sequence: %s\n", err)
			return -1
		}
		asmProgram = append(asmProgram, bootstrap...)
	}

	lowered, err := vm.NewLowerer(program).Lower()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return -1
	}
	asmProgram = append(asmProgram, lowered...)

	hackLowerer := asm.NewLowerer(asmProgram)
	hackProgram, table, err := hackLowerer.Lower()
	if err != nil {
		fmt.Printf("ERROR: Unable to resolve symbols: %s\n", err)
		return -1
	}

	codegen := hack.NewCodeGenerator(hackProgram, table)
	binary, err := codegen.Generate()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return -1
	}

	machine := cpu.New()
	machine.ResetPC()
	if err := machine.LoadFromString(strings.Join(binary, "\n")); err != nil {
		fmt.Printf("ERROR: Unable to load the compiled image into ROM: %s\n", err)
		return -1
	}

	cycles := defaultCycles
	if raw, ok := options["cycles"]; ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			fmt.Printf("ERROR: Invalid --cycles value %q: %s\n", raw, err)
			return -1
		}
		cycles = n
	}

	trace := run(machine, cycles)
	dumpState(machine, trace, options["dump"])
	return 0
}

// bootstrapPreamble emits "SP=256" followed by the ordinary function-call
// sequence for "call Sys.init 0", matching the teris-io/cli "--bootstrap"
// flag already wired on cmd/vm_translator.
func bootstrapPreamble() (asm.Program, error) {
	call, err := vm.NewLowerer(vm.Program{"Bootstrap.vm": {
		vm.FuncCallOp{Name: "Sys.init", NArgs: 0},
	}}).Lower()
	if err != nil {
		return nil, err
	}

	preamble := asm.Program{
		asm.AInstruction{Location: "256"},
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}
	return append(preamble, call...), nil
}

// run clocks the machine up to 'cycles' times, stopping early if it detects
// a tight self-jump (the same PC fetched on two consecutive cycles, i.e. a
// jump whose target is its own address), since the CPU itself has no halt
// instruction. A halt loop spanning two instructions, such as '(END) @END
// 0;JMP' or a VM 'label END / goto END', alternates between two PCs and is
// not detected: it runs for the full cycle budget. Every fetched PC is pushed
// onto a trace stack so the caller can report the last few addresses visited.
func run(machine *cpu.CPU, cycles int) utils.Stack[uint16] {
	trace := utils.NewStack[uint16]()
	prevPC, havePrev := uint16(0), false

	for i := 0; i < cycles; i++ {
		pc := machine.GetPC()
		if havePrev && pc == prevPC {
			break
		}

		trace.Push(pc)
		prevPC, havePrev = pc, true
		machine.Clock()
	}

	return trace
}

func dumpState(machine *cpu.CPU, trace utils.Stack[uint16], dumpSpec string) {
	fmt.Printf("A  = %016b\n", machine.GetA())
	fmt.Printf("D  = %016b\n", machine.GetD())
	fmt.Printf("PC = %016b\n", machine.GetPC())

	fmt.Print("trace (most recent first):")
	const maxTraceEntries = 8
	shown := 0
	for pc := range trace.Iterator() {
		if shown >= maxTraceEntries {
			break
		}
		fmt.Printf(" %d", pc)
		shown++
	}
	fmt.Println()

	if dumpSpec == "" {
		return
	}
	for _, raw := range strings.Split(dumpSpec, ",") {
		address, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 16)
		if err != nil {
			fmt.Printf("WARNING: skipping invalid --dump address %q: %s\n", raw, err)
			continue
		}
		fmt.Printf("RAM[%d] = %d\n", address, machine.GetData(uint16(address)))
	}
}

func main() { os.Exit(Executor.Run(os.Args, os.Stdout)) }
