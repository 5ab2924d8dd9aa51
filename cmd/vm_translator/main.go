package main

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/teris-io/cli"
	"go.n2t.dev/sim/pkg/asm"
	"go.n2t.dev/sim/pkg/vm"
)

var Description = strings.ReplaceAll(`
The VM Translator translates programs (composed of multiple modules/files) written in
the VM language into Hack assembly code that can be further elaborated. The VM language
is a higher-level (bytecode'like) language tailored for use with the Hack computer arch.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	// 'AsOptional()' allows to have more than one input .vm file
	WithArg(cli.NewArg("inputs", "The bytecode (.vm) file to be compiled").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("output", "The compiled binary output (.asm)").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("bootstrap", "Includes bootstrap code in the final .asm file").
		WithType(cli.TypeBool)).
	WithOption(cli.NewOption("normalize", "Re-emit canonical, reformatted VM source to --output instead of assembling").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 || options["output"] == "" {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	output, err := os.Create(options["output"])
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	// Allocates a 'vm.Program' struct to save all the parsed translation unit
	// (the .vm files) that will be parsed and lowered independently and then
	// sent to the codegen phases (that will create a monolithic compiled output).
	program := vm.Program{}

	// For every file provided by the user we do the following things
	for _, input := range args {
		content, err := os.ReadFile(input)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		// Instantiate a parser for the Vm program
		parser := vm.NewParser(bytes.NewReader(content))
		// Parses the input file content and extract an AST (as a 'vm.Module') from it.
		program[path.Base(input)], err = parser.Parse()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
			return -1
		}
	}

	// '--normalize' sidesteps assembling entirely: it just re-renders the parsed
	// modules back to VM source, one module at a time in a deterministic order,
	// which is useful to pretty-print/canonicalize hand-written .vm files.
	if _, enabled := options["normalize"]; enabled {
		rendered, err := vm.NewCodeGenerator(program).Generate()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
			return -1
		}

		modNames := make([]string, 0, len(rendered))
		for modName := range rendered {
			modNames = append(modNames, modName)
		}
		sort.Strings(modNames)

		for _, modName := range modNames {
			for _, line := range rendered[modName] {
				output.Write([]byte(fmt.Sprintf("%s\n", line)))
			}
		}
		return 0
	}

	var asmProgram asm.Program

	// When the user opts in to include the 'bootstrap' code as the first instructions of our
	// translated program, this code sets the Stack Pointer to its base location at memory
	// location 256 and then calls Sys.init through the ordinary function-call convention, so
	// that Sys.init returning (it never should, but the VM doesn't enforce that) behaves like
	// returning from any other call.
	if _, enabled := options["bootstrap"]; enabled {
		bootstrap, err := vm.NewLowerer(vm.Program{"Bootstrap.vm": {
			vm.FuncCallOp{Name: "Sys.init", NArgs: 0},
		}}).Lower()
		if err != nil {
			fmt.Printf("ERROR: Unable to build bootstrap sequence: %s\n", err)
			return -1
		}

		asmProgram = append(asmProgram,
			asm.AInstruction{Location: "256"},
			asm.CInstruction{Dest: "D", Comp: "A"},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		)
		asmProgram = append(asmProgram, bootstrap...)
	}

	// Instantiate a lowerer to convert the program from Vm to Asm
	lowerer := vm.NewLowerer(program)
	// Lowers the vm.Program to an in-memory/IR representation of its Asm counterpart 'asm.Program'.
	mainProgram, err := lowerer.Lower()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return -1
	}
	asmProgram = append(asmProgram, mainProgram...)

	// Now, instantiates a code generator for the Asm (compiled) program
	codegen := asm.NewCodeGenerator(asmProgram)
	// Iterates over each instruction and spits out the relative textual representation.
	compiled, err := codegen.Generate()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return -1
	}

	for _, comp := range compiled {
		line := fmt.Sprintf("%s\n", comp)
		output.Write([]byte(line))
	}

	return 0
}

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }
