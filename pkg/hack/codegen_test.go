package hack_test

import (
	"fmt"
	"testing"

	"go.n2t.dev/sim/pkg/hack"
)

func TestAInstructions(t *testing.T) {
	// Instantiate a basic simple table with some entries and shared codegen for every test cases
	table := hack.SymbolTable{"Test1": 0, "Test2": 67, "hmny": 9393, "n2t": 754, "JUMP": 90}
	codegen := hack.NewCodeGenerator(hack.Program{}, table)

	test := func(inst hack.AInstruction, expected string, fail bool) {
		res, err := codegen.GenerateAInst(inst)
		if len(res) == 16 && res != expected {
			t.Errorf("GenerateAInst(%+v) = %q, want %q", inst, res, expected)
		}
		if (err != nil) != fail {
			t.Errorf("GenerateAInst(%+v) error = %v, want fail=%v", inst, err, fail)
		}
	}

	t.Run("Raw memory access", func(t *testing.T) {
		test(hack.AInstruction{LocType: hack.Raw, LocName: "38"}, fmt.Sprintf("%016b", 38), false)
		test(hack.AInstruction{LocType: hack.Raw, LocName: "42"}, fmt.Sprintf("%016b", 42), false)
		test(hack.AInstruction{LocType: hack.Raw, LocName: "64"}, fmt.Sprintf("%016b", 64), false)
		test(hack.AInstruction{LocType: hack.Raw, LocName: "128"}, fmt.Sprintf("%016b", 128), false)
		test(hack.AInstruction{LocType: hack.Raw, LocName: "32767"}, fmt.Sprintf("%016b", 32767), false)
		// Out of bound addresses, should fail
		test(hack.AInstruction{LocType: hack.Raw, LocName: "32768"}, "", true)
		test(hack.AInstruction{LocType: hack.Raw, LocName: "65538"}, "", true)
	})

	t.Run("Hack built-in labels", func(t *testing.T) {
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "SP"}, fmt.Sprintf("%016b", 0), false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "LCL"}, fmt.Sprintf("%016b", 1), false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "ARG"}, fmt.Sprintf("%016b", 2), false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "THIS"}, fmt.Sprintf("%016b", 3), false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "THAT"}, fmt.Sprintf("%016b", 4), false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "R13"}, fmt.Sprintf("%016b", 13), false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "KBD"}, fmt.Sprintf("%016b", 24576), false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "SCREEN"}, fmt.Sprintf("%016b", 16384), false)
	})

	t.Run("User-defined labels", func(t *testing.T) {
		test(hack.AInstruction{LocType: hack.Label, LocName: "Test1"}, fmt.Sprintf("%016b", table["Test1"]), false)
		test(hack.AInstruction{LocType: hack.Label, LocName: "JUMP"}, fmt.Sprintf("%016b", table["JUMP"]), false)
	})

	t.Run("Unresolved labels become lazily-allocated variables", func(t *testing.T) {
		// First reference allocates at 16, a second reference to the same name must reuse it.
		first, err := codegen.GenerateAInst(hack.AInstruction{LocType: hack.Label, LocName: "counter"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := codegen.GenerateAInst(hack.AInstruction{LocType: hack.Label, LocName: "counter"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first != second {
			t.Fatalf("expected stable address across references, got %q then %q", first, second)
		}
		if first != fmt.Sprintf("%016b", 16) {
			t.Fatalf("expected first variable at address 16, got %q", first)
		}
	})
}

func TestCInstructions(t *testing.T) {
	codegen := hack.NewCodeGenerator(hack.Program{}, hack.SymbolTable{})

	test := func(inst hack.CInstruction, expected string, fail bool) {
		res, err := codegen.GenerateCInst(inst)
		if len(res) == 16 && res != expected {
			t.Errorf("GenerateCInst(%+v) = %q, want %q", inst, res, expected)
		}
		if (err != nil) != fail {
			t.Errorf("GenerateCInst(%+v) error = %v, want fail=%v", inst, err, fail)
		}
	}

	t.Run("Comps and Jumps", func(t *testing.T) {
		test(hack.CInstruction{Comp: "M", Jump: ""}, "1111110000000000", false)
		test(hack.CInstruction{Comp: "A", Jump: ""}, "1110110000000000", false)
		test(hack.CInstruction{Comp: "0", Jump: "JGT"}, "1110101010000001", false)
		test(hack.CInstruction{Comp: "1", Jump: "JEQ"}, "1110111111000010", false)
		test(hack.CInstruction{Comp: "D", Jump: "JGE"}, "1110001100000011", false)
	})

	t.Run("Comps and Dests", func(t *testing.T) {
		test(hack.CInstruction{Comp: "D+A", Dest: ""}, "1110000010000000", false)
		test(hack.CInstruction{Comp: "D-A", Dest: "M"}, "1110010011001000", false)
		test(hack.CInstruction{Comp: "D&A", Dest: "A"}, "1110000000100000", false)
		test(hack.CInstruction{Comp: "D|A", Dest: "MD"}, "1110010101011000", false)
		test(hack.CInstruction{Comp: "-1", Dest: "AMD"}, "1110111010111000", false)
	})

	t.Run("Malformed instructions", func(t *testing.T) {
		test(hack.CInstruction{Comp: ""}, "", true)
		test(hack.CInstruction{Comp: "D+2"}, "", true)
		test(hack.CInstruction{Comp: "D", Dest: "XYZ"}, "", true)
		test(hack.CInstruction{Comp: "D", Jump: "JXX"}, "", true)
	})
}

func TestDisassemble(t *testing.T) {
	cases := []struct {
		word uint16
		want string
	}{
		{42, "@42"},
		{0b1110110000010000, "D=A"},
		{0b1110010011010000, "D=D-A"},
		{0b1110001100000001, "D;JGT"},
		{0b1110101010000111, "0;JMP"},
		{0b1110011111111000, "AMD=D+1"},
		{0b1111110000000000, "M"},
	}

	for _, c := range cases {
		t.Run(c.want, func(t *testing.T) {
			if got := hack.Disassemble(c.word); got != c.want {
				t.Errorf("Disassemble(%016b) = %q, want %q", c.word, got, c.want)
			}
		})
	}
}

func TestDisassembleRoundTripsGenerate(t *testing.T) {
	table := hack.SymbolTable{}
	codegen := hack.NewCodeGenerator(hack.Program{}, table)

	insts := []hack.CInstruction{
		{Comp: "D+1", Dest: "D"},
		{Comp: "D-M", Dest: "AM"},
		{Comp: "0", Jump: "JMP"},
	}

	for _, inst := range insts {
		bin, err := codegen.GenerateCInst(inst)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		word, err := parseBinary(bin)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := inst.Comp
		if inst.Dest != "" {
			want = inst.Dest + "=" + want
		}
		if inst.Jump != "" {
			want = want + ";" + inst.Jump
		}
		if got := hack.Disassemble(word); got != want {
			t.Errorf("Disassemble(Generate(%+v)) = %q, want %q", inst, got, want)
		}
	}
}

func parseBinary(bin string) (uint16, error) {
	var word uint16
	for _, c := range bin {
		word <<= 1
		if c == '1' {
			word |= 1
		} else if c != '0' {
			return 0, fmt.Errorf("invalid binary digit %q", c)
		}
	}
	return word, nil
}
