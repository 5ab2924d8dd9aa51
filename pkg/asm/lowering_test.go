package asm_test

import (
	"testing"

	"go.n2t.dev/sim/pkg/asm"
	"go.n2t.dev/sim/pkg/hack"
)

func TestLowerCInstructionCarriesDestAndJumpTogether(t *testing.T) {
	lowerer := asm.NewLowerer(asm.Program{
		asm.CInstruction{Dest: "D", Comp: "D-1", Jump: "JGT"},
	})

	program, _, err := lowerer.Lower()
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	inst, ok := program[0].(hack.CInstruction)
	if !ok {
		t.Fatalf("expected a hack.CInstruction, got %T", program[0])
	}
	if inst.Dest != "D" || inst.Comp != "D-1" || inst.Jump != "JGT" {
		t.Fatalf("expected Dest=D Comp=D-1 Jump=JGT, got %+v", inst)
	}
}

func TestLowerCInstructionRejectsMissingComp(t *testing.T) {
	lowerer := asm.NewLowerer(asm.Program{
		asm.CInstruction{Dest: "D", Jump: "JGT"},
	})

	if _, _, err := lowerer.Lower(); err == nil {
		t.Fatal("expected an error for a C Instruction missing 'Comp'")
	}
}

func TestLowerAInstructionClassifiesLocation(t *testing.T) {
	lowerer := asm.NewLowerer(asm.Program{
		asm.AInstruction{Location: "SP"},
		asm.AInstruction{Location: "42"},
		asm.AInstruction{Location: "LOOP"},
	})

	program, _, err := lowerer.Lower()
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	cases := []hack.LocationType{hack.BuiltIn, hack.Raw, hack.Label}
	for i, want := range cases {
		inst, ok := program[i].(hack.AInstruction)
		if !ok {
			t.Fatalf("instruction %d: expected hack.AInstruction, got %T", i, program[i])
		}
		if inst.LocType != want {
			t.Fatalf("instruction %d: LocType = %v, want %v", i, inst.LocType, want)
		}
	}
}

func TestLowerLabelDeclRecordsAddressWithoutEmittingInstruction(t *testing.T) {
	lowerer := asm.NewLowerer(asm.Program{
		asm.AInstruction{Location: "0"},
		asm.LabelDecl{Name: "LOOP"},
		asm.AInstruction{Location: "1"},
	})

	program, table, err := lowerer.Lower()
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if len(program) != 2 {
		t.Fatalf("expected label declarations to not emit instructions, got %d instructions", len(program))
	}
	if table["LOOP"] != 1 {
		t.Fatalf("LOOP resolved to address %d, want 1", table["LOOP"])
	}
}
