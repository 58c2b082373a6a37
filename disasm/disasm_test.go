package disasm

import (
	"reflect"
	"strings"
	"testing"

	"github.com/hexaflex/sim51/arch"
	"github.com/hexaflex/sim51/ihex"
	"github.com/pkg/errors"
)

func load(t *testing.T, text string) *ihex.File {
	t.Helper()
	f, err := ihex.Load(strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestDisassemble(t *testing.T) {
	f := load(t, ":03000000020100FA\n:10010000AE00783879307420F37400F2C29674200F\n:00000001FF\n")

	have, err := Disassemble(f)
	if err != nil {
		t.Fatal(err)
	}

	want := []Entry{
		{0, 3, 2, []byte{1, 0}, "LJMP 100h"},
		{256, 2, 174, []byte{0}, "MOV R6, 0h"},
		{258, 2, 120, []byte{56}, "MOV R0, #56"},
		{260, 2, 121, []byte{48}, "MOV R1, #48"},
		{262, 2, 116, []byte{32}, "MOV A, #32"},
		{264, 1, 243, []byte{}, "MOVX @R1, A"},
		{265, 2, 116, []byte{0}, "MOV A, #0"},
		{267, 1, 242, []byte{}, "MOVX @R0, A"},
		{268, 2, 194, []byte{150}, "CLR 96h"},
		{270, 2, 116, []byte{32}, "MOV A, #32"},
	}

	if !reflect.DeepEqual(have, want) {
		t.Fatalf("listing mismatch:\nwant: %v\nhave: %v", want, have)
	}
}

func TestDisassembleSplitArguments(t *testing.T) {
	// LCALL ABCDh with its second argument byte in the next record.
	f := load(t, ":0200100012AB31\n:01001200CD20\n:00000001FF\n")

	have, err := Disassemble(f)
	if err != nil {
		t.Fatal(err)
	}

	if len(have) != 1 {
		t.Fatalf("entry count:\nwant: 1\nhave: %d", len(have))
	}

	e := have[0]
	if e.Address != 0x10 || e.Opcode != 0x12 || e.Mnemonic != "LCALL ABCDh" {
		t.Fatalf("unexpected entry: %v", e)
	}
}

func TestDisassembleMoveDirect(t *testing.T) {
	// 85h encodes the source before the destination; the listing shows
	// the destination first, like every other MOV.
	f := load(t, ":0300000085141E46\n:00000001FF\n")

	have, err := Disassemble(f)
	if err != nil {
		t.Fatal(err)
	}

	want := []Entry{{0, 3, 0x85, []byte{0x14, 0x1e}, "MOV 1Eh, 14h"}}
	if !reflect.DeepEqual(have, want) {
		t.Fatalf("listing mismatch:\nwant: %v\nhave: %v", want, have)
	}
}

func TestDisassembleUndefined(t *testing.T) {
	f := load(t, ":0200000000A559\n:00000001FF\n")

	have, err := Disassemble(f)
	if errors.Cause(err) != arch.ErrUndefined {
		t.Fatalf("want ErrUndefined, have %v", err)
	}
	if len(have) != 1 || have[0].Mnemonic != "NOP" {
		t.Fatalf("entries decoded before the failure: %v", have)
	}
}

func TestDisassembleTruncated(t *testing.T) {
	f := load(t, ":020000000201FB\n:00000001FF\n")

	if _, err := Disassemble(f); errors.Cause(err) != ErrTruncated {
		t.Fatalf("want ErrTruncated, have %v", err)
	}
}
