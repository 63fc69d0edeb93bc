package asm

import (
	"fmt"
	"strings"

	"github.com/TimmyTango/tango-vm/vm"
)

var regName = map[byte]string{
	0x00: "r0", 0x01: "r1", 0x02: "r2", 0x03: "r3",
	0x04: "r4", 0x05: "r5", 0x06: "r6", 0x07: "r7",
	0x08: "st", 0x09: "as", 0x0A: "ds",
	0x0B: "xl", 0x0C: "xh", 0x0D: "yl", 0x0E: "yh",
	0xF0: "x", 0xF1: "y",
}

var fixedMnemonic = map[byte]string{
	vm.OpNop: "nop", vm.OpJmp: "jmp", vm.OpInc: "inc", vm.OpDec: "dec",
	vm.OpClc: "clc", vm.OpSec: "sec", vm.OpNot: "not", vm.OpJsr: "jsr",
	vm.OpRet: "ret", vm.OpBeq: "beq", vm.OpBne: "bne", vm.OpBlt: "blt",
	vm.OpBle: "ble", vm.OpBgt: "bgt", vm.OpBge: "bge",
	vm.OpDbg: "dbg", vm.OpEnd: "end",
}

var regSourceMnemonicByBase = map[byte]string{
	vm.OpMovBase: "mov", vm.OpAddBase: "add", vm.OpAdcBase: "adc",
	vm.OpSubBase: "sub", vm.OpSbbBase: "sbb", vm.OpCmpBase: "cmp",
	vm.OpAndBase: "and", vm.OpOrBase: "or",
}

// Disassemble renders the instruction stream starting at origin in image
// back into assembler source text, one instruction per line with an
// explicit .org so re-assembling reproduces the same addresses. It stops
// after an end instruction or at the end of image, and returns a
// *vm.DecodeError at the first undefined opcode.
//
// Exists chiefly so Assemble(Disassemble(b)) == b can be exercised directly
// against the decode table, per SPEC_FULL.md §4.5's round-trip property.
func Disassemble(image []byte, origin uint16) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, ".org %d\n", origin)

	pos := 0
	read := func() (byte, bool) {
		if pos >= len(image) {
			return 0, false
		}
		b := image[pos]
		pos++
		return b, true
	}

	for pos < len(image) {
		opcode, ok := read()
		if !ok {
			break
		}

		if name, ok := fixedMnemonic[opcode]; ok {
			switch {
			case noOperandMnemonics[name]:
				fmt.Fprintf(&sb, "%s\n", name)
			case addressMnemonics[name]:
				lo, _ := read()
				hi, _ := read()
				fmt.Fprintf(&sb, "%s %d\n", name, uint16(hi)<<8|uint16(lo))
			case singleRegisterMnemonics[name]:
				reg, _ := read()
				fmt.Fprintf(&sb, "%s %s\n", name, regName[reg])
			}
			if name == "end" {
				break
			}
			continue
		}

		mnemonic, isRegSource := regSourceMnemonicByBase[opcode&^vm.ModeMask]
		mode := opcode & vm.ModeMask
		if isRegSource {
			dest, _ := read()
			src, err := disassembleSource(mode, read)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&sb, "%s %s, %s\n", mnemonic, regName[dest], src)
			continue
		}

		if opcode&^vm.ModeMask == vm.OpMovToMemBase {
			lo, _ := read()
			hi, _ := read()
			src, err := disassembleSource(mode, read)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&sb, "mov %d, %s\n", uint16(hi)<<8|uint16(lo), src)
			continue
		}

		if opcode&^vm.ModeMask == vm.OpPshBase {
			src, err := disassembleSource(mode, read)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&sb, "psh %s\n", src)
			continue
		}
		if opcode&^vm.ModeMask == vm.OpPopBase {
			dest, err := disassembleDest(mode, read)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&sb, "pop %s\n", dest)
			continue
		}

		return "", &vm.DecodeError{Addr: uint16(pos - 1), Opcode: opcode}
	}

	return sb.String(), nil
}

func disassembleSource(mode byte, read func() (byte, bool)) (string, error) {
	switch mode {
	case vm.ModeImmediate:
		v, _ := read()
		return fmt.Sprintf("#%d", v), nil
	case vm.ModeRegister:
		reg, _ := read()
		return regName[reg], nil
	case vm.ModeDirect:
		lo, _ := read()
		hi, _ := read()
		return fmt.Sprintf("%d", uint16(hi)<<8|uint16(lo)), nil
	case vm.ModeIndirect:
		sel, _ := read()
		read() // reserved padding
		return fmt.Sprintf("<%s>", regName[sel]), nil
	default:
		return "", fmt.Errorf("asm: unknown addressing mode %d", mode)
	}
}

// disassembleDest renders pop's mode-selected destination: a register,
// a direct memory address, or an indirect pointer through X/Y. Mode 0
// (immediate) is reserved for pop — there's no such thing as popping into
// an immediate — and is reported as a decode error.
func disassembleDest(mode byte, read func() (byte, bool)) (string, error) {
	switch mode {
	case vm.ModeRegister:
		reg, _ := read()
		return regName[reg], nil
	case vm.ModeDirect:
		lo, _ := read()
		hi, _ := read()
		return fmt.Sprintf("%d", uint16(hi)<<8|uint16(lo)), nil
	case vm.ModeIndirect:
		sel, _ := read()
		read() // reserved padding
		return fmt.Sprintf("<%s>", regName[sel]), nil
	default:
		return "", fmt.Errorf("asm: reserved pop addressing mode %d", mode)
	}
}
