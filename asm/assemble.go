package asm

import (
	"fmt"
	"strings"

	"github.com/TimmyTango/tango-vm/vm"
)

// regSourceBase maps each register-dest/mode-source mnemonic to its opcode
// family base; fixedOpcode below covers everything else. Together they are
// the assembler's half of the table vm/decode.go decodes against.
var regSourceBase = map[string]byte{
	"mov": vm.OpMovBase,
	"add": vm.OpAddBase,
	"adc": vm.OpAdcBase,
	"sub": vm.OpSubBase,
	"sbb": vm.OpSbbBase,
	"cmp": vm.OpCmpBase,
	"and": vm.OpAndBase,
	"or":  vm.OpOrBase,
}

var fixedOpcode = map[string]byte{
	"nop": vm.OpNop,
	"jmp": vm.OpJmp,
	"inc": vm.OpInc,
	"dec": vm.OpDec,
	"clc": vm.OpClc,
	"sec": vm.OpSec,
	"not": vm.OpNot,
	"jsr": vm.OpJsr,
	"ret": vm.OpRet,
	"beq": vm.OpBeq,
	"bne": vm.OpBne,
	"blt": vm.OpBlt,
	"ble": vm.OpBle,
	"bgt": vm.OpBgt,
	"bge": vm.OpBge,
	"psh": vm.OpPshBase, // mode folded in separately; base only for non-family lookups
	"pop": vm.OpPopBase,
	"dbg": vm.OpDbg,
	"end": vm.OpEnd,
}

// defaultOrigin is the emission address used until a .org directive sets
// one, matching the CPU's reset vector so a program with no explicit .org
// still lands where Init() expects it.
const defaultOrigin = vm.ResetVector

// Error is one assembler diagnostic, carrying the source line it came from.
type Error struct {
	Line    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// instr is one parsed statement awaiting operand resolution in the second
// pass, once every label's address is known.
type instr struct {
	addr     uint16
	mnemonic string
	operands []Token
	line     int
}

// Assemble runs the scanner and both compiler passes over src and returns
// the resulting byte image keyed by address, or a non-nil error if any
// line failed to parse. Per spec §7, a non-nil error means the returned
// image must not be used.
func Assemble(src string) (map[uint16]byte, error) {
	lines := splitLines(NewScanner(src).Tokens())

	origin := uint16(defaultOrigin)
	pc := origin
	labels := map[string]uint16{}
	var instrs []instr
	var errs []error

	for _, line := range lines {
		for _, t := range line {
			if t.Kind == TokenError {
				errs = append(errs, &Error{Line: t.Line, Message: fmt.Sprintf("unexpected input %q", t.Text)})
			}
		}
		toks := stripBlank(line)
		if len(toks) == 0 {
			continue
		}

		if toks[0].Kind == TokenIdentifier && len(toks) > 1 && toks[1].Kind == TokenColon {
			labels[toks[0].Text] = pc
			toks = toks[2:]
			if len(toks) == 0 {
				continue
			}
		}

		if toks[0].Kind == TokenDirective {
			if toks[0].Text == "org" {
				if len(toks) < 2 || toks[1].Kind != TokenNumber {
					errs = append(errs, &Error{Line: toks[0].Line, Message: ".org requires a numeric address"})
					continue
				}
				origin = uint16(toks[1].Value)
				pc = origin
				continue
			}
			errs = append(errs, &Error{Line: toks[0].Line, Message: fmt.Sprintf("unknown directive .%s", toks[0].Text)})
			continue
		}

		if toks[0].Kind != TokenMnemonic {
			errs = append(errs, &Error{Line: toks[0].Line, Message: fmt.Sprintf("expected mnemonic, got %q", toks[0].Text)})
			continue
		}

		mnemonic := toks[0].Text
		operands := toks[1:]
		size, err := instrSize(mnemonic, operands, toks[0].Line)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		instrs = append(instrs, instr{addr: pc, mnemonic: mnemonic, operands: operands, line: toks[0].Line})
		pc += uint16(size)
	}

	image := map[uint16]byte{}
	for _, ins := range instrs {
		bytes, err := encode(ins, labels)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for i, b := range bytes {
			image[ins.addr+uint16(i)] = b
		}
	}

	if len(errs) > 0 {
		return image, joinErrors(errs)
	}
	return image, nil
}

func splitLines(toks []Token) [][]Token {
	var lines [][]Token
	var cur []Token
	for _, t := range toks {
		if t.Kind == TokenNewline || t.Kind == TokenEOF {
			lines = append(lines, cur)
			cur = nil
			if t.Kind == TokenEOF {
				break
			}
			continue
		}
		cur = append(cur, t)
	}
	if len(cur) > 0 {
		lines = append(lines, cur)
	}
	return lines
}

func stripBlank(line []Token) []Token {
	var out []Token
	for _, t := range line {
		if t.Kind == TokenError {
			continue
		}
		out = append(out, t)
	}
	return out
}

// instrSize reports the on-disk byte size a mnemonic's instruction form
// occupies, needed during the label pass before operands are resolved.
func instrSize(mnemonic string, operands []Token, line int) (int, error) {
	switch {
	case noOperandMnemonics[mnemonic]:
		return 1, nil
	case addressMnemonics[mnemonic]:
		return 3, nil // opcode + 16-bit address
	case singleRegisterMnemonics[mnemonic]:
		return 2, nil // opcode + register byte
	case regSourceMnemonics[mnemonic]:
		mode, err := operandMode(operands, line)
		if err != nil {
			return 0, err
		}
		if operandIsMemoryDest(mnemonic, operands) {
			return 1 + 2 + sourceSize(mode), nil // opcode + 16-bit address + source
		}
		return 2 + sourceSize(mode), nil // opcode + dest reg + source
	case sourceOnlyMnemonics[mnemonic]:
		mode, err := operandMode(operands, line)
		if err != nil {
			return 0, err
		}
		return 1 + sourceSize(mode), nil // opcode + source
	default:
		return 0, &Error{Line: line, Message: fmt.Sprintf("unknown mnemonic %q", mnemonic)}
	}
}

func sourceSize(mode byte) int {
	switch mode {
	case vm.ModeImmediate, vm.ModeRegister:
		return 1
	case vm.ModeDirect, vm.ModeIndirect:
		return 2
	default:
		return 1
	}
}

// operandMode inspects the source operand's leading punctuation to choose
// an addressing mode, per SPEC_FULL.md §4.5. For regSourceMnemonics the
// source operand is the one after the destination (register or memory
// address) and comma; for sourceOnlyMnemonics (psh/pop) it's the only
// operand. <x>/<y> select ModeIndirect, the double-dereference through
// whatever address X or Y currently holds.
func operandMode(operands []Token, line int) (byte, error) {
	src := sourceTokens(operands)
	if len(src) == 0 {
		return 0, &Error{Line: line, Message: "missing operand"}
	}
	switch src[0].Kind {
	case TokenPound:
		return vm.ModeImmediate, nil
	case TokenRegister:
		return vm.ModeRegister, nil
	case TokenLt:
		if len(src) < 3 || src[1].Kind != TokenRegister || src[2].Kind != TokenGt {
			return 0, &Error{Line: line, Message: "expected <x> or <y>"}
		}
		return vm.ModeIndirect, nil
	case TokenDollar, TokenNumber, TokenIdentifier:
		return vm.ModeDirect, nil
	default:
		return 0, &Error{Line: line, Message: fmt.Sprintf("unrecognized operand %q", src[0].Text)}
	}
}

// sourceTokens strips everything up to and including the first comma, so
// operandMode always looks at the operand that follows the destination
// regardless of whether that destination is a register (one token) or a
// memory address (one or more tokens, e.g. "$1234"). Mnemonics with a
// single operand (psh/pop) have no comma, so the whole slice passes through
// unchanged.
func sourceTokens(operands []Token) []Token {
	for i, t := range operands {
		if t.Kind == TokenComma {
			return operands[i+1:]
		}
	}
	return operands
}

// destTokens is sourceTokens' complement: everything before the first
// comma, the destination side of a two-operand instruction.
func destTokens(operands []Token) []Token {
	var out []Token
	for _, t := range operands {
		if t.Kind == TokenComma {
			break
		}
		out = append(out, t)
	}
	return out
}

// operandIsMemoryDest reports whether mnemonic's destination operand names
// a memory address rather than a register, the mov form spec.md §4.3
// describes as "dest is a memory address (2-byte operand)".
func operandIsMemoryDest(mnemonic string, operands []Token) bool {
	if mnemonic != "mov" {
		return false
	}
	dest := destTokens(operands)
	return len(dest) > 0 && dest[0].Kind != TokenRegister
}

// encode emits the final bytes for one parsed instruction, now that every
// label's address is known.
func encode(ins instr, labels map[string]uint16) ([]byte, error) {
	switch {
	case noOperandMnemonics[ins.mnemonic]:
		return []byte{fixedOpcode[ins.mnemonic]}, nil

	case addressMnemonics[ins.mnemonic]:
		addr, err := resolveAddress(ins.operands, labels, ins.line)
		if err != nil {
			return nil, err
		}
		return []byte{fixedOpcode[ins.mnemonic], byte(addr), byte(addr >> 8)}, nil

	case singleRegisterMnemonics[ins.mnemonic]:
		if len(ins.operands) < 1 || ins.operands[0].Kind != TokenRegister {
			return nil, &Error{Line: ins.line, Message: "expected register operand"}
		}
		return []byte{fixedOpcode[ins.mnemonic], registers[ins.operands[0].Text]}, nil

	case regSourceMnemonics[ins.mnemonic]:
		mode, err := operandMode(ins.operands, ins.line)
		if err != nil {
			return nil, err
		}
		src, err := encodeSource(sourceTokens(ins.operands), mode, labels, ins.line)
		if err != nil {
			return nil, err
		}
		if operandIsMemoryDest(ins.mnemonic, ins.operands) {
			addr, err := resolveAddress(destTokens(ins.operands), labels, ins.line)
			if err != nil {
				return nil, err
			}
			return append([]byte{vm.OpMovToMemBase | mode, byte(addr), byte(addr >> 8)}, src...), nil
		}
		if len(ins.operands) < 1 || ins.operands[0].Kind != TokenRegister {
			return nil, &Error{Line: ins.line, Message: "expected destination register"}
		}
		dest := registers[ins.operands[0].Text]
		return append([]byte{regSourceBase[ins.mnemonic] | mode, dest}, src...), nil

	case sourceOnlyMnemonics[ins.mnemonic]:
		mode, err := operandMode(ins.operands, ins.line)
		if err != nil {
			return nil, err
		}
		src, err := encodeSource(ins.operands, mode, labels, ins.line)
		if err != nil {
			return nil, err
		}
		return append([]byte{fixedOpcode[ins.mnemonic] | mode}, src...), nil

	default:
		return nil, &Error{Line: ins.line, Message: fmt.Sprintf("unknown mnemonic %q", ins.mnemonic)}
	}
}

func encodeSource(src []Token, mode byte, labels map[string]uint16, line int) ([]byte, error) {
	if len(src) == 0 {
		return nil, &Error{Line: line, Message: "missing operand"}
	}
	switch mode {
	case vm.ModeImmediate:
		if src[0].Kind != TokenPound || len(src) < 2 || src[1].Kind != TokenNumber {
			return nil, &Error{Line: line, Message: "expected #<number> immediate"}
		}
		return []byte{byte(src[1].Value)}, nil
	case vm.ModeRegister:
		return []byte{registers[src[0].Text]}, nil
	case vm.ModeDirect:
		addr, err := resolveAddress(src, labels, line)
		if err != nil {
			return nil, err
		}
		return []byte{byte(addr), byte(addr >> 8)}, nil
	case vm.ModeIndirect:
		if len(src) < 3 || src[0].Kind != TokenLt || src[1].Kind != TokenRegister || src[2].Kind != TokenGt ||
			(src[1].Text != "x" && src[1].Text != "y") {
			return nil, &Error{Line: line, Message: "expected <x> or <y>"}
		}
		return []byte{registers[src[1].Text], 0x00}, nil
	default:
		return nil, &Error{Line: line, Message: "unknown addressing mode"}
	}
}

// resolveAddress finds the 16-bit address a branch/jump/direct operand
// names, whether written as a bare number, a $-prefixed number, or a label.
func resolveAddress(toks []Token, labels map[string]uint16, line int) (uint16, error) {
	for _, t := range toks {
		switch t.Kind {
		case TokenNumber:
			return uint16(t.Value), nil
		case TokenIdentifier:
			addr, ok := labels[t.Text]
			if !ok {
				return 0, &Error{Line: line, Message: fmt.Sprintf("undefined label %q", t.Text)}
			}
			return addr, nil
		}
	}
	return 0, &Error{Line: line, Message: "expected address operand"}
}

func joinErrors(errs []error) error {
	var sb strings.Builder
	for i, e := range errs {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(e.Error())
	}
	return fmt.Errorf("asm: %s", sb.String())
}
