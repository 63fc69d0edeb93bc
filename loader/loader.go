// Package loader fills a memory image from a flat binary or a line-oriented
// hex text file, grounded in original_source/src/main.c's read_hex_value
// loop. It writes only through the narrow vm.ByteWriter interface, so it
// composes with any vm.Bus or any other byte sink without needing a CPU.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/TimmyTango/tango-vm/vm"
)

// LoadBinary writes the bytes read from r into dst starting at origin,
// matching the flat-binary format described in SPEC_FULL.md §4.6.
func LoadBinary(r io.Reader, dst vm.ByteWriter, origin uint16) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("loader: read binary: %w", err)
	}
	for i, b := range data {
		addr := origin + uint16(i)
		if int(addr) < int(origin) {
			return fmt.Errorf("loader: binary image overflows address space at offset %d", i)
		}
		dst.WriteByte(addr, b)
	}
	return nil
}

// LoadHex parses a line-oriented ASCII hex image: each non-empty line is a
// load address (1-4 hex digits, optional trailing ':') followed by
// whitespace-separated data bytes (1-2 hex digits each). Lines are
// independent and may appear in any order, matching original_source's
// read_hex_value/main loop.
func LoadHex(r io.Reader, dst vm.ByteWriter) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		addrField := strings.TrimSuffix(fields[0], ":")
		addr, err := strconv.ParseUint(addrField, 16, 16)
		if err != nil {
			return fmt.Errorf("loader: line %d: bad address %q: %w", lineNo, fields[0], err)
		}

		for i, tok := range fields[1:] {
			v, err := strconv.ParseUint(tok, 16, 8)
			if err != nil {
				return fmt.Errorf("loader: line %d: bad byte %q: %w", lineNo, tok, err)
			}
			dst.WriteByte(uint16(addr)+uint16(i), byte(v))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("loader: scan hex image: %w", err)
	}
	return nil
}
