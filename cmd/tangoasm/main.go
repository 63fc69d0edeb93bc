// Command tangoasm assembles a tango-vm source file and writes the
// resulting hex image to stdout, one "addr: bytes" line per contiguous run
// of emitted bytes.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/TimmyTango/tango-vm/asm"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: tangoasm <source-file>")
		return 1
	}

	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "tangoasm:", err)
		return 1
	}

	image, err := asm.Assemble(string(src))
	if err != nil {
		fmt.Fprintln(os.Stderr, "tangoasm:", err)
		return 1
	}

	writeHex(os.Stdout, image)
	return 0
}

func writeHex(w *os.File, image map[uint16]byte) {
	addrs := make([]uint16, 0, len(image))
	for addr := range image {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	i := 0
	for i < len(addrs) {
		start := addrs[i]
		fmt.Fprintf(w, "%04X:", start)
		j := i
		for j < len(addrs) && addrs[j] == start+uint16(j-i) {
			fmt.Fprintf(w, " %02X", image[addrs[j]])
			j++
		}
		fmt.Fprintln(w)
		i = j
	}
}
