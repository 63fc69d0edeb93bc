// Command tangovm runs a tango-vm program: load a binary or hex image into
// the game-console system and drive the CPU's stepping loop until it halts
// or the host quits.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/TimmyTango/tango-vm/console"
	"github.com/TimmyTango/tango-vm/debugger"
	"github.com/TimmyTango/tango-vm/host"
	"github.com/TimmyTango/tango-vm/loader"
	"github.com/TimmyTango/tango-vm/vm"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: tangovm [-debug] <binary-or-hex-file>")
		return 1
	}

	debug := false
	path := args[0]
	if args[0] == "-debug" {
		debug = true
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: tangovm [-debug] <binary-or-hex-file>")
			return 1
		}
		path = args[1]
	}

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tangovm:", err)
		return 1
	}
	defer f.Close()

	sys := console.New(host.Null{})

	if strings.EqualFold(filepath.Ext(path), ".hex") {
		err = loader.LoadHex(f, sys)
	} else {
		err = loader.LoadBinary(f, sys, vm.ResetVector)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "tangovm:", err)
		return 1
	}

	cpu := vm.NewCPU(sys)
	cpu.Init()
	cpu.Debug = debug

	if debug {
		if err := debugger.Run(cpu); err != nil {
			fmt.Fprintln(os.Stderr, "tangovm:", err)
			return 1
		}
		return 0
	}

	if err := cpu.Run(vm.RealClock{}); err != nil {
		fmt.Fprintln(os.Stderr, "tangovm:", err)
		return 1
	}
	return 0
}
