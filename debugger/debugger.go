// Package debugger provides an interactive single-step TUI over a running
// vm.CPU, in the style of a bubbletea-based 6502 debugger from the example
// pack: a memory page table plus a register/flag panel, advanced one
// instruction at a time by the spacebar.
package debugger

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/TimmyTango/tango-vm/vm"
)

type model struct {
	cpu    *vm.CPU
	prevPC uint16
	err    error
	quit   bool
}

// Run starts the interactive debugger over cpu, which must already be
// initialized (vm.CPU.Init) with its program loaded into the backing
// System. Each space or 'j' keypress advances one instruction; 'q' quits.
// It reads memory only through cpu.Bus.Fetch, never bypassing the CPU's own
// bus boundary.
func Run(cpu *vm.CPU) error {
	p := tea.NewProgram(model{cpu: cpu})
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("debugger: %w", err)
	}
	if m, ok := finalModel.(model); ok && m.err != nil {
		return m.err
	}
	return nil
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quit = true
			return m, tea.Quit
		case " ", "j":
			m.prevPC = m.cpu.PC()
			if err := m.cpu.Step(); err != nil {
				// Stepping past end is a clean halt, not a failure.
				if err != vm.ErrHalted {
					m.err = err
				}
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m model) renderPage(start uint16) string {
	s := fmt.Sprintf("%04x | ", start)
	for i := uint16(0); i < 16; i++ {
		addr := start + i
		b := m.cpu.Bus.Fetch(addr)
		if addr == m.cpu.PC() {
			s += fmt.Sprintf("[%02x] ", b)
		} else {
			s += fmt.Sprintf(" %02x  ", b)
		}
	}
	return s
}

func (m model) pageTable() string {
	header := "addr | "
	for b := 0; b < 16; b++ {
		header += fmt.Sprintf("  %01x  ", b)
	}
	lines := []string{header}

	pageStart := m.cpu.PC() &^ 0x0F
	for row := -2; row <= 2; row++ {
		addr := int(pageStart) + row*16
		if addr < 0 || addr > 0xFFF0 {
			continue
		}
		lines = append(lines, m.renderPage(uint16(addr)))
	}
	return strings.Join(lines, "\n")
}

func (m model) status() string {
	flagBit := func(set bool, letter string) string {
		if set {
			return letter
		}
		return "_"
	}
	return fmt.Sprintf(`
 PC: $%04X (was $%04X)
  X: $%04X
  Y: $%04X
 AS: $%02X
 DS: $%02X
 ST: $%02X  Z=%s N=%s C=%s
`,
		m.cpu.PC(), m.prevPC,
		m.cpu.X(), m.cpu.Y(),
		m.cpu.AS(), m.cpu.DS(),
		m.cpu.Status(),
		flagBit(m.cpu.Flag(vm.FlagZero), "Z"),
		flagBit(m.cpu.Flag(vm.FlagNeg), "N"),
		flagBit(m.cpu.Flag(vm.FlagCarry), "C"),
	)
}

func (m model) registers() string {
	var sb strings.Builder
	for i := byte(0); i < 8; i++ {
		fmt.Fprintf(&sb, " r%d=$%02X", i, m.cpu.GetRegister(i))
	}
	return sb.String()
}

func (m model) View() string {
	if m.quit {
		return ""
	}
	return lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, m.pageTable(), m.status()),
		"",
		m.registers(),
		"",
		"space/j: step    q: quit",
	)
}
