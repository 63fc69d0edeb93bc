package vm

import (
	"errors"
	"fmt"
	"time"
)

// Clock paces the stepping loop. The real implementation sleeps against
// wall-clock time; tests substitute a fake that advances instantly so
// suites don't take real time to run.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// RealClock is the Clock used by cmd/tangovm.
type RealClock struct{}

func (RealClock) Now() time.Time        { return time.Now() }
func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

// framesPerSecond is the target render cadence of the stepping loop,
// independent of ClockSpeed (which governs how many CPU cycles each frame
// budget is allowed to spend).
const framesPerSecond = 60

// Run drives the stepping loop to completion: each iteration polls the
// system for host events, executes CPU cycles up to the per-frame budget
// implied by ClockSpeed, and asks the system to render. It returns nil on a
// clean halt (end instruction) or quit request, and a non-nil error on a
// decode failure.
//
// Mirrors the teacher's RunProgram in spirit — a thin driver around
// execInstructions with error reporting at the boundary — generalized here
// to the poll/cycle/render cadence spec §4.4 and §5 describe.
func (c *CPU) Run(clock Clock) error {
	cyclesPerFrame := c.ClockSpeed / framesPerSecond
	if cyclesPerFrame == 0 {
		cyclesPerFrame = 1
	}
	frameBudget := time.Second / framesPerSecond

	for c.Running {
		frameStart := clock.Now()

		events := c.Bus.PollEvents()
		if events.Quit {
			c.Running = false
			break
		}
		c.StepMode = events.Step

		budget := cyclesPerFrame
		if c.Debug {
			budget = 0
			if events.Step {
				budget = 1 // every Step costs at least one cycle, so exactly one instruction runs
			}
		}

		startCycle := c.Cycle
		for c.Running && c.Cycle-startCycle < budget {
			if err := c.Step(); err != nil {
				var decodeErr *DecodeError
				if errors.As(err, &decodeErr) {
					return fmt.Errorf("vm: run: %w", err)
				}
				if errors.Is(err, ErrHalted) {
					return nil
				}
				return err
			}
		}

		c.Bus.RenderFrame()

		elapsed := clock.Now().Sub(frameStart)
		if elapsed < frameBudget {
			clock.Sleep(frameBudget - elapsed)
		}
	}

	return nil
}
