package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hexaflex/sim51/devices/cpu"
	"github.com/pkg/errors"
)

// Known reasons for Run to return.
const (
	StopLimit      = "cycle limit"
	StopBreakpoint = "breakpoint"
	StopCancelled  = "cancelled"
	StopError      = "error"
)

// CPUController controls the execution of a CPU.
type CPUController struct {
	cpu         *cpu.CPU
	log         hclog.Logger
	out         io.Writer    // Destination for trace output.
	program     string       // Path to the HEX file.
	breakpoints map[int]bool // Program addresses at which Run stops.
	trace       bool         // Print instruction trace data?
	start       time.Time
	startCycles uint64
	running     bool
}

// NewCPUController creates a new CPU controller for the given program file.
func NewCPUController(log hclog.Logger, out io.Writer, program string) *CPUController {
	c := &CPUController{
		log:         log,
		out:         out,
		program:     program,
		breakpoints: make(map[int]bool),
	}
	c.cpu = cpu.New(log.Named("cpu"), c.printTrace)
	return c
}

// CPU returns the controlled microcontroller.
func (c *CPUController) CPU() *cpu.CPU {
	return c.cpu
}

// Load (re)loads the program from disk and resets the cpu.
// Program memory is left untouched if the file can not be decoded or
// does not fit.
func (c *CPUController) Load() error {
	f, err := loadFile(c.program)
	if err != nil {
		return err
	}

	if err := cpu.CheckImage(f); err != nil {
		return errors.Wrapf(err, "load %s", c.program)
	}

	c.cpu.ResetROM()
	if err := c.cpu.LoadImage(f); err != nil {
		return errors.Wrapf(err, "load %s", c.program)
	}

	c.cpu.ResetRAM()
	c.log.Info("program loaded", "file", c.program, "records", len(f.Records))
	return nil
}

// Trace returns true if instruction tracing is enabled.
func (c *CPUController) Trace() bool {
	return c.trace
}

// SetTrace enables or disables instruction tracing.
func (c *CPUController) SetTrace(v bool) {
	c.trace = v
}

// SetBreakpoint sets or clears the breakpoint at addr.
func (c *CPUController) SetBreakpoint(addr int, v bool) {
	if v {
		c.breakpoints[addr&0xffff] = true
	} else {
		delete(c.breakpoints, addr&0xffff)
	}
}

// Breakpoints returns all breakpoint addresses in ascending order.
func (c *CPUController) Breakpoints() []int {
	out := make([]int, 0, len(c.breakpoints))
	for addr := range c.breakpoints {
		out = append(out, addr)
	}
	sort.Ints(out)
	return out
}

// Running returns true if the CPU is currently running.
func (c *CPUController) Running() bool {
	return c.running
}

// Frequency returns the clock frequency of the current or last run in
// machine cycles per second.
func (c *CPUController) Frequency() float64 {
	elapsed := time.Since(c.start).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(c.cpu.Cycles()-c.startCycles) / elapsed
}

// Step performs a single execution step.
func (c *CPUController) Step() error {
	return c.cpu.Step()
}

// Run executes the program until ctx is cancelled, an error occurs, limit
// machine cycles have passed or the program counter reaches a breakpoint.
// A limit of 0 means no limit. The instruction at the starting address is
// executed even if it carries a breakpoint.
//
// A value received on reload reloads the program from disk and restarts it.
func (c *CPUController) Run(ctx context.Context, limit uint64, reload <-chan struct{}) (string, error) {
	c.setRunning(true)
	defer c.setRunning(false)

	end := c.cpu.Cycles() + limit
	started := false

	for {
		if started && c.breakpoints[c.cpu.PC().Int()] {
			return StopBreakpoint, nil
		}

		if limit > 0 && c.cpu.Cycles() >= end {
			return StopLimit, nil
		}

		select {
		case <-ctx.Done():
			return StopCancelled, nil
		case <-reload:
			if err := c.Load(); err != nil {
				c.log.Error("reload failed", "error", err)
				continue
			}
			started = false
			end = c.cpu.Cycles() + limit
			continue
		default:
		}

		if err := c.cpu.Step(); err != nil {
			return StopError, err
		}
		started = true
	}
}

// WriteSnapshot writes the current machine state to the given file as YAML.
func (c *CPUController) WriteSnapshot(path string) error {
	fd, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := c.cpu.Snapshot().WriteYAML(fd); err != nil {
		fd.Close()
		return err
	}
	return fd.Close()
}

// printTrace prints instruction trace data, if enabled.
func (c *CPUController) printTrace(i *cpu.Instruction) {
	if !c.trace {
		return
	}

	code := fmt.Sprintf("%02X", i.Opcode)
	for _, b := range i.Args {
		code += fmt.Sprintf(" %02X", b)
	}

	fmt.Fprintf(c.out, "%04X  %-8s  %s\n", i.IP, code, i.String())
}

// setRunning determines of the CPU is running or is paused.
func (c *CPUController) setRunning(v bool) {
	c.running = v
	if v {
		c.start = time.Now()
		c.startCycles = c.cpu.Cycles()
	}
}
