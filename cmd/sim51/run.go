package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file.hex>",
		Short: "Load and run a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd.Context(), args[0])
		},
	}

	flags := cmd.Flags()
	flags.Uint64P("cycles", "n", 0, "Stop after this many machine cycles. 0 runs until interrupted.")
	flags.BoolP("trace", "t", false, "Print instruction trace data.")
	flags.StringSliceP("break", "b", nil, "Program addresses at which to stop, e.g. 100h,0x200.")
	flags.StringP("snapshot", "s", "", "Write the final machine state to this file as YAML.")
	flags.BoolP("watch", "w", false, "Reload and restart the program when its file changes.")

	bindFlags(app.viper, flags, map[string]string{
		"run.cycles":      "cycles",
		"run.trace":       "trace",
		"run.breakpoints": "break",
		"run.snapshot":    "snapshot",
		"run.watch":       "watch",
	})
	return cmd
}

// run executes the given program file according to the run configuration.
func (a *App) run(ctx context.Context, file string) error {
	c := NewCPUController(a.log, a.out, file)
	c.SetTrace(a.config.Trace)
	for _, addr := range a.config.Breakpoints {
		c.SetBreakpoint(addr, true)
	}

	if err := c.Load(); err != nil {
		return err
	}

	var reload <-chan struct{}
	if a.config.Watch {
		ch, err := watch(ctx, a.log, file)
		if err != nil {
			return err
		}
		reload = ch
	}

	reason, err := c.Run(ctx, a.config.Cycles, reload)

	cpu := c.CPU()
	a.log.Info("stopped", "reason", reason, "pc", cpu.PC(), "cycles", cpu.Cycles())
	fmt.Fprintf(a.out, "stopped (%s) at %04X after %d cycles, %s\n",
		reason, cpu.PC().Int(), cpu.Cycles(), prettyFrequency(c.Frequency()))

	if a.config.Snapshot != "" {
		if serr := c.WriteSnapshot(a.config.Snapshot); serr != nil && err == nil {
			err = serr
		}
	}

	return err
}
