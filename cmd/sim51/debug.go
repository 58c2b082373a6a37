package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/hexaflex/sim51/arch"
	"github.com/hexaflex/sim51/devices/cpu"
	"github.com/k0kubun/pp/v3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	defaultRunCycles = 1000000 // Cycle limit of the shell's run command when none is given.
	maxDumpLength    = 0x10000 // Largest span the mem command prints.
)

func newDebugCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "debug <file.hex>",
		Short: "Load a program into the interactive debugger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCPUController(app.log, app.out, args[0])
			c.SetTrace(app.config.Trace)
			for _, addr := range app.config.Breakpoints {
				c.SetBreakpoint(addr, true)
			}

			if err := c.Load(); err != nil {
				return err
			}

			// An interrupt ends the running command, not the shell.
			newShell(context.WithoutCancel(cmd.Context()), c, app.out).Run()
			return nil
		},
	}
}

// Shell is the interactive debugger. Its commands form a cobra command
// tree which is executed once for every line of input.
type Shell struct {
	ctx  context.Context
	ctl  *CPUController
	out  io.Writer
	root *cobra.Command
}

func newShell(ctx context.Context, ctl *CPUController, out io.Writer) *Shell {
	s := &Shell{ctx: ctx, ctl: ctl, out: out}

	s.root = &cobra.Command{
		Use:           "",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	s.root.CompletionOptions.DisableDefaultCmd = true
	s.root.SetOut(out)
	s.root.SetErr(out)

	s.root.AddCommand(
		s.stepCmd(),
		s.runCmd(),
		s.breakCmd(),
		s.regsCmd(),
		s.snapCmd(),
		s.memCmd(),
		s.setCmd(),
		s.resetCmd(),
		s.reloadCmd(),
		s.traceCmd(),
	)
	return s
}

// Run reads and executes commands until the user quits.
func (s *Shell) Run() {
	fmt.Fprintf(s.out, "%s - type 'help' for commands, 'quit' to exit.\n", Version())

	p := prompt.New(
		s.Exec,
		s.complete,
		prompt.OptionTitle(AppName),
		prompt.OptionLivePrefix(func() (string, bool) {
			return fmt.Sprintf("%04X> ", s.ctl.CPU().PC().Int()), true
		}),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			in = strings.TrimSpace(in)
			return breakline && (in == "quit" || in == "exit")
		}),
	)
	p.Run()
}

// Exec executes a single command line. The command's context is
// cancelled when the shell's context is or an interrupt arrives.
func (s *Shell) Exec(in string) {
	args := strings.Fields(in)
	if len(args) == 0 || args[0] == "quit" || args[0] == "exit" {
		return
	}

	defer resetCommand(s.root)

	ctx, stop := signal.NotifyContext(s.ctx, os.Interrupt)
	defer stop()

	s.root.SetArgs(args)
	if err := s.root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
}

// resetCommand returns all flags in the tree to their defaults and drops
// the command contexts, so nothing leaks from one command line into the next.
func resetCommand(cmd *cobra.Command) {
	cmd.SetContext(nil)
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})

	for _, sub := range cmd.Commands() {
		resetCommand(sub)
	}
}

func (s *Shell) complete(d prompt.Document) []prompt.Suggest {
	args := strings.Fields(d.TextBeforeCursor())
	word := d.GetWordBeforeCursor()

	if len(args) == 0 || (len(args) == 1 && word != "") {
		return s.completeCommands(d)
	}

	cmd, _, err := s.root.Find(args)
	if err != nil || cmd == s.root {
		return []prompt.Suggest{}
	}

	if strings.HasPrefix(word, "-") {
		return completeFlags(cmd, d)
	}

	var suggests []prompt.Suggest
	switch cmd.Name() {
	case "set":
		if len(args) > 2 || (len(args) == 2 && word == "") {
			return suggests
		}
		for _, name := range targetNames() {
			suggests = append(suggests, prompt.Suggest{Text: name})
		}
	case "reset":
		suggests = []prompt.Suggest{
			{Text: "rom", Description: "Clear program memory"},
			{Text: "ram", Description: "Return data memory and registers to power-on state"},
		}
	case "trace":
		suggests = []prompt.Suggest{{Text: "on"}, {Text: "off"}}
	}

	return prompt.FilterHasPrefix(suggests, word, true)
}

func (s *Shell) completeCommands(d prompt.Document) []prompt.Suggest {
	suggests := []prompt.Suggest{
		{Text: "help", Description: "List commands"},
		{Text: "quit", Description: "Leave the debugger"},
	}

	for _, cmd := range s.root.Commands() {
		if cmd.Hidden || cmd.Name() == "help" {
			continue
		}
		suggests = append(suggests, prompt.Suggest{
			Text:        cmd.Name(),
			Description: cmd.Short,
		})
	}

	return prompt.FilterHasPrefix(suggests, d.GetWordBeforeCursor(), true)
}

func completeFlags(cmd *cobra.Command, d prompt.Document) []prompt.Suggest {
	var suggests []prompt.Suggest

	cmd.LocalFlags().VisitAll(func(flag *pflag.Flag) {
		suggests = append(suggests, prompt.Suggest{
			Text:        "--" + flag.Name,
			Description: flag.Usage,
		})

		if flag.Shorthand != "" {
			suggests = append(suggests, prompt.Suggest{
				Text:        "-" + flag.Shorthand,
				Description: flag.Usage,
			})
		}
	})

	return prompt.FilterHasPrefix(suggests, d.GetWordBeforeCursor(), false)
}

// targetNames lists everything the set command can address by name.
func targetNames() []string {
	names := []string{"PC", "DPTR"}
	for i := 0; i < 8; i++ {
		names = append(names, fmt.Sprintf("R%d", i))
	}
	for addr := 0x80; addr < cpu.MemoryCapacity; addr++ {
		if name := arch.RegisterName(addr); name != "" {
			names = append(names, name)
		}
	}
	for _, f := range arch.Flags() {
		names = append(names, f.String())
	}
	return names
}

func (s *Shell) stepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "step [count]",
		Short: "Execute one or more instructions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 1
			if len(args) > 0 {
				var err error
				if n, err = parseNumber(args[0]); err != nil {
					return err
				}
			}

			for i := 0; i < n; i++ {
				if err := s.ctl.Step(); err != nil {
					return err
				}
			}

			s.printNext()
			return nil
		},
	}
}

func (s *Shell) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [cycles]",
		Short: fmt.Sprintf("Run until a breakpoint or the cycle limit (default %d, 0 for none)", defaultRunCycles),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit := defaultRunCycles
			if len(args) > 0 {
				var err error
				if limit, err = parseNumber(args[0]); err != nil {
					return err
				}
				if limit < 0 {
					return errors.Errorf("invalid cycle limit %d", limit)
				}
			}

			reason, err := s.ctl.Run(cmd.Context(), uint64(limit), nil)
			fmt.Fprintf(s.out, "stopped (%s), %s\n", reason, prettyFrequency(s.ctl.Frequency()))
			s.printNext()
			return err
		},
	}
}

func (s *Shell) breakCmd() *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "break [address...]",
		Short: "Set, clear or list breakpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				addr, err := parseNumber(arg)
				if err != nil {
					return err
				}
				s.ctl.SetBreakpoint(addr, !remove)
			}

			for _, addr := range s.ctl.Breakpoints() {
				fmt.Fprintf(s.out, "%04X\n", addr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&remove, "delete", "d", false, "Clear the given breakpoints.")
	return cmd
}

func (s *Shell) regsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regs",
		Short: "Print registers and flags",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			snap := s.ctl.CPU().Snapshot()
			pp.Fprintln(s.out, snap.Registers)
			pp.Fprintln(s.out, snap.Flags)
		},
	}
}

func (s *Shell) snapCmd() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "snap",
		Short: "Print the complete machine state",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			snap := s.ctl.CPU().Snapshot()
			if asYAML {
				return snap.WriteYAML(s.out)
			}
			_, err := pp.Fprintln(s.out, snap)
			return err
		},
	}

	cmd.Flags().BoolVarP(&asYAML, "yaml", "y", false, "Print the state as YAML.")
	return cmd
}

func (s *Shell) memCmd() *cobra.Command {
	var xram, rom bool

	cmd := &cobra.Command{
		Use:   "mem <address> [length]",
		Short: "Dump internal, external or program memory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseNumber(args[0])
			if err != nil {
				return err
			}

			n := 64
			if len(args) > 1 {
				if n, err = parseNumber(args[1]); err != nil {
					return err
				}
				if n < 1 || n > maxDumpLength {
					return errors.Errorf("invalid length %d, want 1-%d", n, maxDumpLength)
				}
			}

			c := s.ctl.CPU()
			read := func(a int) (int, error) { return c.RAM().Peek(a) }
			switch {
			case xram:
				read = c.XRAM().Peek
			case rom:
				read = func(a int) (int, error) {
					var b [1]byte
					err := c.ROM().Read(a, b[:])
					return int(b[0]), err
				}
			}

			data := make([]byte, 0, n)
			for i := 0; i < n; i++ {
				v, err := read(addr + i)
				if err != nil {
					break
				}
				data = append(data, byte(v))
			}

			if len(data) == 0 {
				return errors.Wrapf(cpu.ErrAddressRange, "address %Xh", addr)
			}

			dumpRows(s.out, addr, data)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&xram, "xram", "x", false, "Dump external data memory.")
	cmd.Flags().BoolVarP(&rom, "rom", "r", false, "Dump program memory.")
	return cmd
}

func (s *Shell) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <target> <value>",
		Short: "Write a register, flag, port pin or memory cell",
		Long: `Write a register, flag, port pin or memory cell.

The target is PC, DPTR, R0-R7, a special function register (A, SP, P1, ...),
a flag or pin (C, EA, INT0, T0, ...) or an internal data memory address.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseNumber(args[1])
			if err != nil {
				return err
			}
			return setTarget(s.ctl.CPU(), args[0], v)
		},
	}
}

// setTarget writes v to the named register, flag or address.
func setTarget(c *cpu.CPU, target string, v int) error {
	mem := c.RAM()
	name := strings.ToUpper(target)

	switch {
	case name == "PC":
		c.SetPC(v)
	case name == "DPTR":
		mem.SetDPTR(v)
	case len(name) == 2 && name[0] == 'R' && name[1] >= '0' && name[1] <= '7':
		mem.R(int(name[1] - '0')).Set(v)
	case arch.RegisterIndex(name) >= 0:
		mem.SetU8(arch.RegisterIndex(name), v)
	default:
		if f, ok := arch.FlagIndex(name); ok {
			mem.SetFlag(f, v)
			return nil
		}

		addr, err := parseNumber(target)
		if err != nil {
			return errors.Errorf("unknown target %q", target)
		}
		return mem.Poke(addr, v)
	}

	return nil
}

func (s *Shell) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "reset <rom|ram>",
		Short:     "Clear program memory, or return data memory to its power-on state",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"rom", "ram"},
		Run: func(cmd *cobra.Command, args []string) {
			c := s.ctl.CPU()
			if args[0] == "rom" {
				c.ResetROM()
			} else {
				c.ResetRAM()
			}
			s.printNext()
		},
	}
}

func (s *Shell) reloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload the program from disk and reset",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := s.ctl.Load(); err != nil {
				return err
			}
			s.printNext()
			return nil
		},
	}
}

func (s *Shell) traceCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "trace [on|off]",
		Short:     "Enable, disable or show instruction tracing",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) > 0 {
				s.ctl.SetTrace(args[0] == "on")
			}
			fmt.Fprintf(s.out, "trace %s\n", map[bool]string{true: "on", false: "off"}[s.ctl.Trace()])
		},
	}
}

// printNext prints the instruction at the program counter.
func (s *Shell) printNext() {
	snap := s.ctl.CPU().Snapshot()
	next := snap.Next
	if next == "" {
		next = "(undefined)"
	}
	fmt.Fprintf(s.out, "%04X  %s\n", snap.PC, next)
}

// dumpRows writes data as rows of 16 hex bytes, each prefixed with its address.
func dumpRows(w io.Writer, base int, data []byte) {
	for i := 0; i < len(data); i += 16 {
		row := data[i:]
		if len(row) > 16 {
			row = row[:16]
		}

		var sb strings.Builder
		for j, b := range row {
			if j == 8 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, " %02X", b)
		}
		fmt.Fprintf(w, "%04X %s\n", base+i, sb.String())
	}
}
