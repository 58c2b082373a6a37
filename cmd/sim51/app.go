package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hexaflex/sim51/ihex"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// App defines application context.
type App struct {
	viper      *viper.Viper // Configuration registry.
	configFile string       // Explicit config file, from --config.
	config     *Config      // Resolved configuration.
	log        hclog.Logger // Application log.
	logCloser  io.Closer    // Log file, if any.
	out        io.Writer    // Destination for command output.
}

// NewApp creates a new application instance writing its output to out.
func NewApp(out io.Writer) *App {
	return &App{
		viper: newViper(),
		log:   hclog.NewNullLogger(),
		out:   out,
	}
}

// init resolves the configuration and creates the logger.
// It runs after flag parsing, before any command.
func (a *App) init() error {
	config, err := readConfig(a.viper, a.configFile)
	if err != nil {
		return err
	}

	a.config = config
	a.log, a.logCloser = newLogger(config)

	if file := a.viper.ConfigFileUsed(); file != "" {
		a.log.Debug("configuration loaded", "file", file)
	}
	return nil
}

// Close releases application resources.
func (a *App) Close() {
	if a.logCloser != nil {
		a.logCloser.Close()
		a.logCloser = nil
	}
}

func newRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           AppName,
		Short:         "MCS-51 microcontroller simulator",
		Version:       Version(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return app.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.configFile, "config", "", "Configuration file. Defaults to ./"+AppName+".yaml.")
	flags.String("log-level", "info", "Log level: trace, debug, info, warn or error.")
	flags.String("log-file", "", "Write the log to this file instead of stderr.")

	bindFlags(app.viper, flags, map[string]string{
		"log.level": "log-level",
		"log.file":  "log-file",
	})

	root.AddCommand(
		newRunCmd(app),
		newDebugCmd(app),
		newDisasmCmd(app),
		newDumpCmd(app),
		newVersionCmd(app),
	)
	return root
}

// loadFile reads the Intel HEX file at the given path.
func loadFile(path string) (*ihex.File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer fd.Close()

	f, err := ihex.Load(fd)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return f, nil
}

// parseNumber parses an integer written in decimal, in C notation
// (0x1f, 0b101, 017) or with the assembler's hex suffix (1Fh).
func parseNumber(s string) (int, error) {
	s = strings.TrimSpace(s)

	base := 0
	if n := len(s); n > 1 && (s[n-1] == 'h' || s[n-1] == 'H') {
		s, base = s[:n-1], 16
	}

	v, err := strconv.ParseInt(s, base, 32)
	if err != nil {
		return 0, errors.Errorf("invalid number %q", s)
	}
	return int(v), nil
}

// prettyFrequency returns a human-readable version of the given clock frequency in herz.
func prettyFrequency(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.2f GHz", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2f MHz", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.2f KHz", v/1e3)
	default:
		return fmt.Sprintf("%.2f Hz", v)
	}
}
