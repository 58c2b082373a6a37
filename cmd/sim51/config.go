package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config defines program configuration.
type Config struct {
	LogLevel    string // Minimum level of log output.
	LogFile     string // Log destination. Empty means stderr.
	Cycles      uint64 // Stop after this many machine cycles. 0 means no limit.
	Trace       bool   // Print instruction trace data?
	Breakpoints []int  // Program addresses at which execution pauses.
	Snapshot    string // File receiving the final machine state as YAML.
	Watch       bool   // Reload the program when its file changes?
}

// newViper creates the configuration registry. Settings are read, in
// increasing order of precedence, from defaults, the sim51.yaml config
// file, SIM51_* environment variables and command line flags.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(AppName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, AppName))
	}

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("run.cycles", 0)
	return v
}

// bindFlags connects configuration keys to the named flags.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(errors.Wrapf(err, "bind flag %q", name))
		}
	}
}

// readConfig loads the configuration file and resolves all settings.
// A missing default config file is not an error; a missing explicit one is.
func readConfig(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	c := &Config{
		LogLevel: v.GetString("log.level"),
		LogFile:  v.GetString("log.file"),
		Cycles:   v.GetUint64("run.cycles"),
		Trace:    v.GetBool("run.trace"),
		Snapshot: v.GetString("run.snapshot"),
		Watch:    v.GetBool("run.watch"),
	}

	for _, s := range v.GetStringSlice("run.breakpoints") {
		addr, err := parseNumber(s)
		if err != nil {
			return nil, errors.Wrap(err, "breakpoint")
		}
		c.Breakpoints = append(c.Breakpoints, addr)
	}

	return c, nil
}

// newLogger creates the application logger. The returned closer releases
// the log file. It is nil when logging to stderr.
func newLogger(c *Config) (hclog.Logger, io.Closer) {
	var out io.Writer = os.Stderr
	var closer io.Closer

	if c.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   c.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		out, closer = lj, lj
	}

	level := hclog.LevelFromString(c.LogLevel)
	if level == hclog.NoLevel {
		level = hclog.Info
	}

	log := hclog.New(&hclog.LoggerOptions{
		Name:   AppName,
		Output: out,
		Level:  level,
	})
	return log, closer
}
