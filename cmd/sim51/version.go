package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Various version related constants.
const (
	AppVendor  = "hexaflex"
	AppName    = "sim51"
	AppVersion = "v0.3.0"
)

// Version returns program version information.
func Version() string {
	version := AppVersion
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	return fmt.Sprintf("%s %s %s", AppVendor, AppName, version)
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintln(app.out, Version())
		},
	}
}
