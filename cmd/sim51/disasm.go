package main

import (
	"fmt"

	"github.com/hexaflex/sim51/disasm"
	"github.com/spf13/cobra"
)

func newDisasmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <file.hex>",
		Short: "Print a listing of the instructions in a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadFile(args[0])
			if err != nil {
				return err
			}

			// Whatever decoded before a failure is still listed.
			entries, err := disasm.Disassemble(f)
			for _, e := range entries {
				fmt.Fprintln(app.out, e)
			}
			return err
		},
	}
}
