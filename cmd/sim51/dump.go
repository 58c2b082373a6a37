package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDumpCmd(app *App) *cobra.Command {
	var normalize bool

	cmd := &cobra.Command{
		Use:   "dump <file.hex>",
		Short: "Print the records and data of a HEX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadFile(args[0])
			if err != nil {
				return err
			}

			if normalize {
				return f.Save(app.out)
			}

			fmt.Fprint(app.out, f.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&normalize, "hex", false, "Re-encode the file as HEX with recomputed checksums.")
	return cmd
}
