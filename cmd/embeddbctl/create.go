package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCreateCmd(f *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Initialize a new store, discarding any existing data",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := f.open(true)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (page size %d, %d data pages)\n", f.path, f.pageSize, f.numDataPages)
			return nil
		},
	}
}
