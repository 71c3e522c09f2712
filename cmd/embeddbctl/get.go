package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/embeddb/embeddb-go/embeddb"
)

func newGetCmd(f *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Look up one record by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := f.open(false)
			if err != nil {
				return err
			}
			defer db.Close()

			key, err := parseKey(args[0], f.keySize)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			data, stream, err := db.GetVar(key)
			if errors.Is(err, embeddb.ErrVarDataDisabled) {
				data, err = db.Get(key)
				if err != nil {
					return fmt.Errorf("get: %w", err)
				}
				fmt.Fprintf(out, "%d\n", embeddb.KeyToUint64(data))
				return nil
			}
			if err != nil {
				return fmt.Errorf("get: %w", err)
			}
			fmt.Fprintf(out, "%d\n", embeddb.KeyToUint64(data))
			if stream != nil {
				payload, err := io.ReadAll(stream)
				if err != nil {
					return fmt.Errorf("get: reading variable payload: %w", err)
				}
				fmt.Fprintf(out, "var: %s\n", payload)
			}
			return nil
		},
	}
}
