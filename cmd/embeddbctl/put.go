package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPutCmd(f *storeFlags) *cobra.Command {
	var varPayload string
	cmd := &cobra.Command{
		Use:   "put <key> <data>",
		Short: "Append one record, with strictly ascending keys",
		Args:  cobra.ExactArgs(2),
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
			data, err := parseData(args[1], f.dataSize)
			if err != nil {
				return err
			}

			if varPayload != "" {
				if err := db.PutVar(key, data, []byte(varPayload)); err != nil {
					return fmt.Errorf("put: %w", err)
				}
			} else if err := db.Put(key, data); err != nil {
				return fmt.Errorf("put: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&varPayload, "var", "", "variable-length payload to attach to this record")
	return cmd
}
