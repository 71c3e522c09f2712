package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/embeddb/embeddb-go/embeddb"
)

func newScanCmd(f *storeFlags) *cobra.Command {
	var minKey, maxKey, minData, maxData string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Walk records in key order, optionally bounded by key and data",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := f.open(false)
			if err != nil {
				return err
			}
			defer db.Close()

			opts, err := scanOpts(f, minKey, maxKey, minData, maxData)
			if err != nil {
				return err
			}

			it := db.NewIterator(opts)
			defer it.Close()

			out := cmd.OutOrStdout()
			n := 0
			for it.Next() {
				fmt.Fprintf(out, "%d\t%d\n", embeddb.KeyToUint64(it.Key()), embeddb.KeyToUint64(it.Value()))
				n++
			}
			fmt.Fprintf(out, "%d records\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&minKey, "min-key", "", "only return records with key >= this value")
	cmd.Flags().StringVar(&maxKey, "max-key", "", "only return records with key <= this value")
	cmd.Flags().StringVar(&minData, "min-data", "", "only return records with data >= this value")
	cmd.Flags().StringVar(&maxData, "max-data", "", "only return records with data <= this value")
	return cmd
}

func scanOpts(f *storeFlags, minKey, maxKey, minData, maxData string) (embeddb.IteratorOptions, error) {
	var opts embeddb.IteratorOptions
	var err error
	if minKey != "" {
		if opts.MinKey, err = parseKey(minKey, f.keySize); err != nil {
			return opts, err
		}
	}
	if maxKey != "" {
		if opts.MaxKey, err = parseKey(maxKey, f.keySize); err != nil {
			return opts, err
		}
	}
	if minData != "" {
		if opts.MinData, err = parseData(minData, f.dataSize); err != nil {
			return opts, err
		}
	}
	if maxData != "" {
		if opts.MaxData, err = parseData(maxData, f.dataSize); err != nil {
			return opts, err
		}
	}
	return opts, nil
}
