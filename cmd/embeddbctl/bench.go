package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/embeddb/embeddb-go/embeddb"
)

func newBenchCmd(f *storeFlags) *cobra.Command {
	var numRecords int
	var lookups int
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time a sequential load followed by random lookups",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := f.open(true)
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			data := make([]byte, f.dataSize)

			start := time.Now()
			for i := 0; i < numRecords; i++ {
				key := make([]byte, f.keySize)
				embeddb.PutUint64Key(key, uint64(i))
				embeddb.PutUint64Key(data, uint64(i))
				if err := db.Put(key, data); err != nil {
					return fmt.Errorf("bench: put %d: %w", i, err)
				}
			}
			if err := db.Flush(); err != nil {
				return fmt.Errorf("bench: flush: %w", err)
			}
			loadElapsed := time.Since(start)
			fmt.Fprintf(out, "loaded %d records in %s (%.0f rec/s)\n", numRecords, loadElapsed, float64(numRecords)/loadElapsed.Seconds())

			if lookups > 0 && numRecords > 0 {
				rng := rand.New(rand.NewSource(1))
				key := make([]byte, f.keySize)
				start = time.Now()
				for i := 0; i < lookups; i++ {
					embeddb.PutUint64Key(key, uint64(rng.Intn(numRecords)))
					if _, err := db.Get(key); err != nil {
						return fmt.Errorf("bench: get: %w", err)
					}
				}
				lookupElapsed := time.Since(start)
				fmt.Fprintf(out, "ran %d lookups in %s (%.0f lookups/s)\n", lookups, lookupElapsed, float64(lookups)/lookupElapsed.Seconds())
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&numRecords, "records", 10000, "number of sequential records to load")
	cmd.Flags().IntVar(&lookups, "lookups", 1000, "number of random-key lookups to run after loading")
	return cmd
}
