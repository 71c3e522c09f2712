package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd(f *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Report page-ring and spline-index counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := f.open(false)
			if err != nil {
				return err
			}
			defer db.Close()

			s := db.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "nextDataPageID:\t%d\n", s.NextDataPageID)
			fmt.Fprintf(out, "minDataPageID:\t%d\n", s.MinDataPageID)
			fmt.Fprintf(out, "splinePoints:\t%d\n", s.SplinePoints)
			fmt.Fprintf(out, "maxError:\t%d\n", s.MaxError)
			return nil
		},
	}
}
