// Command embeddbctl is an operational tool for creating, populating, and
// inspecting an EmbedDB store backed by a raw file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "embeddbctl:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "embeddbctl",
		Short:         "Inspect and exercise an EmbedDB store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := newStoreFlags(root)
	root.AddCommand(
		newCreateCmd(f),
		newPutCmd(f),
		newGetCmd(f),
		newScanCmd(f),
		newStatsCmd(f),
		newBenchCmd(f),
	)
	return root
}
