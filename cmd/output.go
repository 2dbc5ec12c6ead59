// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"impyla/cli/internal/logging"
	"impyla/cli/internal/xdg"

	"github.com/spf13/cobra"
)

var (
	outputLines    int
	outputPathOnly bool
)

// outputCmd shows the diagnostic log.
var outputCmd = &cobra.Command{
	Use:   "output",
	Short: "Show the diagnostic log",
	Long: `The output command prints the last records of the diagnostic log, which holds
every helper invocation, pip install output and configuration change.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := xdg.StateDir()
		if err != nil {
			return err
		}
		path := filepath.Join(dir, logging.OutputFileName)
		if outputPathOnly {
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		}
		lines, err := logging.Tail(path, outputLines)
		if os.IsNotExist(err) {
			fmt.Fprintln(cmd.ErrOrStderr(), "The diagnostic log is empty")
			return nil
		}
		if err != nil {
			return err
		}
		for _, l := range lines {
			fmt.Fprintln(cmd.OutOrStdout(), l)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(outputCmd)
	outputCmd.Flags().IntVarP(&outputLines, "lines", "n", 50, "Number of records to show")
	outputCmd.Flags().BoolVar(&outputPathOnly, "path", false, "Print the log file path only")
}
