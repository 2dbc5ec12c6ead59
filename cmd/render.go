// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var renderLines string

// renderCmd prints a rendered template without executing it.
var renderCmd = &cobra.Command{
	Use:   "render [file|-]",
	Short: "Render a Jinja SQL template and print the SQL",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		doc, err := readDocument(args, renderLines)
		if err != nil {
			return err
		}

		app, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		sql, err := app.session.RenderOnly(ctx, doc)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), sql)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVarP(&renderLines, "lines", "l", "", "Only render these lines, e.g. 10:24")
}
