// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"

	"impyla/cli/internal/errors"
	"impyla/cli/internal/impala"
	"impyla/cli/internal/logging"
	"impyla/cli/internal/results"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	execLines string
	execServe bool
	execQuiet bool
)

// execCmd runs a SQL file (or stdin) against Impala.
var execCmd = &cobra.Command{
	Use:   "exec [file|-]",
	Short: "Execute SQL (rendering Jinja templates first) against Impala",
	Long: `The exec command runs the SQL in the given file, or stdin, against the Impala
server configured in .impyla.yml. With --lines only that part of the file runs.

SQL containing {{ }}, {% %} or {# #} is rendered as a Jinja template first.
The results are printed as a table and written to an HTML results page; with
--serve they are also published on a local preview server until Ctrl-C.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		doc, err := readDocument(args, execLines)
		if err != nil {
			return err
		}

		app, err := newApp(ctx, appOptions{serve: execServe})
		if err != nil {
			return err
		}
		defer app.Close()

		res, err := app.session.ExecuteQuery(ctx, doc)
		if err != nil {
			explainFailure(err)
			return err
		}
		if !execQuiet {
			printResult(res)
		}
		pterm.Println(pterm.Gray("Results page: " + app.file.Path))

		if execServe {
			return waitForInterrupt(ctx, app)
		}
		return nil
	},
}

// explainFailure prints what to do about a failed query.
func explainFailure(err error) {
	switch kind := errors.KindOf(err); kind {
	case errors.ConnectionError, errors.SQLSyntaxError, errors.ImpalaError, errors.InvalidConfig, errors.MissingDependency:
		pterm.Println()
		pterm.Println(logging.FormatQueryError(kind, err.Error()))
	}
}

func printResult(res *impala.Result) {
	if len(res.Columns) == 0 {
		return
	}
	data := make([][]string, 0, len(res.Rows)+1)
	data = append(data, res.Columns)
	for _, row := range res.Rows {
		line := make([]string, len(row))
		for i, v := range row {
			line[i] = results.FormatCell(v).Text
		}
		data = append(data, line)
	}
	_ = pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render()
}

func waitForInterrupt(ctx context.Context, app *app) error {
	app.term.Info("Serving results at " + app.preview.URL() + " (Ctrl-C to stop)")
	<-ctx.Done()
	return nil
}

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().StringVarP(&execLines, "lines", "l", "", "Only execute these lines, e.g. 10:24")
	execCmd.Flags().BoolVar(&execServe, "serve", false, "Publish results on a local preview server")
	execCmd.Flags().BoolVarP(&execQuiet, "quiet", "q", false, "Do not print the result table")
}
