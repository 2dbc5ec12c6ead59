// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for impyla.
// It implements subcommands for running Impala SQL (optionally as Jinja
// templates), creating the workspace configuration, checking the Python
// environment and inspecting the diagnostic log, using the Cobra CLI
// framework.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"impyla/cli/internal/config"
	"impyla/cli/internal/logging"
	"impyla/cli/internal/python"
	"impyla/cli/internal/session"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	showVersion  bool
	workspaceDir string
	verbose      bool
	pythonPath   string
	assumeYes    bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "impyla",
	Short: "Run Impala SQL and Jinja SQL templates from the command line",
	Long: `impyla executes SQL against Apache Impala through a Python helper (impyla).
SQL containing Jinja syntax is rendered first, using the variables and plugins
from the workspace's .impyla.yml. Results are printed as a table and written
to an HTML results page.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			return printVersion(cmd.Context())
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application.
// Errors the user has already been shown are not printed a second time.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !session.IsReported(err) {
			fmt.Fprintln(os.Stderr, logging.PresentError("impyla", err))
		}
		stop()
		os.Exit(1)
	}
}

func printVersion(ctx context.Context) error {
	fmt.Printf("impyla %s\n", Version)

	app, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	cfg, _ := app.store.Load()
	if cfg == nil {
		cfg = config.Default()
	}
	v, err := app.probe.Versions(ctx, cfg)
	if err != nil {
		pterm.Println("python  not found (3.7 or newer is required)")
		return nil
	}
	fmt.Printf("python  %s (%s)\n", v.Python, v.Interpreter)
	for _, pkg := range python.Required {
		ver := v.Packages[pkg.Pip]
		if ver == "" {
			ver = "not installed"
		}
		fmt.Printf("%-7s %s\n", pkg.Pip, ver)
	}
	return nil
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show impyla, Python and helper package versions")
	rootCmd.PersistentFlags().StringVarP(&workspaceDir, "workspace", "w", "", "Workspace directory holding "+config.FileName+" (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Mirror diagnostic log records to stderr")
	rootCmd.PersistentFlags().StringVar(&pythonPath, "python", "", "Python interpreter to use (overrides extension.python_path)")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to every confirmation")
}
