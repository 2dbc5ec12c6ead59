// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"strings"

	"impyla/cli/internal/config"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// depsCmd checks the Python environment used by the helpers.
var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Check the Python interpreter and install impyla and jinja2",
	Long: `The deps command locates Python 3.7+ (--python, extension.python_path, then
python3, python and py on PATH), checks that the impyla and jinja2 packages can
be imported, and offers to pip install the missing ones. Use --yes to install
without asking.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		cfg, _ := app.store.Load()
		if cfg == nil {
			cfg = config.Default()
		}

		interp, err := app.probe.Interpreter(ctx, cfg)
		if err != nil {
			app.term.Error("Python 3.7+ not found. Install Python (https://www.python.org/downloads/) and make sure it is on your PATH.")
			return err
		}
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Python: ") + interp + " (" + app.probe.Version() + ")")

		missing, err := app.probe.Check(ctx, cfg)
		if err != nil {
			return err
		}
		if len(missing) == 0 {
			app.term.Success("impyla and jinja2 are installed")
			return nil
		}
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Missing: ") + strings.Join(missing, ", "))
		return app.probe.OfferInstall(ctx, cfg, missing)
	},
}

func init() {
	rootCmd.AddCommand(depsCmd)
}
