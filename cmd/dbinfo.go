// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"strings"

	"impyla/cli/internal/config"
	"impyla/cli/internal/dsn"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// dbinfoCmd shows the workspace connection with the password masked.
var dbinfoCmd = &cobra.Command{
	Use:   "dbinfo",
	Short: "Show the configured Impala connection",
	Long: `The dbinfo command displays the connection configured in the workspace's
.impyla.yml as an impala:// URL, with the password masked. ${VAR} references
are shown resolved.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context(), appOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		cfg, err := app.store.Load()
		if err != nil {
			pterm.Println("❌ " + app.store.Path() + " is invalid")
			pterm.Println("   " + err.Error())
			return err
		}
		if cfg == nil {
			pterm.Println("⚠️  No " + config.FileName + " found in " + app.store.Root())
			pterm.Println("   Please run: impyla init")
			return nil
		}

		body := []string{
			dsn.FromConnection(cfg.Connection),
			"",
			fmt.Sprintf("auth:     %s", cfg.Connection.AuthMechanism),
			fmt.Sprintf("timeout:  %ds", cfg.Connection.Timeout),
			fmt.Sprintf("max rows: %d", cfg.Extension.MaxRows),
		}
		if len(cfg.Jinja.PluginPaths) > 0 {
			body = append(body, "plugins:  "+strings.Join(cfg.Jinja.PluginPaths, ", "))
		}
		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Impala Connection")).
			WithTopPadding(1).WithBottomPadding(1).WithLeftPadding(1).WithRightPadding(1).
			Println(strings.Join(body, "\n"))
		pterm.Println()
		pterm.Println("From " + app.store.Path() + ". To change it, run: impyla init")
		pterm.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbinfoCmd)
}
