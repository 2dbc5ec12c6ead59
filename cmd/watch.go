// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const watchDebounce = 300 * time.Millisecond

var watchLines string

// watchCmd re-runs a SQL file whenever it is saved.
var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Execute a SQL file on every save and serve the results page",
	Long: `The watch command executes the file once, then again every time it is saved.
Results are published on a local preview server that reloads itself; the browser
is opened on the first result unless extension.auto_preview is false.

Changes to .impyla.yml and .env are picked up while watching. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		app, err := newApp(ctx, appOptions{serve: true, notify: true})
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.session.Activate(ctx); err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return app.store.Watch(gctx) })
		g.Go(func() error {
			run := func() {
				doc, err := readDocument([]string{path}, watchLines)
				if err != nil {
					app.term.Error(err.Error())
					return
				}
				if _, err := app.session.ExecuteQuery(gctx, doc); err != nil {
					app.log.Debug("watched execution failed", "file", path, "error", err.Error())
				}
			}
			run()
			return watchFile(gctx, path, run)
		})
		app.term.Info("Watching " + path + " (Ctrl-C to stop)")
		return g.Wait()
	},
}

// watchFile calls onChange after path is written, coalescing bursts of
// events. Editors that save by renaming a temp file over path are handled
// by watching the parent directory.
func watchFile(ctx context.Context, path string, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			timer.Reset(watchDebounce)
		case <-timer.C:
			onChange()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchLines, "lines", "l", "", "Only execute these lines, e.g. 10:24")
}
