// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"os"
	"path/filepath"

	"impyla/cli/internal/config"
	"impyla/cli/internal/impala"
	"impyla/cli/internal/jinja"
	"impyla/cli/internal/keychain"
	"impyla/cli/internal/logging"
	"impyla/cli/internal/python"
	"impyla/cli/internal/results"
	"impyla/cli/internal/scripts"
	"impyla/cli/internal/session"
	"impyla/cli/internal/ui"
)

type appOptions struct {
	// serve publishes results on the local preview server as well.
	serve bool
	// notify reports configuration changes (used by long-running commands).
	notify bool
}

// app holds the collaborators shared by all subcommands.
type app struct {
	log       *logging.Output
	term      *ui.Terminal
	store     *config.Store
	probe     *python.Probe
	presenter *results.Presenter
	preview   *results.PreviewServer
	file      *results.FileSurface
	session   *session.Session
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	log, err := logging.OpenOutput(verbose)
	if err != nil {
		log = logging.NewOutput(os.Stderr, verbose)
		log.Warn("diagnostic log unavailable", "error", err.Error())
	}

	root, err := resolveWorkspace()
	if err != nil {
		return nil, err
	}

	term := ui.NewTerminal()
	term.AssumeYes = assumeYes

	storeOpts := []config.Option{config.WithLog(log), config.WithSecrets(keychain.Secrets{})}
	if opts.notify {
		storeOpts = append(storeOpts, config.WithNotifier(session.Notices{Prompter: term}))
	}
	store := config.NewStore(root, storeOpts...)

	probe := python.NewProbe(term, log)
	probe.Override = pythonPath

	paths, err := scripts.Install()
	if err != nil {
		return nil, err
	}

	a := &app{log: log, term: term, store: store, probe: probe}

	a.file, err = results.DefaultFileSurface()
	if err != nil {
		return nil, err
	}
	if opts.serve {
		if err := a.startPreview(ctx); err != nil {
			return nil, err
		}
	}
	a.presenter = results.NewPresenter(func() (results.Surface, error) {
		if a.preview != nil {
			return results.Tee{a.file, a.preview}, nil
		}
		return a.file, nil
	})

	a.session = session.New(session.Options{
		Config:    store,
		Deps:      probe,
		Renderer:  jinja.NewRenderer(paths[scripts.RenderJinja], log),
		Executor:  impala.NewExecutor(paths[scripts.ExecuteQuery], log),
		Presenter: a.presenter,
		Prompter:  term,
		Secrets:   keychain.Secrets{},
		Log:       log,
	})
	log.Debug("impyla started", "version", Version, "workspace", root)
	return a, nil
}

// startPreview starts the preview server on the configured address. The
// browser is opened on the first reveal when extension.auto_preview is on.
func (a *app) startPreview(ctx context.Context) error {
	cfg, _ := a.store.Load()
	if cfg == nil {
		cfg = config.Default()
	}
	a.preview = results.NewPreviewServer(a.log)
	if cfg.Extension.Preview() {
		a.preview.OnReveal = ui.Browse
	}
	if err := a.preview.Start(ctx, cfg.Extension.PreviewAddr); err != nil {
		return err
	}
	a.term.Info("Results preview at " + a.preview.URL())
	return nil
}

func (a *app) Close() {
	_ = a.log.Close()
}

func resolveWorkspace() (string, error) {
	dir := workspaceDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}
	return filepath.Abs(dir)
}
