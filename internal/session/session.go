// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session wires user commands to the configuration store, the
// Python probe, the template renderer, the query executor and the results
// presenter, and reports every outcome to the user.
package session

import (
	"context"
	stderrors "errors"
	"sync"

	"impyla/cli/internal/config"
	"impyla/cli/internal/impala"
	"impyla/cli/internal/jinja"
	"impyla/cli/internal/logging"
	"impyla/cli/internal/results"
	"impyla/cli/internal/ui"
)

// ConfigSource is the workspace configuration store.
type ConfigSource interface {
	Get() *config.Config
	Load() (*config.Config, error)
	Save(cfg *config.Config) error
	Path() string
	Root() string
	SetRoot(root string)
}

// DependencyChecker locates Python and its packages.
type DependencyChecker interface {
	Interpreter(ctx context.Context, cfg *config.Config) (string, error)
	EnsureDependencies(ctx context.Context, cfg *config.Config) error
	OfferInstall(ctx context.Context, cfg *config.Config, pkgs []string) error
	// Reset forgets cached lookups; the next workspace may name another python_path.
	Reset()
}

// TemplateRenderer renders Jinja templates.
type TemplateRenderer interface {
	Render(ctx context.Context, interpreter string, req jinja.Request) (*jinja.Result, error)
}

// QueryExecutor runs SQL.
type QueryExecutor interface {
	Execute(ctx context.Context, interpreter, sql string, cfg *config.Config) (*impala.Result, error)
}

// SecretStore keeps passwords outside the configuration file.
type SecretStore interface {
	SavePassword(user, host, password string) error
}

// Document is the text a command works on.
type Document struct {
	// Text is the whole document.
	Text string
	// Selection, when not blank, is executed instead of Text.
	Selection string
	// Path is the file the text came from, if any.
	Path string
	// BaseDir resolves relative plugin paths; defaults to the workspace root.
	BaseDir string
}

// Options holds the collaborators of a Session.
type Options struct {
	Config    ConfigSource
	Deps      DependencyChecker
	Renderer  TemplateRenderer
	Executor  QueryExecutor
	Presenter *results.Presenter
	Prompter  ui.Prompter
	Secrets   SecretStore
	Log       *logging.Output
}

// Session is the state of one interactive user session.
type Session struct {
	config    ConfigSource
	deps      DependencyChecker
	renderer  TemplateRenderer
	executor  QueryExecutor
	presenter *results.Presenter
	prompter  ui.Prompter
	secrets   SecretStore
	log       *logging.Output

	mu sync.Mutex
	// configPromptShown limits the "create a configuration?" offer made
	// on activation to once per workspace.
	configPromptShown bool
}

// New creates a session.
func New(opts Options) *Session {
	if opts.Log == nil {
		opts.Log = logging.Discard()
	}
	return &Session{
		config:    opts.Config,
		deps:      opts.Deps,
		renderer:  opts.Renderer,
		executor:  opts.Executor,
		presenter: opts.Presenter,
		prompter:  opts.Prompter,
		secrets:   opts.Secrets,
		log:       opts.Log,
	}
}

// SetWorkspace switches to another workspace root.
func (s *Session) SetWorkspace(root string) {
	s.mu.Lock()
	s.configPromptShown = false
	s.mu.Unlock()
	s.config.SetRoot(root)
	if s.deps != nil {
		s.deps.Reset()
	}
	s.log.Info("workspace changed, reloading configuration", "root", root)
	if _, err := s.config.Load(); err != nil {
		s.log.Warn("configuration reload failed", "error", err.Error())
	}
}

// Activate loads the configuration, checks for Python, and offers the
// configuration wizard once per workspace when no configuration exists.
func (s *Session) Activate(ctx context.Context) error {
	cfg, err := s.config.Load()
	if err != nil {
		return reported(err)
	}

	if interp, err := s.deps.Interpreter(ctx, cfg); err != nil {
		s.log.Error("python not found", "error", err.Error())
		s.prompter.Error("Python 3.7+ not found. Install Python (https://www.python.org/downloads/) and make sure it is on your PATH.")
	} else {
		s.log.Info("python found", "path", interp)
	}

	if cfg != nil {
		return nil
	}
	s.log.Info("no configuration found", "path", s.config.Path())
	if !s.claimConfigPrompt() {
		return nil
	}
	ok, err := s.prompter.Confirm("No "+config.FileName+" found. Create configuration?", false)
	if err != nil || !ok {
		return err
	}
	return s.CreateConfig(ctx, Defaults{})
}

func (s *Session) claimConfigPrompt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.configPromptShown {
		return false
	}
	s.configPromptShown = true
	return true
}

// reportedError marks an error the user has already been told about.
type reportedError struct{ error }

func (r reportedError) Unwrap() error { return r.error }

func reported(err error) error {
	if err == nil || IsReported(err) {
		return err
	}
	return reportedError{err}
}

// Reported marks err as already shown to the user.
func Reported(err error) error { return reported(err) }

// IsReported reports whether err was already shown to the user.
func IsReported(err error) bool {
	var r reportedError
	return stderrors.As(err, &r)
}
