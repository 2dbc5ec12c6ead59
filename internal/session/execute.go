// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"fmt"
	"strings"

	"impyla/cli/internal/config"
	"impyla/cli/internal/errors"
	"impyla/cli/internal/impala"
	"impyla/cli/internal/jinja"
	"impyla/cli/internal/logging"
	"impyla/cli/internal/results"
)

// ExecuteQuery runs the selection (or the whole document), rendering it
// first when it contains template syntax, and shows the outcome in the
// results panel and as a notification.
//
// The configuration is read once at the start; a reload while the query
// runs does not affect it.
func (s *Session) ExecuteQuery(ctx context.Context, doc Document) (*impala.Result, error) {
	cfg, err := s.requireConfig(ctx)
	if err != nil {
		return nil, err
	}

	sql := doc.Text
	if strings.TrimSpace(doc.Selection) != "" {
		sql = doc.Selection
		s.log.Info("executing selected SQL", "file", doc.Path)
	} else {
		s.log.Info("executing entire document", "file", doc.Path)
	}
	if strings.TrimSpace(sql) == "" {
		s.prompter.Error("No SQL content to execute")
		return nil, reported(errors.New(errors.NoContent, "no SQL content to execute"))
	}

	interp, err := s.readyInterpreter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var rendered *jinja.Result
	if jinja.HasTemplateSyntax(sql) {
		s.log.Info("jinja syntax detected, rendering template")
		rendered, err = s.render(ctx, interp, cfg, sql, doc)
		if err != nil {
			return nil, err
		}
		sql = rendered.SQL
		s.log.Info("template rendered successfully")
	}

	panel, err := s.presenter.Open()
	if err != nil {
		s.log.Warn("results panel unavailable", "error", err.Error())
	}
	if panel != nil {
		s.showPanel(panel.ShowLoading(sql))
	}

	stop := s.prompter.Progress("Executing Impala query")
	res, err := s.executor.Execute(ctx, interp, sql, cfg)
	stop()

	if err != nil {
		if panel != nil {
			s.showPanel(panel.ShowError(string(errors.KindOf(err)), message(err), sql))
		}
		return nil, s.queryFailed(ctx, cfg, err)
	}

	q := results.Query{MaxRows: cfg.Extension.MaxRows}
	if rendered != nil {
		res.RenderedSQL = rendered.SQL
		q.RenderedSQL = rendered.SQL
		q.Plugins = rendered.LoadedPlugins
	}
	if panel != nil {
		s.showPanel(panel.ShowResults(res, q))
	}

	summary := fmt.Sprintf("Query executed successfully: %d rows in %dms", res.RowCount, res.ExecutionTime.Milliseconds())
	if res.HasMore {
		summary += fmt.Sprintf(" (limited to %d rows)", cfg.Extension.MaxRows)
	}
	s.prompter.Success(summary)
	return res, nil
}

// RenderOnly renders the document's template without executing it.
// Without a configuration, template defaults (no variables, no plugins) apply.
func (s *Session) RenderOnly(ctx context.Context, doc Document) (string, error) {
	cfg := s.config.Get()
	if cfg == nil {
		var err error
		if cfg, err = s.config.Load(); err != nil {
			return "", reported(err)
		}
	}
	if cfg == nil {
		cfg = config.Default()
	}

	text := doc.Text
	if strings.TrimSpace(doc.Selection) != "" {
		text = doc.Selection
	}
	if !jinja.HasTemplateSyntax(text) {
		s.prompter.Info("No template syntax found; the SQL is used as is")
		return text, nil
	}

	interp, err := s.readyInterpreter(ctx, cfg)
	if err != nil {
		return "", err
	}
	res, err := s.render(ctx, interp, cfg, text, doc)
	if err != nil {
		return "", err
	}
	return res.SQL, nil
}

// requireConfig returns the configuration snapshot for one command,
// offering to create one when there is none.
func (s *Session) requireConfig(ctx context.Context) (*config.Config, error) {
	if cfg := s.config.Get(); cfg != nil {
		return cfg, nil
	}
	cfg, err := s.config.Load()
	if err != nil {
		s.prompter.Error("Invalid " + config.FileName + ": " + message(err))
		return nil, reported(err)
	}
	if cfg != nil {
		return cfg, nil
	}

	ok, perr := s.prompter.Confirm("No "+config.FileName+" configuration found. Would you like to create one?", false)
	if perr == nil && ok {
		if err := s.CreateConfig(ctx, Defaults{}); err != nil {
			return nil, err
		}
		if cfg = s.config.Get(); cfg != nil {
			return cfg, nil
		}
	}
	msg := "No " + config.FileName + " configuration found in " + s.config.Root()
	s.prompter.Error(msg)
	return nil, reported(errors.New(errors.InvalidConfig, msg))
}

// readyInterpreter finds Python and makes sure the helper packages are
// importable.
func (s *Session) readyInterpreter(ctx context.Context, cfg *config.Config) (string, error) {
	interp, err := s.deps.Interpreter(ctx, cfg)
	if err != nil {
		if errors.Is(err, errors.Cancelled) {
			return "", reported(err)
		}
		s.prompter.Error(message(err))
		return "", reported(err)
	}
	if err := s.deps.EnsureDependencies(ctx, cfg); err != nil {
		switch errors.KindOf(err) {
		case errors.Cancelled:
			s.prompter.Info("Cancelled")
		default:
			s.prompter.Error("Python dependencies not available. Please install impyla and jinja2.")
		}
		return "", reported(err)
	}
	return interp, nil
}

// render runs the template renderer. A missing Python module sends the user
// to the installer and the render is retried once if the install worked.
func (s *Session) render(ctx context.Context, interp string, cfg *config.Config, text string, doc Document) (*jinja.Result, error) {
	baseDir := doc.BaseDir
	if baseDir == "" {
		baseDir = s.config.Root()
	}
	req := jinja.Request{
		Template:    text,
		Variables:   cfg.Jinja.Variables,
		PluginPaths: cfg.Jinja.PluginPaths,
		BaseDir:     baseDir,
	}

	for attempt := 0; ; attempt++ {
		stop := s.prompter.Progress("Rendering Jinja template")
		res, err := s.renderer.Render(ctx, interp, req)
		stop()
		if err == nil {
			return res, nil
		}

		switch errors.KindOf(err) {
		case errors.MissingDependency:
			if attempt > 0 {
				s.prompter.Error("Template error: " + message(err))
				return nil, reported(err)
			}
			if ierr := s.installMissing(ctx, cfg, err); ierr != nil {
				return nil, reported(ierr)
			}
			continue
		case errors.Cancelled:
			s.prompter.Info("Template rendering cancelled")
			return nil, reported(err)
		}

		msg := "Template error: " + message(err)
		var e *errors.E
		if errors.As(err, &e) && e.Line > 0 {
			msg = fmt.Sprintf("Template error at line %d: %s", e.Line, e.Message)
		}
		s.log.Error(msg)
		s.prompter.Error(msg)
		return nil, reported(err)
	}
}

// installMissing routes a MissingDependency error to the installer.
func (s *Session) installMissing(ctx context.Context, cfg *config.Config, err error) error {
	var e *errors.E
	var modules []string
	if errors.As(err, &e) {
		modules = e.Modules
	}
	s.log.Warn("helper reported missing python modules", "modules", strings.Join(modules, ","))
	return s.deps.OfferInstall(ctx, cfg, modules)
}

// queryFailed notifies the user about a failed query.
func (s *Session) queryFailed(ctx context.Context, cfg *config.Config, err error) error {
	msg := message(err)
	switch errors.KindOf(err) {
	case errors.Cancelled:
		s.prompter.Info("Query execution cancelled")
	case errors.MissingDependency:
		if ierr := s.installMissing(ctx, cfg, err); ierr == nil {
			s.prompter.Info("Dependencies installed. Run the query again.")
		}
	case errors.ConnectionError:
		s.prompter.Error("Connection error: " + msg)
		ok, perr := s.prompter.Confirm("Check configuration?", false)
		if perr == nil && ok {
			if oerr := s.prompter.Open(s.config.Path()); oerr != nil {
				s.log.Warn("failed to open configuration", "error", oerr.Error())
			}
		}
	default:
		s.prompter.Error("Query failed: " + msg)
	}
	return reported(err)
}

func (s *Session) showPanel(err error) {
	if err != nil {
		s.log.Warn("failed to update results panel", "error", err.Error())
	}
}

// message returns the user-facing text of err with secrets masked.
func message(err error) string {
	var e *errors.E
	if errors.As(err, &e) {
		if e.Err != nil {
			return logging.Mask(e.Message + ": " + e.Err.Error())
		}
		return logging.Mask(e.Message)
	}
	return logging.Mask(err.Error())
}
