// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package jinja renders Jinja2-templated SQL through the render_jinja.py helper.
package jinja

import (
	"context"
	"fmt"
	"strings"
	"time"

	"impyla/cli/internal/errors"
	"impyla/cli/internal/helper"
	"impyla/cli/internal/logging"
)

// Timeout is the wall-clock limit for one render.
const Timeout = 30 * time.Second

// HasTemplateSyntax reports whether text contains a Jinja variable,
// statement or comment opener. It does not parse the template.
func HasTemplateSyntax(text string) bool {
	return strings.Contains(text, "{{") ||
		strings.Contains(text, "{%") ||
		strings.Contains(text, "{#")
}

// Request is sent to the render helper.
type Request struct {
	Template    string         `json:"template"`
	Variables   map[string]any `json:"variables"`
	PluginPaths []string       `json:"plugin_paths"`
	BaseDir     string         `json:"base_dir"`
}

// Response is what the render helper prints.
type Response struct {
	Success       bool     `json:"success"`
	Rendered      string   `json:"rendered,omitempty"`
	LoadedPlugins []string `json:"loaded_plugins,omitempty"`
	Error         string   `json:"error,omitempty"`
	ErrorType     string   `json:"error_type,omitempty"`
	Line          int      `json:"line,omitempty"`
}

// Result is a successful render.
type Result struct {
	SQL           string
	LoadedPlugins []string
}

// Renderer runs the render helper script.
type Renderer struct {
	Script  string
	Timeout time.Duration
	Log     *logging.Output
}

// NewRenderer creates a renderer for the helper at script.
func NewRenderer(script string, log *logging.Output) *Renderer {
	if log == nil {
		log = logging.Discard()
	}
	return &Renderer{Script: script, Timeout: Timeout, Log: log}
}

// Render renders req.Template with interpreter. Failures are TemplateError,
// except a helper reporting MISSING_MODULE, which is MissingDependency.
func (r *Renderer) Render(ctx context.Context, interpreter string, req Request) (*Result, error) {
	if req.Variables == nil {
		req.Variables = map[string]any{}
	}
	if req.PluginPaths == nil {
		req.PluginPaths = []string{}
	}

	call := helper.Call{
		Interpreter: interpreter,
		Args:        []string{r.Script},
		Timeout:     r.Timeout,
	}
	started := time.Now()
	var resp Response
	err := helper.Invoke(ctx, call, req, &resp)
	r.Log.Debug("render helper finished", "elapsed_ms", time.Since(started).Milliseconds())
	if err != nil {
		return nil, r.failure(err)
	}

	if !resp.Success {
		if mods, ok := errors.ParseMissingModules(resp.Error); ok {
			return nil, errors.Missing(mods)
		}
		msg := resp.Error
		if msg == "" {
			msg = "template rendering failed"
		}
		r.Log.Warn("template error", "type", resp.ErrorType, "line", resp.Line, "error", msg)
		return nil, &errors.E{Kind: errors.TemplateError, Message: msg, Line: resp.Line}
	}

	if len(resp.LoadedPlugins) > 0 {
		r.Log.Info("loaded template plugins", "plugins", strings.Join(resp.LoadedPlugins, ", "))
	}
	return &Result{SQL: resp.Rendered, LoadedPlugins: resp.LoadedPlugins}, nil
}

func (r *Renderer) failure(err error) error {
	f, ok := helper.AsFailure(err)
	if !ok {
		return errors.Wrap(errors.TemplateError, "failed to start template renderer", err)
	}
	if mods, ok := errors.ParseMissingModules(f.Stderr); ok {
		return errors.Missing(mods)
	}
	switch f.Reason {
	case helper.Cancelled:
		return errors.New(errors.Cancelled, "template rendering cancelled")
	case helper.TimedOut:
		return errors.New(errors.TemplateError, fmt.Sprintf("template rendering timed out after %s", r.Timeout))
	case helper.SpawnFailed:
		return errors.Wrap(errors.TemplateError, "failed to start template renderer", f.Err)
	case helper.NonZeroExit:
		r.Log.Error("render helper exited", "code", f.ExitCode, "stderr", f.Stderr)
		msg := strings.TrimSpace(f.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("template renderer exited with code %d", f.ExitCode)
		}
		return errors.New(errors.TemplateError, msg)
	default:
		r.Log.Error("render helper output", "stdout", f.Stdout, "stderr", f.Stderr)
		return errors.Wrap(errors.TemplateError, "failed to parse renderer response", f.Err)
	}
}
