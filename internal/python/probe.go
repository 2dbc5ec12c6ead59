// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package python finds a usable Python interpreter and makes sure the
// packages the helper scripts import are installed into it.
//
// Interpreter lookup order:
//  1. the --python override, or extension.python_path when it is an
//     absolute path to an existing file
//  2. extension.python_path as a command name on PATH
//  3. python3, python, python3.13 ... python3.7 on PATH
//
// The first candidate reporting version 3.7 or newer wins and is remembered
// for the life of the process.
package python

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"impyla/cli/internal/config"
	"impyla/cli/internal/errors"
	"impyla/cli/internal/logging"
	"impyla/cli/internal/ui"

	"golang.org/x/mod/semver"
	"golang.org/x/sync/singleflight"
)

// MinVersion is the oldest Python the helpers support.
const MinVersion = "v3.7.0"

const (
	versionTimeout = 5 * time.Second
	importTimeout  = 15 * time.Second
)

// Package is a Python dependency of the helper scripts.
type Package struct {
	Module string // import name
	Pip    string // distribution name for pip
}

// Required lists the packages the helpers import.
var Required = []Package{
	{Module: "impala", Pip: "impyla"},
	{Module: "jinja2", Pip: "jinja2"},
}

// PipName maps an import name reported by a helper to its pip package.
func PipName(module string) string {
	for _, p := range Required {
		if p.Module == module || p.Pip == module {
			return p.Pip
		}
	}
	return module
}

var fallbackCommands = []string{
	"python3", "python",
	"python3.13", "python3.12", "python3.11", "python3.10", "python3.9", "python3.8", "python3.7",
}

var versionPattern = regexp.MustCompile(`Python\s+(\d+)\.(\d+)(?:\.(\d+))?`)

// ParseVersion turns "Python 3.11.4" into the semver "v3.11.4".
func ParseVersion(out string) (string, bool) {
	m := versionPattern.FindStringSubmatch(out)
	if m == nil {
		return "", false
	}
	patch := m[3]
	if patch == "" {
		patch = "0"
	}
	v := fmt.Sprintf("v%s.%s.%s", m[1], m[2], patch)
	return v, semver.IsValid(v)
}

// Probe locates the interpreter and manages its packages.
type Probe struct {
	// Override is an interpreter forced from the command line.
	Override string
	// Prompter is asked before anything is installed. Nil disables installing.
	Prompter ui.Prompter
	Log      *logging.Output

	runner   Runner
	lookPath func(string) (string, error)

	mu          sync.Mutex
	interpreter string
	version     string
	depsOK      map[string]bool
	group       singleflight.Group
}

// NewProbe creates a probe running real processes.
func NewProbe(prompter ui.Prompter, log *logging.Output) *Probe {
	return &Probe{
		Prompter: prompter,
		Log:      log,
		runner:   execRunner{},
		lookPath: defaultLookPath,
		depsOK:   map[string]bool{},
	}
}

func (p *Probe) log() *logging.Output {
	if p.Log == nil {
		return logging.Discard()
	}
	return p.Log
}

// Interpreter returns the path of a Python ≥ 3.7 interpreter.
func (p *Probe) Interpreter(ctx context.Context, cfg *config.Config) (string, error) {
	p.mu.Lock()
	cached := p.interpreter
	p.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	var tried []string
	for _, cand := range p.candidates(cfg) {
		tried = append(tried, cand)
		v, err := p.probeVersion(ctx, cand)
		if err != nil {
			p.log().Debug("python candidate rejected", "path", cand, "error", err.Error())
			continue
		}
		if semver.Compare(v, MinVersion) < 0 {
			p.log().Debug("python candidate too old", "path", cand, "version", v)
			continue
		}
		p.log().Info("using python interpreter", "path", cand, "version", v)
		p.mu.Lock()
		p.interpreter, p.version = cand, v
		p.mu.Unlock()
		return cand, nil
	}

	if ctx.Err() != nil {
		return "", errors.Wrap(errors.Cancelled, "python lookup cancelled", ctx.Err())
	}
	msg := "no Python 3.7+ interpreter found; install Python 3 or set extension.python_path in " + config.FileName
	if len(tried) > 0 {
		msg += " (tried " + strings.Join(tried, ", ") + ")"
	}
	return "", errors.New(errors.ConnectionError, msg)
}

// candidates lists interpreter paths in lookup order without duplicates.
func (p *Probe) candidates(cfg *config.Config) []string {
	var out []string
	seen := map[string]bool{}
	add := func(path string) {
		if path == "" || seen[path] {
			return
		}
		seen[path] = true
		out = append(out, path)
	}

	configured := "python3"
	if cfg != nil && cfg.Extension.PythonPath != "" {
		configured = cfg.Extension.PythonPath
	}

	if p.Override != "" {
		if filepath.IsAbs(p.Override) {
			add(p.Override)
		} else if resolved, err := p.lookPath(p.Override); err == nil {
			add(resolved)
		}
	}
	if filepath.IsAbs(configured) {
		if info, err := os.Stat(configured); err == nil && !info.IsDir() {
			add(configured)
		}
	} else if resolved, err := p.lookPath(configured); err == nil {
		add(resolved)
	}
	for _, name := range fallbackCommands {
		if resolved, err := p.lookPath(name); err == nil {
			add(resolved)
		}
	}
	return out
}

func (p *Probe) probeVersion(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	out, err := p.runner.Output(ctx, path, "--version")
	if err != nil {
		return "", err
	}
	v, ok := ParseVersion(out)
	if !ok {
		return "", fmt.Errorf("unrecognised version output %q", strings.TrimSpace(out))
	}
	return v, nil
}

// Version returns the semver of the selected interpreter, or "".
func (p *Probe) Version() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version
}

// Reset forgets the cached interpreter and dependency results.
func (p *Probe) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interpreter, p.version = "", ""
	p.depsOK = map[string]bool{}
}
