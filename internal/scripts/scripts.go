// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package scripts ships the Python helper scripts inside the binary and
// writes them to disk where an interpreter can run them.
package scripts

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"impyla/cli/internal/xdg"
)

// Script names.
const (
	RenderJinja  = "render_jinja.py"
	ExecuteQuery = "execute_query.py"
)

//go:embed render_jinja.py
var renderJinja []byte

//go:embed execute_query.py
var executeQuery []byte

var all = map[string][]byte{
	RenderJinja:  renderJinja,
	ExecuteQuery: executeQuery,
}

// Source returns the embedded source of the named script.
func Source(name string) ([]byte, bool) {
	b, ok := all[name]
	return b, ok
}

// Paths maps script names to files on disk.
type Paths map[string]string

// Materialize writes every script into dir, skipping files that are already
// up to date, and returns where each one lives.
func Materialize(dir string) (Paths, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	paths := make(Paths, len(all))
	for name, src := range all {
		p := filepath.Join(dir, name)
		if cur, err := os.ReadFile(p); err != nil || !bytes.Equal(cur, src) {
			if err := writeFile(p, src); err != nil {
				return nil, fmt.Errorf("write helper %s: %w", name, err)
			}
		}
		paths[name] = p
	}
	return paths, nil
}

// Install materializes the scripts into <data dir>/helpers.
func Install() (Paths, error) {
	dir, err := xdg.DataDir()
	if err != nil {
		return nil, err
	}
	return Materialize(filepath.Join(dir, "helpers"))
}

func writeFile(p string, data []byte) error {
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}
