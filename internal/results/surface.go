// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package results

import (
	"errors"
	"os"
	"path/filepath"

	"impyla/cli/internal/xdg"
)

// DocumentFileName is the results document inside the XDG state dir.
const DocumentFileName = "results.html"

// FileSurface writes every document to an HTML file.
type FileSurface struct {
	Path string
	// OnReveal, when set, is called with the path on Reveal.
	OnReveal func(path string) error
}

// DefaultFileSurface writes to results.html in the state directory.
func DefaultFileSurface() (*FileSurface, error) {
	dir, err := xdg.StateDir()
	if err != nil {
		return nil, err
	}
	return &FileSurface{Path: filepath.Join(dir, DocumentFileName)}, nil
}

// Show renders doc and replaces the file atomically.
func (f *FileSurface) Show(doc *Document) error {
	b, err := render(doc, false, 0)
	if err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}

func (f *FileSurface) Reveal() error {
	if f.OnReveal == nil {
		return nil
	}
	return f.OnReveal(f.Path)
}

// Tee shows every document on several surfaces.
type Tee []Surface

func (t Tee) Show(doc *Document) error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.Show(doc))
	}
	return errors.Join(errs...)
}

func (t Tee) Reveal() error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.Reveal())
	}
	return errors.Join(errs...)
}
