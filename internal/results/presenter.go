// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package results renders query outcomes as HTML documents and publishes
// them to one or more surfaces (a file on disk, a local preview server).
//
// A panel moves between three states, Loading, Error and Results, only
// through ShowLoading, ShowError and ShowResults.
package results

import (
	"sync"

	"impyla/cli/internal/impala"
)

// Surface displays rendered documents.
type Surface interface {
	// Show replaces the displayed document.
	Show(doc *Document) error
	// Reveal brings the surface to the user's attention.
	Reveal() error
}

// Panel is the single results view of a Presenter.
type Panel struct {
	mu      sync.Mutex
	surface Surface
	current *Document
}

// State returns the state of the last shown document.
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return StateEmpty
	}
	return p.current.State
}

// Current returns the last shown document, or nil.
func (p *Panel) Current() *Document {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Panel) show(doc *Document) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = doc
	return p.surface.Show(doc)
}

// ShowLoading shows the query that is being executed.
func (p *Panel) ShowLoading(sql string) error {
	return p.show(loadingDocument(sql))
}

// ShowError shows a failed query. kind may be empty.
func (p *Panel) ShowError(kind, message, sql string) error {
	return p.show(errorDocument(kind, message, sql))
}

// ShowResults shows the result table with the query info and, when
// present, the rendered SQL.
func (p *Panel) ShowResults(res *impala.Result, q Query) error {
	if q.RenderedSQL == "" {
		q.RenderedSQL = res.RenderedSQL
	}
	return p.show(resultsDocument(res, q))
}

// Presenter owns at most one Panel.
type Presenter struct {
	mu         sync.Mutex
	panel      *Panel
	newSurface func() (Surface, error)
}

// NewPresenter creates a presenter that builds its surface on first Open.
func NewPresenter(newSurface func() (Surface, error)) *Presenter {
	return &Presenter{newSurface: newSurface}
}

// Open returns the existing panel, revealing it, or creates one.
func (p *Presenter) Open() (*Panel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.panel != nil {
		return p.panel, p.panel.surface.Reveal()
	}
	s, err := p.newSurface()
	if err != nil {
		return nil, err
	}
	p.panel = &Panel{surface: s}
	return p.panel, s.Reveal()
}

// Panel returns the open panel or nil.
func (p *Presenter) Panel() *Panel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.panel
}
