// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package results

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"impyla/cli/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// PreviewServer serves the current document over HTTP. Pages poll /version
// and reload themselves when a new document is shown.
type PreviewServer struct {
	// OnReveal is called with the server URL the first time it is revealed.
	OnReveal func(url string) error

	mu       sync.RWMutex
	doc      *Document
	version  int
	revealed bool

	log      *logging.Output
	router   chi.Router
	listener net.Listener
	srv      *http.Server
}

// NewPreviewServer creates a server; call Start to listen.
func NewPreviewServer(log *logging.Output) *PreviewServer {
	if log == nil {
		log = logging.Discard()
	}
	s := &PreviewServer{
		log: log,
		doc: &Document{State: StateEmpty, Title: "Impala Query Results", Heading: "No query executed yet"},
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Get("/", s.handleDocument)
	r.Get("/version", s.handleVersion)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	s.router = r
	return s
}

// Handler exposes the router for tests and embedding.
func (s *PreviewServer) Handler() http.Handler { return s.router }

// Start listens on addr (e.g. "127.0.0.1:0") and serves until ctx is done.
func (s *PreviewServer) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.srv = &http.Server{Handler: s.router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("preview server stopped", "error", err.Error())
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()
	s.log.Info("preview server listening", "url", s.URL())
	return nil
}

// URL returns the base URL, or "" before Start.
func (s *PreviewServer) URL() string {
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String() + "/"
}

// Version counts the documents shown so far.
func (s *PreviewServer) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *PreviewServer) Show(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
	s.version++
	return nil
}

func (s *PreviewServer) Reveal() error {
	s.mu.Lock()
	first := !s.revealed
	s.revealed = true
	s.mu.Unlock()
	if !first || s.OnReveal == nil || s.URL() == "" {
		return nil
	}
	return s.OnReveal(s.URL())
}

func (s *PreviewServer) handleDocument(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	doc, version := s.doc, s.version
	s.mu.RUnlock()

	b, err := render(doc, true, version)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}

func (s *PreviewServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte(strconv.Itoa(s.Version())))
}
