package config

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"impyla/cli/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// State is the load state of the workspace configuration.
type State int

const (
	StateAbsent State = iota
	StateLoaded
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateInvalid:
		return "invalid"
	default:
		return "absent"
	}
}

// Notifier is told about state transitions. Each method is called once per
// transition into the corresponding state, never for repeats.
type Notifier interface {
	ConfigLoaded(path string)
	ConfigInvalid(path string, err error)
	ConfigRemoved(path string)
}

// SecretSource supplies passwords that are not written in the file.
type SecretSource interface {
	Password(user, host string) (string, error)
}

// Store owns the workspace configuration.
//
// Load and the watcher may replace the cached configuration while a command
// is running. A command must call Get (or Load) once and keep using the
// pointer it got; it never observes a mix of two documents, only possibly an
// outdated one.
type Store struct {
	mu       sync.Mutex
	root     string
	state    State
	current  atomic.Pointer[Config]
	notifier Notifier
	secrets  SecretSource
	lookup   func(root string) Lookup
	log      *logging.Output
}

// Option configures a Store.
type Option func(*Store)

func WithNotifier(n Notifier) Option      { return func(s *Store) { s.notifier = n } }
func WithSecrets(src SecretSource) Option { return func(s *Store) { s.secrets = src } }
func WithLog(out *logging.Output) Option  { return func(s *Store) { s.log = out } }

// WithLookup replaces the variable lookup used for ${VAR} substitution.
func WithLookup(fn func(root string) Lookup) Option { return func(s *Store) { s.lookup = fn } }

// NewStore creates a store for the workspace rooted at root.
func NewStore(root string, opts ...Option) *Store {
	s := &Store{
		root:   root,
		lookup: EnvLookup,
		log:    logging.Discard(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Root returns the workspace directory.
func (s *Store) Root() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// Path returns the configuration file path.
func (s *Store) Path() string {
	return filepath.Join(s.Root(), FileName)
}

// State returns the current load state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Get returns the last successfully loaded configuration, or nil.
func (s *Store) Get() *Config {
	return s.current.Load()
}

// SetRoot switches the store to another workspace and forgets all state.
func (s *Store) SetRoot(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if root == s.root {
		return
	}
	s.log.Info("workspace changed", "from", s.root, "to", root)
	s.root = root
	s.state = StateAbsent
	s.current.Store(nil)
}

// Load reads the configuration file. A missing file returns (nil, nil).
// A document failing validation returns an InvalidConfig error and leaves
// the previously loaded configuration in place.
func (s *Store) Load() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.root, FileName)
	s.log.Debug("looking for configuration", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			s.log.Info("configuration file not found", "path", path)
			s.current.Store(nil)
			s.transition(StateAbsent, path, nil)
			return nil, nil
		}
		s.transition(StateInvalid, path, err)
		return nil, err
	}

	cfg, err := Parse(data, s.lookup(s.root))
	if err != nil {
		s.log.Error("error loading configuration", "path", path, "error", err.Error())
		s.transition(StateInvalid, path, err)
		return nil, err
	}
	s.fillPassword(cfg)

	prev := s.current.Swap(cfg)
	if prev != nil && prev.Connection.Host != cfg.Connection.Host {
		s.log.Info("configuration reloaded", "host", cfg.Connection.Host, "previous_host", prev.Connection.Host)
	} else {
		s.log.Info("configuration loaded", "path", path, "host", cfg.Connection.Host)
	}
	s.transition(StateLoaded, path, nil)
	return cfg, nil
}

func (s *Store) fillPassword(cfg *Config) {
	conn := &cfg.Connection
	if s.secrets == nil || !conn.NeedsCredentials() || conn.User == "" || conn.Password != "" {
		return
	}
	pw, err := s.secrets.Password(conn.User, conn.Host)
	if err != nil {
		s.log.Debug("no keychain password", "user", conn.User, "host", conn.Host, "error", err.Error())
		return
	}
	conn.Password = pw
}

// clear forgets the configuration after the file disappeared.
func (s *Store) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Store(nil)
	s.transition(StateAbsent, filepath.Join(s.root, FileName), nil)
}

func (s *Store) transition(next State, path string, err error) {
	if next == s.state {
		return
	}
	s.log.Debug("configuration state", "from", s.state.String(), "to", next.String())
	s.state = next
	if s.notifier == nil {
		return
	}
	switch next {
	case StateLoaded:
		s.notifier.ConfigLoaded(path)
	case StateInvalid:
		s.notifier.ConfigInvalid(path, err)
	default:
		s.notifier.ConfigRemoved(path)
	}
}

// Save writes cfg to the workspace and reloads it.
func (s *Store) Save(cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	path := s.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	_, err = s.Load()
	return err
}

// Watch reloads the configuration whenever the file (or the workspace .env)
// is written or created, and clears it when the file is removed. It blocks
// until ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := s.Root()
	if err := w.Add(root); err != nil {
		return err
	}
	s.log.Debug("watching configuration", "dir", root)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if name != FileName && name != ".env" {
				continue
			}
			switch {
			case name == FileName && ev.Has(fsnotify.Remove|fsnotify.Rename):
				if _, statErr := os.Stat(filepath.Join(root, FileName)); stderrors.Is(statErr, os.ErrNotExist) {
					s.log.Info("configuration file removed", "path", ev.Name)
					s.clear()
				}
			case ev.Has(fsnotify.Write | fsnotify.Create):
				_, _ = s.Load()
			}
		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("configuration watcher error", "error", werr.Error())
		}
	}
}
