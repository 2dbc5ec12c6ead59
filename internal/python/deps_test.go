// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package python

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"impyla/cli/internal/config"
	ierrors "impyla/cli/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedPrompter answers prompts from fields and records notices.
type scriptedPrompter struct {
	confirm  bool
	selected []string
	notices  []string
	asked    []string
}

func (s *scriptedPrompter) Info(msg string)    { s.notices = append(s.notices, "info: "+msg) }
func (s *scriptedPrompter) Warn(msg string)    { s.notices = append(s.notices, "warn: "+msg) }
func (s *scriptedPrompter) Error(msg string)   { s.notices = append(s.notices, "error: "+msg) }
func (s *scriptedPrompter) Success(msg string) { s.notices = append(s.notices, "success: "+msg) }
func (s *scriptedPrompter) Confirm(prompt string, def bool) (bool, error) {
	s.asked = append(s.asked, prompt)
	return s.confirm, nil
}
func (s *scriptedPrompter) Select(prompt string, options []string, def string) (string, error) {
	return def, nil
}
func (s *scriptedPrompter) MultiSelect(prompt string, options, defaults []string) ([]string, error) {
	if s.selected != nil {
		return s.selected, nil
	}
	return defaults, nil
}
func (s *scriptedPrompter) Input(prompt, def string) (string, error) { return def, nil }
func (s *scriptedPrompter) Password(prompt string) (string, error)   { return "", nil }
func (s *scriptedPrompter) Progress(title string) func()             { return func() {} }
func (s *scriptedPrompter) Open(path string) error                   { return nil }

func TestOfferInstallRunsPipWithUserFlag(t *testing.T) {
	t.Setenv("VIRTUAL_ENV", "")
	t.Setenv("CONDA_PREFIX", "")
	r := &fakeRunner{
		versions: map[string]string{"/usr/bin/python3": "Python 3.12.1"},
		missing:  map[string]bool{"jinja2": true},
	}
	r.onStream = func() { r.missing = nil }
	p := newTestProbe(r, "python3")
	prompter := &scriptedPrompter{confirm: true}
	p.Prompter = prompter

	err := p.EnsureDependencies(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, r.streamed, 1)
	assert.Equal(t, []string{"/usr/bin/python3", "-m", "pip", "install", "--user", "jinja2"}, r.streamed[0])
	assert.Contains(t, prompter.notices, "success: Installed jinja2")
}

func TestOfferInstallInVirtualenvSkipsUserFlag(t *testing.T) {
	t.Setenv("VIRTUAL_ENV", "/home/me/.venv")
	r := &fakeRunner{versions: map[string]string{"/usr/bin/python3": "Python 3.12.1"}}
	p := newTestProbe(r, "python3")
	p.Prompter = &scriptedPrompter{confirm: true}

	require.NoError(t, p.OfferInstall(context.Background(), nil, []string{"impala"}))
	require.Len(t, r.streamed, 1)
	assert.Equal(t, []string{"/usr/bin/python3", "-m", "pip", "install", "impyla"}, r.streamed[0])
}

func TestOfferInstallDeclined(t *testing.T) {
	r := &fakeRunner{versions: map[string]string{"/usr/bin/python3": "Python 3.12.1"}}
	p := newTestProbe(r, "python3")
	p.Prompter = &scriptedPrompter{confirm: false}

	err := p.OfferInstall(context.Background(), nil, []string{"jinja2"})
	require.Error(t, err)
	assert.Equal(t, ierrors.MissingDependency, ierrors.KindOf(err))
	assert.Empty(t, r.streamed)
}

func TestOfferInstallFailures(t *testing.T) {
	tests := []struct {
		name      string
		streamErr error
		notice    string
	}{
		{name: "pip exits non-zero", streamErr: errors.New("exit status 1"), notice: "error: pip install failed. Run 'impyla output' for details."},
		{name: "still missing after install"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VIRTUAL_ENV", "/home/me/.venv")
			r := &fakeRunner{
				versions:  map[string]string{"/usr/bin/python3": "Python 3.12.1"},
				missing:   map[string]bool{"jinja2": true},
				streamErr: tt.streamErr,
			}
			p := newTestProbe(r, "python3")
			prompter := &scriptedPrompter{confirm: true}
			p.Prompter = prompter

			err := p.OfferInstall(context.Background(), nil, []string{"jinja2"})
			var e *ierrors.E
			require.True(t, ierrors.As(err, &e))
			assert.Equal(t, ierrors.MissingDependency, e.Kind)
			assert.Equal(t, []string{"jinja2"}, e.Modules)
			require.Len(t, r.streamed, 1)
			if tt.notice != "" {
				assert.Contains(t, prompter.notices, tt.notice)
			}
			assert.NotContains(t, prompter.notices, "success: Installed jinja2")
		})
	}
}

func TestOfferInstallWithoutPrompter(t *testing.T) {
	p := newTestProbe(&fakeRunner{})
	err := p.OfferInstall(context.Background(), nil, []string{"impala", "impyla"})
	var e *ierrors.E
	require.True(t, ierrors.As(err, &e))
	assert.Equal(t, ierrors.MissingDependency, e.Kind)
	assert.Equal(t, []string{"impyla"}, e.Modules)
}

func TestVersions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake interpreter is a POSIX shell script")
	}
	py := filepath.Join(t.TempDir(), "python3")
	require.NoError(t, os.WriteFile(py, []byte(`#!/bin/sh
cat >/dev/null
echo '{"python": "3.11.4", "packages": {"impyla": "0.19.0", "jinja2": ""}}'
`), 0o700))

	p := newTestProbe(&fakeRunner{versions: map[string]string{py: "Python 3.11.4"}})
	p.Override = py

	v, err := p.Versions(context.Background(), config.Default())
	require.NoError(t, err)
	assert.Equal(t, py, v.Interpreter)
	assert.Equal(t, "3.11.4", v.Python)
	assert.Equal(t, "0.19.0", v.Packages["impyla"])
	assert.Empty(t, v.Packages["jinja2"])
}
