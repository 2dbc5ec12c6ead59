// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package jinja

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"impyla/cli/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasTemplateSyntax(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{text: "SELECT 1", want: false},
		{text: "SELECT '{' || '}' FROM t", want: false},
		{text: "SELECT * FROM t WHERE a = '%'", want: false},
		{text: "SELECT {{ col }} FROM t", want: true},
		{text: "{% if x %}SELECT 1{% endif %}", want: true},
		{text: "{# note #} SELECT 1", want: true},
		{text: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, HasTemplateSyntax(tt.text))
		})
	}
}

func fakeRenderer(t *testing.T, body string) *Renderer {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("helper fakes are POSIX shell scripts")
	}
	p := filepath.Join(t.TempDir(), "render.sh")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o700))
	return NewRenderer(p, nil)
}

func TestRenderSuccess(t *testing.T) {
	r := fakeRenderer(t, `cat >/dev/null
echo '{"success": true, "rendered": "SELECT 1 FROM sales", "loaded_plugins": ["date_utils.py"]}'
`)
	res, err := r.Render(context.Background(), "sh", Request{Template: "SELECT 1 FROM {{ t }}"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 FROM sales", res.SQL)
	assert.Equal(t, []string{"date_utils.py"}, res.LoadedPlugins)
}

func TestRenderFailures(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind errors.Kind
		wantLine int
		wantMods []string
	}{
		{
			name:     "syntax error with line",
			body:     `echo '{"success": false, "error": "unexpected end of template", "error_type": "TemplateSyntaxError", "line": 3}'`,
			wantKind: errors.TemplateError,
			wantLine: 3,
		},
		{
			name:     "missing jinja2 on stderr",
			body:     "echo 'MISSING_MODULE: jinja2' >&2\nexit 1",
			wantKind: errors.MissingDependency,
			wantMods: []string{"jinja2"},
		},
		{
			name:     "missing module in response",
			body:     `echo '{"success": false, "error": "MISSING_MODULE: jinja2"}'`,
			wantKind: errors.MissingDependency,
			wantMods: []string{"jinja2"},
		},
		{
			name:     "crash",
			body:     "echo 'Segmentation fault' >&2\nexit 139",
			wantKind: errors.TemplateError,
		},
		{
			name:     "not json",
			body:     "echo 'hello'",
			wantKind: errors.TemplateError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := fakeRenderer(t, "cat >/dev/null\n"+tt.body+"\n")
			_, err := r.Render(context.Background(), "sh", Request{Template: "{{ x }}"})
			require.Error(t, err)

			var e *errors.E
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.wantKind, e.Kind)
			assert.Equal(t, tt.wantLine, e.Line)
			assert.Equal(t, tt.wantMods, e.Modules)
		})
	}
}

func TestRenderTimeout(t *testing.T) {
	r := fakeRenderer(t, "cat >/dev/null\nsleep 5\n")
	r.Timeout = 200 * time.Millisecond

	_, err := r.Render(context.Background(), "sh", Request{Template: "{{ x }}"})
	require.Error(t, err)
	assert.Equal(t, errors.TemplateError, errors.KindOf(err))
	assert.Contains(t, err.Error(), "timed out")
}
