// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputMasksRecords(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, false)

	out.Info("connecting to impala://bob:hunter2@db:21050/x", "stderr", "password=hunter2")

	logged := buf.String()
	assert.Contains(t, logged, "impala://*:*@db:21050/x")
	assert.NotContains(t, logged, "hunter2")
}

func TestLineWriterSplitsLines(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, false)

	w := out.LineWriter("pip")
	_, _ = w.Write([]byte("Collecting impyla\nCollect"))
	_, _ = w.Write([]byte("ing jinja2\n\npartial"))
	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Collecting impyla")
	assert.Contains(t, lines[1], "Collecting jinja2")
	assert.Contains(t, lines[2], "partial")
}

func TestTail(t *testing.T) {
	p := filepath.Join(t.TempDir(), "output.log")
	require.NoError(t, os.WriteFile(p, []byte("a\nb\nc\nd\n"), 0o600))

	lines, err := Tail(p, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, lines)

	all, err := Tail(p, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
