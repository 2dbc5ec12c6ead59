// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectLines(t *testing.T) {
	text := "SELECT 1;\nSELECT 2;\nSELECT 3;\nSELECT 4;"
	tests := []struct {
		rng     string
		want    string
		wantErr bool
	}{
		{rng: "2", want: "SELECT 2;"},
		{rng: "2:3", want: "SELECT 2;\nSELECT 3;"},
		{rng: "3:", want: "SELECT 3;\nSELECT 4;"},
		{rng: ":1", want: "SELECT 1;"},
		{rng: "3:99", want: "SELECT 3;\nSELECT 4;"},
		{rng: "0", wantErr: true},
		{rng: "x:2", wantErr: true},
		{rng: "3:2", wantErr: true},
		{rng: "9", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.rng, func(t *testing.T) {
			got, err := selectLines(text, tt.rng)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "q.sql")
	require.NoError(t, os.WriteFile(p, []byte("SELECT 1;\nSELECT {{ x }};\n"), 0o600))

	doc, err := readDocument([]string{p}, "2")
	require.NoError(t, err)
	assert.Equal(t, p, doc.Path)
	assert.Equal(t, dir, doc.BaseDir)
	assert.Equal(t, "SELECT 1;\nSELECT {{ x }};\n", doc.Text)
	assert.Equal(t, "SELECT {{ x }};", doc.Selection)

	_, err = readDocument([]string{filepath.Join(dir, "missing.sql")}, "")
	assert.Error(t, err)
}

func TestWatchFileCoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "q.sql")
	require.NoError(t, os.WriteFile(p, []byte("SELECT 1"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, p, func() { changes <- struct{}{} })
	}()
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(p, []byte("SELECT 2"), 0o600))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.sql"), []byte("x"), 0o600))

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
	select {
	case <-changes:
		t.Fatal("writes were not coalesced")
	case <-time.After(2 * watchDebounce):
	}

	cancel()
	assert.NoError(t, <-done)
}
