package scripts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterializeWritesScripts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "helpers")

	paths, err := Materialize(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	for name, p := range paths {
		got, err := os.ReadFile(p)
		require.NoError(t, err)
		src, ok := Source(name)
		require.True(t, ok)
		assert.Equal(t, src, got)
	}
	assert.Contains(t, string(renderJinja), "MISSING_MODULE")
	assert.Contains(t, string(executeQuery), "MISSING_MODULE")
}

func TestMaterializeRepairsModifiedScript(t *testing.T) {
	dir := t.TempDir()
	paths, err := Materialize(dir)
	require.NoError(t, err)

	p := paths[ExecuteQuery]
	require.NoError(t, os.WriteFile(p, []byte("tampered"), 0o600))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(paths[RenderJinja], old, old))

	_, err = Materialize(dir)
	require.NoError(t, err)

	got, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, executeQuery, got)

	info, err := os.Stat(paths[RenderJinja])
	require.NoError(t, err)
	assert.WithinDuration(t, old, info.ModTime(), time.Second, "up to date scripts are left alone")
}
