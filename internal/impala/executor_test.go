// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package impala

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"impyla/cli/internal/config"
	"impyla/cli/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeExecutor(t *testing.T, body string) *Executor {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("helper fakes are POSIX shell scripts")
	}
	p := filepath.Join(t.TempDir(), "query.sh")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o700))
	return NewExecutor(p, nil)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Connection.Host = "impala.test"
	return cfg
}

func TestExecuteSuccess(t *testing.T) {
	e := fakeExecutor(t, `cat >/dev/null
echo '{"success": true, "columns": ["a", "b"], "rows": [[1, "x"], [null, "y"]], "row_count": 2, "execution_time_ms": 15, "has_more": false}'
`)
	res, err := e.Execute(context.Background(), "sh", "SELECT a, b FROM t", testConfig())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, json.Number("1"), res.Rows[0][0])
	assert.Equal(t, "x", res.Rows[0][1])
	assert.Nil(t, res.Rows[1][0])
	assert.Equal(t, 2, res.RowCount)
	assert.Equal(t, 15*time.Millisecond, res.ExecutionTime)
	assert.False(t, res.HasMore)
}

func TestExecuteSendsRequest(t *testing.T) {
	dir := t.TempDir()
	captured := filepath.Join(dir, "request.json")
	e := fakeExecutor(t, `cat > "`+captured+`"
echo '{"success": true, "columns": [], "rows": []}'
`)
	cfg := testConfig()
	cfg.Extension.MaxRows = 50
	cfg.Connection.User = "bob"

	_, err := e.Execute(context.Background(), "sh", "SELECT 1", cfg)
	require.NoError(t, err)

	raw, err := os.ReadFile(captured)
	require.NoError(t, err)
	var req map[string]any
	require.NoError(t, json.Unmarshal(raw, &req))
	assert.Equal(t, "SELECT 1", req["sql"])
	assert.Equal(t, float64(50), req["max_rows"])
	conn := req["connection"].(map[string]any)
	assert.Equal(t, "impala.test", conn["host"])
	assert.Equal(t, float64(21050), conn["port"])
	assert.Equal(t, "NOSASL", conn["auth_mechanism"])
	assert.Equal(t, "bob", conn["user"])
}

func TestExecuteErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind errors.Kind
		wantMsg  string
	}{
		{
			name:     "syntax error from helper",
			body:     `echo '{"success": false, "error": "AnalysisException: Could not resolve table", "error_type": "SQLSyntaxError"}'`,
			wantKind: errors.SQLSyntaxError,
			wantMsg:  "Could not resolve table",
		},
		{
			name:     "connection error from helper",
			body:     `echo '{"success": false, "error": "Could not connect to impala.test:21050", "error_type": "ConnectionError"}'`,
			wantKind: errors.ConnectionError,
		},
		{
			name:     "unknown error type",
			body:     `echo '{"success": false, "error": "boom", "error_type": "Weird"}'`,
			wantKind: errors.ImpalaError,
			wantMsg:  "boom",
		},
		{
			name:     "non-zero exit carries stderr",
			body:     "echo 'Traceback: thrift error' >&2\nexit 2",
			wantKind: errors.ImpalaError,
			wantMsg:  "thrift error",
		},
		{
			name:     "missing impyla",
			body:     "echo 'MISSING_MODULE: impala' >&2\nexit 1",
			wantKind: errors.MissingDependency,
		},
		{
			name:     "malformed output",
			body:     "echo '{not json'",
			wantKind: errors.ImpalaError,
			wantMsg:  "failed to parse response",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := fakeExecutor(t, "cat >/dev/null\n"+tt.body+"\n")
			_, err := e.Execute(context.Background(), "sh", "SELECT 1", testConfig())
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, errors.KindOf(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestExecuteMissingInterpreterIsConnectionError(t *testing.T) {
	e := NewExecutor("execute_query.py", nil)
	_, err := e.Execute(context.Background(), filepath.Join(t.TempDir(), "python-missing"), "SELECT 1", testConfig())
	assert.Equal(t, errors.ConnectionError, errors.KindOf(err))

	_, err = e.Execute(context.Background(), "", "SELECT 1", testConfig())
	assert.Equal(t, errors.ConnectionError, errors.KindOf(err))
}

func TestExecuteCancelIgnoresLateOutput(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "started")
	e := fakeExecutor(t, `cat >/dev/null
touch "`+marker+`"
sleep 2
echo '{"success": true, "columns": ["a"], "rows": [[1]]}'
`)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// cancel only once the helper is running
		for i := 0; i < 200; i++ {
			if _, err := os.Stat(marker); err == nil {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
		cancel()
	}()

	start := time.Now()
	res, err := e.Execute(ctx, "sh", "SELECT 1", testConfig())
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Equal(t, errors.Cancelled, errors.KindOf(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}
