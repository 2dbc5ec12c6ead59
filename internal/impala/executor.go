// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package impala runs SQL against Impala through the execute_query.py helper.
package impala

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"impyla/cli/internal/config"
	"impyla/cli/internal/errors"
	"impyla/cli/internal/helper"
	"impyla/cli/internal/logging"
)

// TimeoutMargin is added to connection.timeout to get the hard limit on one
// helper run.
const TimeoutMargin = 30 * time.Second

// Request is sent to the query helper.
type Request struct {
	Connection config.Connection `json:"connection"`
	SQL        string            `json:"sql"`
	MaxRows    int               `json:"max_rows"`
}

// Response is what the query helper prints.
type Response struct {
	Success         bool     `json:"success"`
	Columns         []string `json:"columns,omitempty"`
	Rows            [][]any  `json:"rows,omitempty"`
	RowCount        int      `json:"row_count,omitempty"`
	ExecutionTimeMS int64    `json:"execution_time_ms,omitempty"`
	HasMore         bool     `json:"has_more,omitempty"`
	Error           string   `json:"error,omitempty"`
	ErrorType       string   `json:"error_type,omitempty"`
}

// Result is a successful query. Numbers in Rows are json.Number so large
// integers and decimals keep their exact text.
type Result struct {
	Columns       []string
	Rows          [][]any
	RowCount      int
	ExecutionTime time.Duration
	HasMore       bool
	RenderedSQL   string
}

// Executor runs the query helper script.
type Executor struct {
	Script string
	Log    *logging.Output
}

// NewExecutor creates an executor for the helper at script.
func NewExecutor(script string, log *logging.Output) *Executor {
	if log == nil {
		log = logging.Discard()
	}
	return &Executor{Script: script, Log: log}
}

// Execute runs sql using the connection settings of cfg. Cancelling ctx
// kills the helper and returns a Cancelled error; anything it printed is
// dropped.
func (e *Executor) Execute(ctx context.Context, interpreter, sql string, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		return nil, errors.New(errors.ConnectionError, "no configuration loaded")
	}
	if interpreter == "" {
		return nil, errors.New(errors.ConnectionError, "no Python interpreter available")
	}

	req := Request{Connection: cfg.Connection, SQL: sql, MaxRows: cfg.Extension.MaxRows}
	call := helper.Call{
		Interpreter: interpreter,
		Args:        []string{e.Script},
		Timeout:     time.Duration(cfg.Connection.Timeout)*time.Second + TimeoutMargin,
	}

	e.Log.Info("executing query", "host", cfg.Connection.Host, "port", cfg.Connection.Port,
		"database", cfg.Connection.Database, "sql", truncate(sql, 500))
	started := time.Now()

	var resp Response
	if err := helper.Invoke(ctx, call, req, &resp); err != nil {
		return nil, e.failure(err, call.Timeout)
	}

	if !resp.Success {
		kind := errorKind(resp.ErrorType)
		e.Log.Warn("query failed", "type", resp.ErrorType, "error", resp.Error)
		msg := resp.Error
		if msg == "" {
			msg = "query failed"
		}
		if mods, ok := errors.ParseMissingModules(msg); ok {
			return nil, errors.Missing(mods)
		}
		return nil, errors.New(kind, msg)
	}

	res := &Result{
		Columns:       resp.Columns,
		Rows:          resp.Rows,
		RowCount:      resp.RowCount,
		ExecutionTime: time.Duration(resp.ExecutionTimeMS) * time.Millisecond,
		HasMore:       resp.HasMore,
	}
	if res.Columns == nil {
		res.Columns = []string{}
	}
	if res.Rows == nil {
		res.Rows = [][]any{}
	}
	if res.RowCount == 0 {
		res.RowCount = len(res.Rows)
	}
	e.Log.Info("query finished", "rows", res.RowCount, "has_more", res.HasMore,
		"execution_ms", resp.ExecutionTimeMS, "wall_ms", time.Since(started).Milliseconds())
	return res, nil
}

func (e *Executor) failure(err error, limit time.Duration) error {
	f, ok := helper.AsFailure(err)
	if !ok {
		return errors.Wrap(errors.ImpalaError, "failed to run query helper", err)
	}
	switch f.Reason {
	case helper.Cancelled:
		e.Log.Info("query cancelled")
		return errors.New(errors.Cancelled, "query cancelled")
	case helper.SpawnFailed:
		e.Log.Error("failed to start query helper", "error", f.Err.Error())
		return errors.Wrap(errors.ConnectionError, "failed to start Python", f.Err)
	case helper.TimedOut:
		e.Log.Error("query helper timed out", "limit", limit.String())
		return errors.New(errors.ImpalaError, fmt.Sprintf("query timed out after %s", limit))
	case helper.NonZeroExit:
		if mods, ok := errors.ParseMissingModules(f.Stderr); ok {
			return errors.Missing(mods)
		}
		e.Log.Error("query helper exited", "code", f.ExitCode, "stderr", f.Stderr)
		msg := strings.TrimSpace(f.Stderr)
		if msg == "" {
			msg = helperMessage(f.Stdout)
		}
		if msg == "" {
			msg = fmt.Sprintf("query helper exited with code %d", f.ExitCode)
		}
		return errors.New(errors.ImpalaError, msg)
	default:
		e.Log.Error("unparseable query helper output", "stdout", truncate(f.Stdout, 2000), "stderr", f.Stderr)
		return errors.Wrap(errors.ImpalaError, "failed to parse response", f.Err)
	}
}

// helperMessage extracts the error field when the helper printed a JSON
// failure before exiting non-zero.
func helperMessage(stdout string) string {
	var resp Response
	if json.Unmarshal([]byte(strings.TrimSpace(stdout)), &resp) != nil {
		return ""
	}
	return resp.Error
}

func errorKind(errorType string) errors.Kind {
	switch errorType {
	case string(errors.ConnectionError):
		return errors.ConnectionError
	case string(errors.SQLSyntaxError):
		return errors.SQLSyntaxError
	default:
		return errors.ImpalaError
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
