// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package helper runs short-lived helper subprocesses that read one JSON
// request on stdin and write one JSON response on stdout.
//
// Every invocation spawns exactly one process. The process is killed when the
// caller's context is cancelled or the call's own timeout expires; in both
// cases whatever it printed is discarded.
package helper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long we wait for pipes after the process is killed.
// Grandchildren holding stdout open would otherwise block Wait.
const waitDelay = 500 * time.Millisecond

var errTimeout = errors.New("helper timed out")

// Call describes one helper invocation.
type Call struct {
	// Interpreter is the program to run, e.g. /usr/bin/python3.
	Interpreter string
	// Args are passed to the interpreter; usually the script path.
	Args []string
	// Timeout is a hard wall-clock limit; zero means no limit beyond ctx.
	Timeout time.Duration
	// Stderr, when set, also receives the helper's stderr as it is produced.
	Stderr io.Writer
}

// Reason classifies why a helper call failed.
type Reason int

const (
	SpawnFailed Reason = iota + 1
	NonZeroExit
	BadOutput
	TimedOut
	Cancelled
)

func (r Reason) String() string {
	switch r {
	case SpawnFailed:
		return "spawn failed"
	case NonZeroExit:
		return "non-zero exit"
	case BadOutput:
		return "bad output"
	case TimedOut:
		return "timed out"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Failure is returned by Invoke for every unsuccessful call.
type Failure struct {
	Reason   Reason
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString("helper ")
	b.WriteString(f.Reason.String())
	if f.Reason == NonZeroExit {
		fmt.Fprintf(&b, " (code %d)", f.ExitCode)
	}
	if f.Err != nil {
		b.WriteString(": ")
		b.WriteString(f.Err.Error())
	}
	if s := strings.TrimSpace(f.Stderr); s != "" && f.Reason != Cancelled {
		b.WriteString(": ")
		b.WriteString(s)
	}
	return b.String()
}

func (f *Failure) Unwrap() error { return f.Err }

// AsFailure returns the *Failure in err's chain, if any.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	ok := errors.As(err, &f)
	return f, ok
}

// Invoke runs the helper, writes req as JSON to its stdin, closes stdin and
// decodes the JSON it prints into resp. Numbers are decoded as json.Number.
func Invoke(ctx context.Context, call Call, req, resp any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode helper request: %w", err)
	}

	if call.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, call.Timeout, errTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, call.Interpreter, call.Args...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if call.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, call.Stderr)
	}

	runErr := cmd.Run()

	// A dead context wins over whatever the process managed to print.
	if ctx.Err() != nil {
		if errors.Is(context.Cause(ctx), errTimeout) {
			return &Failure{Reason: TimedOut, Stderr: stderr.String(), Err: fmt.Errorf("no response after %s", call.Timeout)}
		}
		return &Failure{Reason: Cancelled, Err: context.Cause(ctx)}
	}

	if runErr != nil && !(errors.Is(runErr, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success()) {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return &Failure{
				Reason:   NonZeroExit,
				ExitCode: exitErr.ExitCode(),
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
			}
		}
		return &Failure{Reason: SpawnFailed, Stderr: stderr.String(), Err: runErr}
	}

	if err := decode(stdout.Bytes(), resp); err != nil {
		return &Failure{Reason: BadOutput, Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
	}
	return nil
}

// decode parses out as one JSON value. If the whole output does not parse
// (a plugin printed to stdout, say), the last non-empty line is tried.
func decode(out []byte, resp any) error {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return errors.New("empty response")
	}
	if !json.Valid(out) {
		if i := bytes.LastIndexByte(out, '\n'); i >= 0 && json.Valid(out[i+1:]) {
			out = out[i+1:]
		}
	}
	if err := decodeOne(out, resp); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	return nil
}

func decodeOne(data []byte, resp any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(resp); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON value")
	}
	return nil
}
