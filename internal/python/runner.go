// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package python

import (
	"bytes"
	"context"
	"io"
	"os/exec"
)

// Runner starts interpreter processes.
type Runner interface {
	// Output runs the command and returns stdout and stderr combined.
	Output(ctx context.Context, name string, args ...string) (string, error)
	// Stream runs the command copying stdout and stderr to w.
	Stream(ctx context.Context, w io.Writer, name string, args ...string) error
}

type execRunner struct{}

func (execRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	var buf bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.String(), err
}

func (execRunner) Stream(ctx context.Context, w io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = w
	cmd.Stderr = w
	return cmd.Run()
}

func defaultLookPath(name string) (string, error) {
	return exec.LookPath(name)
}
