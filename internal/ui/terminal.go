// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"impyla/cli/internal/terminal"

	"github.com/pterm/pterm"
)

// Terminal is the Prompter used by the CLI. On a TTY it uses pterm's
// interactive printers; otherwise prompts fall back to their defaults and
// line-based input.
type Terminal struct {
	// AssumeYes answers every confirmation with yes.
	AssumeYes bool

	mu          sync.Mutex
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// NewTerminal creates a prompter on stdin/stderr.
func NewTerminal() *Terminal {
	return &Terminal{
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stderr,
		interactive: terminal.IsInteractive(),
	}
}

func (t *Terminal) Info(msg string)    { pterm.Info.WithWriter(t.out).Println(msg) }
func (t *Terminal) Warn(msg string)    { pterm.Warning.WithWriter(t.out).Println(msg) }
func (t *Terminal) Error(msg string)   { pterm.Error.WithWriter(t.out).Println(msg) }
func (t *Terminal) Success(msg string) { pterm.Success.WithWriter(t.out).Println(msg) }

func (t *Terminal) Confirm(prompt string, def bool) (bool, error) {
	if t.AssumeYes {
		return true, nil
	}
	if !t.interactive {
		return def, nil
	}
	return pterm.DefaultInteractiveConfirm.WithDefaultValue(def).Show(prompt)
}

func (t *Terminal) Select(prompt string, options []string, def string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("%s: no options", prompt)
	}
	if def == "" {
		def = options[0]
	}
	if !t.interactive {
		return def, nil
	}
	return pterm.DefaultInteractiveSelect.
		WithOptions(options).
		WithDefaultOption(def).
		Show(prompt)
}

func (t *Terminal) MultiSelect(prompt string, options, defaults []string) ([]string, error) {
	if !t.interactive || t.AssumeYes {
		return defaults, nil
	}
	return pterm.DefaultInteractiveMultiselect.
		WithOptions(options).
		WithDefaultOptions(defaults).
		WithFilter(false).
		Show(prompt)
}

func (t *Terminal) Input(prompt, def string) (string, error) {
	if t.interactive {
		return pterm.DefaultInteractiveTextInput.WithDefaultValue(def).Show(prompt)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return def, nil
		}
		return "", err
	}
	if line = strings.TrimSpace(line); line == "" {
		return def, nil
	}
	return line, nil
}

// Password reads a secret with masked echo. The prompt line is cleared
// afterwards so nothing about the secret stays on screen.
func (t *Terminal) Password(prompt string) (string, error) {
	if !t.interactive {
		return "", ErrNotInteractive
	}
	pw, err := pterm.DefaultInteractiveTextInput.WithMask("*").Show(prompt)
	if err != nil {
		return "", err
	}
	terminal.ClearPreviousLines(t.out, len(prompt)+len(pw)+2)
	return pw, nil
}

func (t *Terminal) Progress(title string) func() {
	if !t.interactive {
		pterm.Info.WithWriter(t.out).Println(title + "...")
		return func() {}
	}
	return startSpinner(title)
}

func (t *Terminal) Open(path string) error {
	return OpenFile(path)
}
