// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package ui is how impyla talks to the person at the keyboard: one-line
// notices, interactive prompts, a progress spinner and opening files.
package ui

import "errors"

// ErrNotInteractive is returned by prompts that need an answer nobody can give.
var ErrNotInteractive = errors.New("this prompt needs an interactive terminal")

// Prompter shows notices and asks questions.
type Prompter interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Success(msg string)

	Confirm(prompt string, def bool) (bool, error)
	Select(prompt string, options []string, def string) (string, error)
	MultiSelect(prompt string, options, defaults []string) ([]string, error)
	Input(prompt, def string) (string, error)
	Password(prompt string) (string, error)

	// Progress shows an indeterminate progress indicator until stop is called.
	Progress(title string) (stop func())
	// Open shows a file to the user, in $VISUAL/$EDITOR when set.
	Open(path string) error
}
