// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"impyla/cli/internal/session"
)

// readDocument loads the SQL named by args ("-" or no argument reads stdin)
// and applies the --lines selection.
func readDocument(args []string, lines string) (session.Document, error) {
	var doc session.Document
	var data []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		doc.Path, err = filepath.Abs(args[0])
		if err == nil {
			data, err = os.ReadFile(doc.Path)
		}
		doc.BaseDir = filepath.Dir(doc.Path)
	}
	if err != nil {
		return doc, err
	}
	doc.Text = string(data)

	if lines != "" {
		doc.Selection, err = selectLines(doc.Text, lines)
		if err != nil {
			return doc, err
		}
	}
	return doc, nil
}

// selectLines returns the 1-based inclusive line range ("N", "A:B",
// "A:" or ":B") of text.
func selectLines(text, rng string) (string, error) {
	all := strings.Split(text, "\n")
	from, to := 1, len(all)

	parse := func(s string, def int) (int, error) {
		if s == "" {
			return def, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return 0, fmt.Errorf("invalid line number %q in --lines %s", s, rng)
		}
		return n, nil
	}

	var err error
	if a, b, ok := strings.Cut(rng, ":"); ok {
		if from, err = parse(a, 1); err != nil {
			return "", err
		}
		if to, err = parse(b, len(all)); err != nil {
			return "", err
		}
	} else {
		if from, err = parse(rng, 0); err != nil {
			return "", err
		}
		to = from
	}
	if from > to {
		return "", fmt.Errorf("--lines %s: start is after end", rng)
	}
	if from > len(all) {
		return "", fmt.Errorf("--lines %s: the document has %d lines", rng, len(all))
	}
	if to > len(all) {
		to = len(all)
	}
	return strings.Join(all[from-1:to], "\n"), nil
}
