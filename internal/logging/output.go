// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"impyla/cli/internal/xdg"

	"github.com/pterm/pterm"
)

// OutputFileName is the diagnostic log file inside the XDG state dir.
const OutputFileName = "output.log"

// Output is the diagnostic log. Every record goes to a JSON log file that
// 'impyla output' can show later; in verbose mode records are mirrored to
// stderr in pterm's colorful format.
type Output struct {
	file    *pterm.Logger
	console *pterm.Logger
	closer  io.Closer
	path    string
}

// OpenOutput opens (appending) the diagnostic log in the state directory.
func OpenOutput(verbose bool) (*Output, error) {
	dir, err := xdg.StateDir()
	if err != nil {
		return nil, err
	}
	p := filepath.Join(dir, OutputFileName)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	out := NewOutput(f, verbose)
	out.closer = f
	out.path = p
	return out, nil
}

// NewOutput builds an Output writing JSON records to w.
func NewOutput(w io.Writer, verbose bool) *Output {
	out := &Output{
		file: pterm.DefaultLogger.
			WithFormatter(pterm.LogFormatterJSON).
			WithWriter(w).
			WithLevel(pterm.LogLevelDebug),
	}
	if verbose {
		out.console = pterm.DefaultLogger.
			WithWriter(os.Stderr).
			WithLevel(pterm.LogLevelDebug)
	}
	return out
}

// Discard returns an Output that drops every record.
func Discard() *Output { return NewOutput(io.Discard, false) }

// Path returns the log file path, or "" for outputs not backed by a file.
func (o *Output) Path() string { return o.path }

// Close closes the underlying log file.
func (o *Output) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}

func (o *Output) Debug(msg string, args ...any) { o.log(pterm.LogLevelDebug, msg, args) }
func (o *Output) Info(msg string, args ...any)  { o.log(pterm.LogLevelInfo, msg, args) }
func (o *Output) Warn(msg string, args ...any)  { o.log(pterm.LogLevelWarn, msg, args) }
func (o *Output) Error(msg string, args ...any) { o.log(pterm.LogLevelError, msg, args) }

func (o *Output) log(level pterm.LogLevel, msg string, args []any) {
	msg = Mask(msg)
	for i := 1; i < len(args); i += 2 {
		if s, ok := args[i].(string); ok {
			args[i] = Mask(s)
		}
	}
	for _, l := range []*pterm.Logger{o.file, o.console} {
		if l == nil {
			continue
		}
		la := l.Args(args...)
		switch level {
		case pterm.LogLevelDebug:
			l.Debug(msg, la)
		case pterm.LogLevelWarn:
			l.Warn(msg, la)
		case pterm.LogLevelError:
			l.Error(msg, la)
		default:
			l.Info(msg, la)
		}
	}
}

// LineWriter returns a writer that logs every complete line written to it
// as an info record under the given source key. Close flushes a trailing
// partial line.
func (o *Output) LineWriter(source string) io.WriteCloser {
	return &lineWriter{out: o, source: source}
}

type lineWriter struct {
	mu     sync.Mutex
	out    *Output
	source string
	buf    bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// keep the partial line for the next write
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.emit(line)
	}
	return len(p), nil
}

func (w *lineWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
	return nil
}

func (w *lineWriter) emit(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	w.out.Info(line, "source", w.source)
}

// Tail returns the last n lines of the log file at path.
func Tail(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, sc.Err()
}
