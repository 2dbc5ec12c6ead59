// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package results

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"impyla/cli/internal/errors"
	"impyla/cli/internal/impala"
	"impyla/cli/internal/logging"
)

// State is what the results panel currently shows.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateError
	StateResults
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateResults:
		return "results"
	default:
		return "empty"
	}
}

// Document is the content of one panel state.
type Document struct {
	State       State
	Title       string
	Heading     string
	Message     string
	Kind        string
	RenderedSQL string

	Columns  []string
	Rows     [][]Cell
	RowCount int
	Elapsed  string
	HasMore  bool
	MaxRows  int
	Plugins  []string
}

// Cell is one formatted table cell.
type Cell struct {
	Text  string
	Class string
}

// NullText is shown for SQL NULL.
const NullText = "NULL"

// FormatCell renders a value decoded from the query helper.
func FormatCell(v any) Cell {
	switch x := v.(type) {
	case nil:
		return Cell{Text: NullText, Class: "null"}
	case string:
		return Cell{Text: x}
	case json.Number:
		return Cell{Text: x.String(), Class: "num"}
	case float64:
		return Cell{Text: strconv.FormatFloat(x, 'f', -1, 64), Class: "num"}
	case int, int64:
		return Cell{Text: fmt.Sprint(x), Class: "num"}
	case bool:
		return Cell{Text: strconv.FormatBool(x)}
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return Cell{Text: fmt.Sprint(x)}
		}
		return Cell{Text: string(b)}
	}
}

func loadingDocument(sql string) *Document {
	return &Document{
		State:       StateLoading,
		Title:       "Impala Query Results",
		Heading:     "Executing query...",
		Message:     "Executing query...",
		RenderedSQL: sql,
	}
}

func errorDocument(kind, message, sql string) *Document {
	heading := "Query Error"
	if kind != "" {
		heading = logging.QueryErrorTitle(errors.Kind(kind))
	}
	return &Document{
		State:       StateError,
		Title:       "Impala Query Error",
		Heading:     heading,
		Kind:        kind,
		Message:     message,
		RenderedSQL: sql,
	}
}

// Query carries what the results page shows besides the rows themselves.
type Query struct {
	RenderedSQL string
	MaxRows     int
	Plugins     []string
}

func resultsDocument(res *impala.Result, q Query) *Document {
	doc := &Document{
		State:       StateResults,
		Title:       "Impala Query Results",
		Heading:     "Query Results",
		RenderedSQL: q.RenderedSQL,
		Columns:     res.Columns,
		RowCount:    res.RowCount,
		Elapsed:     formatElapsed(res.ExecutionTime),
		HasMore:     res.HasMore,
		MaxRows:     q.MaxRows,
		Plugins:     q.Plugins,
	}
	doc.Rows = make([][]Cell, 0, len(res.Rows))
	for _, row := range res.Rows {
		cells := make([]Cell, len(row))
		for i, v := range row {
			cells[i] = FormatCell(v)
		}
		doc.Rows = append(doc.Rows, cells)
	}
	return doc
}

func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%d ms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2f s", d.Seconds())
}
