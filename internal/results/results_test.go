// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package results

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"impyla/cli/internal/impala"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSurface keeps what it was asked to show.
type recordingSurface struct {
	shown   []*Document
	reveals int
}

func (r *recordingSurface) Show(doc *Document) error { r.shown = append(r.shown, doc); return nil }
func (r *recordingSurface) Reveal() error            { r.reveals++; return nil }

func sampleResult() *impala.Result {
	return &impala.Result{
		Columns:       []string{"a", "b"},
		Rows:          [][]any{{json.Number("1"), "x"}, {nil, "y"}},
		RowCount:      2,
		ExecutionTime: 15 * time.Millisecond,
	}
}

var cellPattern = regexp.MustCompile(`<td[^>]*>([^<]*)</td>`)

func TestResultsDocumentRendersNullAndRows(t *testing.T) {
	b, err := render(resultsDocument(sampleResult(), Query{}), false, 0)
	require.NoError(t, err)
	html := string(b)

	cells := cellPattern.FindAllStringSubmatch(html, -1)
	require.Len(t, cells, 4)
	assert.Equal(t, "1", cells[0][1])
	assert.Equal(t, "x", cells[1][1])
	assert.Equal(t, "NULL", cells[2][1])
	assert.Equal(t, "y", cells[3][1])
	assert.Contains(t, html, "2 rows")
	assert.Contains(t, html, "15 ms")
	assert.NotContains(t, html, "<details>", "no rendered SQL section without a template")
}

func TestCellTextIsEscaped(t *testing.T) {
	res := &impala.Result{
		Columns:  []string{`<th>"col"</th>`},
		Rows:     [][]any{{`<script>alert('x') & "y"</script>`}},
		RowCount: 1,
	}
	b, err := render(resultsDocument(res, Query{RenderedSQL: "SELECT '<b>'"}), false, 0)
	require.NoError(t, err)
	html := string(b)

	assert.NotContains(t, html, "<script>alert")
	assert.NotContains(t, html, `<th>"col"`)
	assert.Contains(t, html, "&lt;script&gt;alert(&#39;x&#39;) &amp; &#34;y&#34;&lt;/script&gt;")
	assert.Contains(t, html, "SELECT &#39;&lt;b&gt;&#39;")

	// no raw angle brackets inside any cell
	for _, m := range cellPattern.FindAllStringSubmatch(html, -1) {
		assert.NotContains(t, m[1], "<")
		assert.NotContains(t, m[1], ">")
	}
}

func TestRenderedSQLShownAboveTable(t *testing.T) {
	b, err := render(resultsDocument(sampleResult(), Query{RenderedSQL: "SELECT a, b FROM t", MaxRows: 2}), false, 0)
	require.NoError(t, err)
	html := string(b)

	details := strings.Index(html, "<details>")
	table := strings.Index(html, "<table>")
	require.NotEqual(t, -1, details)
	require.NotEqual(t, -1, table)
	assert.Less(t, details, table)
	assert.Contains(t, html, "SELECT a, b FROM t")
}

func TestHasMoreShowsLimit(t *testing.T) {
	res := sampleResult()
	res.HasMore = true
	b, err := render(resultsDocument(res, Query{MaxRows: 2}), false, 0)
	require.NoError(t, err)
	assert.Contains(t, string(b), "limited to 2 rows")
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, Cell{Text: "NULL", Class: "null"}, FormatCell(nil))
	assert.Equal(t, "12345678901234567890", FormatCell(json.Number("12345678901234567890")).Text)
	assert.Equal(t, "true", FormatCell(true).Text)
	assert.Equal(t, "1.5", FormatCell(1.5).Text)
	assert.Equal(t, `["a",1]`, FormatCell([]any{"a", 1}).Text)
}

func TestPanelTransitions(t *testing.T) {
	surface := &recordingSurface{}
	p := NewPresenter(func() (Surface, error) { return surface, nil })
	panel, err := p.Open()
	require.NoError(t, err)
	assert.Equal(t, StateEmpty, panel.State())

	require.NoError(t, panel.ShowLoading("SELECT 1"))
	assert.Equal(t, StateLoading, panel.State())

	require.NoError(t, panel.ShowError("ImpalaError", "boom", "SELECT 1"))
	assert.Equal(t, StateError, panel.State())

	require.NoError(t, panel.ShowResults(sampleResult(), Query{}))
	assert.Equal(t, StateResults, panel.State())

	require.Len(t, surface.shown, 3)
	assert.Equal(t, "boom", surface.shown[1].Message)
}

func TestOpenReusesPanel(t *testing.T) {
	created := 0
	surface := &recordingSurface{}
	p := NewPresenter(func() (Surface, error) {
		created++
		return surface, nil
	})

	first, err := p.Open()
	require.NoError(t, err)
	second, err := p.Open()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, created)
	assert.Equal(t, 2, surface.reveals)
}

func TestFileSurfaceWritesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), DocumentFileName)
	var revealed string
	fs := &FileSurface{Path: path, OnReveal: func(p string) error { revealed = p; return nil }}

	require.NoError(t, fs.Show(errorDocument("ConnectionError", "refused", "")))
	require.NoError(t, fs.Reveal())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "refused")
	assert.Contains(t, string(b), "Connection Failed")
	assert.NotContains(t, string(b), "/version", "file documents do not poll")
	assert.Equal(t, path, revealed)
}

func TestTeeFansOut(t *testing.T) {
	a, b := &recordingSurface{}, &recordingSurface{}
	tee := Tee{a, b}
	require.NoError(t, tee.Show(loadingDocument("SELECT 1")))
	require.NoError(t, tee.Reveal())
	assert.Len(t, a.shown, 1)
	assert.Len(t, b.shown, 1)
	assert.Equal(t, 1, a.reveals)
}

func TestPreviewServer(t *testing.T) {
	s := NewPreviewServer(nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	get := func(path string) (int, string, http.Header) {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body), resp.Header
	}

	code, body, _ := get("/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)

	_, body, _ = get("/version")
	assert.Equal(t, "0", body)

	require.NoError(t, s.Show(resultsDocument(sampleResult(), Query{})))

	_, body, _ = get("/version")
	assert.Equal(t, "1", body)

	code, body, hdr := get("/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, hdr.Get("Content-Type"), "text/html")
	assert.NotEmpty(t, hdr.Get("Cache-Control"))
	assert.Contains(t, body, "NULL")
	assert.Contains(t, body, `fetch("/version"`)
}

func TestPreviewServerRevealsOnce(t *testing.T) {
	s := NewPreviewServer(nil)
	calls := 0
	s.OnReveal = func(string) error { calls++; return nil }

	ln := httptest.NewUnstartedServer(nil).Listener
	s.listener = ln
	defer ln.Close()

	require.NoError(t, s.Reveal())
	require.NoError(t, s.Reveal())
	assert.Equal(t, 1, calls)
}
