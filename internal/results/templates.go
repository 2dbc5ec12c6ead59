// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package results

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
)

//go:embed templates/*
var templateFS embed.FS

var pageTmpls map[State]*template.Template

var funcs = template.FuncMap{"join": strings.Join}

// pageDefinitions maps states to their page template files
func pageDefinitions() map[State]string {
	return map[State]string{
		StateEmpty:   "templates/empty.html",
		StateLoading: "templates/loading.html",
		StateError:   "templates/error.html",
		StateResults: "templates/results.html",
	}
}

func init() {
	layout := template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/sql.html"))
	pageTmpls = make(map[State]*template.Template)
	for state, path := range pageDefinitions() {
		tmpl := template.Must(layout.Clone())
		pageTmpls[state] = template.Must(tmpl.ParseFS(templateFS, path))
	}
}

// render executes the page template for the document's state. All text is
// HTML-escaped by html/template.
func render(doc *Document, live bool, version int) ([]byte, error) {
	tmpl, ok := pageTmpls[doc.State]
	if !ok {
		tmpl = pageTmpls[StateEmpty]
	}
	data := struct {
		*Document
		Live    bool
		Version int
	}{doc, live, version}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
