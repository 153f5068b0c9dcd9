// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"html/template"
	"time"

	"github.com/pkg/errors"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter writes a transcript as a standalone HTML page. User turns
// are blue bubbles on the right and bot turns gray bubbles on the left.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates an HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

type htmlTurn struct {
	Class string
	Label string
	Text  string
}

type htmlPage struct {
	Title     string
	Theme     string
	Model     string
	Exported  string
	Timestamp string
	Metadata  bool
	Turns     []htmlTurn
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta name="generator" content="formchat">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; margin: 0; }
        body.dark-theme { background: #1e1e2e; color: #e0e0e0; }
        body.light-theme { background: #ffffff; color: #1f2937; }
        .container { max-width: 860px; margin: 0 auto; padding: 24px; }
        .turn { display: flex; flex-direction: column; margin: 12px 0; }
        .turn .label { font-size: 12px; opacity: 0.7; margin-bottom: 4px; }
        .bubble { max-width: 70%; padding: 10px 14px; border-radius: 12px; white-space: pre-wrap; }
        .user { align-items: flex-end; }
        .user .bubble { background: #3b82f6; color: #ffffff; }
        .bot { align-items: flex-start; }
        .bot .bubble { background: #6b7280; color: #ffffff; }
        .meta, .footer { font-size: 13px; opacity: 0.7; }
    </style>
</head>
<body class="{{.Theme}}-theme">
    <div class="container">
        <h1>{{.Title}}</h1>
{{- if .Metadata}}
        <p class="meta">Model: {{.Model}} &middot; <time datetime="{{.Timestamp}}">{{.Exported}}</time></p>
{{- end}}
        <main class="conversation">
{{- range .Turns}}
            <div class="turn {{.Class}}">
                <span class="label">{{.Label}}</span>
                <div class="bubble">{{.Text}}</div>
            </div>
{{- end}}
        </main>
        <footer class="footer">Exported from formchat</footer>
    </div>
</body>
</html>
`))

// Export renders doc as HTML. Turn text is escaped.
func (e *HTMLExporter) Export(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, errors.New("document is nil")
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	page := htmlPage{
		Title:     doc.Title,
		Theme:     theme,
		Model:     doc.Model,
		Exported:  doc.ExportedAt.Format("January 2, 2006 at 3:04 PM"),
		Timestamp: doc.ExportedAt.Format(time.RFC3339),
		Metadata:  e.options.IncludeMetadata,
		Turns:     make([]htmlTurn, len(doc.Turns)),
	}
	for i, t := range doc.Turns {
		page.Turns[i] = htmlTurn{Class: t.Role.String(), Label: roleLabel(t.Role), Text: t.Text}
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return nil, errors.Wrap(err, "render html")
	}
	return buf.Bytes(), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}
