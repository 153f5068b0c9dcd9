// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter writes a transcript as JSON. The turns array has the same
// shape as the persisted transcript, so it can be loaded back as history.
type JSONExporter struct {
	options *Options
}

type jsonTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type jsonDocument struct {
	Title      string     `json:"title"`
	Model      string     `json:"model,omitempty"`
	ExportedAt *time.Time `json:"exported_at,omitempty"`
	Turns      []string   `json:"turns"`
	Messages   []jsonTurn `json:"messages"`
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export renders doc as indented JSON.
func (e *JSONExporter) Export(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, errors.New("document is nil")
	}

	out := jsonDocument{
		Title:    doc.Title,
		Turns:    make([]string, len(doc.Turns)),
		Messages: make([]jsonTurn, len(doc.Turns)),
	}
	if e.options.IncludeMetadata {
		out.Model = doc.Model
		ts := doc.ExportedAt.UTC()
		out.ExportedAt = &ts
	}
	for i, t := range doc.Turns {
		out.Turns[i] = t.Text
		out.Messages[i] = jsonTurn{Role: t.Role.String(), Text: t.Text}
	}

	return json.MarshalIndent(out, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
