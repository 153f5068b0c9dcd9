// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jeranaias/formchat/internal/transcript"
	"github.com/jeranaias/formchat/internal/util"
)

// maxTitleWidth bounds the title taken from the first user turn.
const maxTitleWidth = 60

// ErrEmptyTranscript is returned when there is nothing to export.
var ErrEmptyTranscript = errors.New("transcript is empty")

// =============================================================================
// DOCUMENT
// =============================================================================

// Turn is one transcript entry with its role.
type Turn struct {
	Role transcript.Role
	Text string
}

// Document is a transcript snapshot ready to export.
type Document struct {
	Title      string
	Model      string
	ExportedAt time.Time
	Turns      []Turn
}

// NewDocument snapshots turns. Roles alternate starting with the user.
func NewDocument(turns []string, model string) *Document {
	doc := &Document{
		Title:      "Chat transcript",
		Model:      model,
		ExportedAt: time.Now(),
		Turns:      make([]Turn, len(turns)),
	}
	for i, t := range turns {
		doc.Turns[i] = Turn{Role: transcript.RoleAt(i), Text: t}
	}
	if len(turns) > 0 {
		if title := util.TruncateWidth(util.OneLine(turns[0]), maxTitleWidth); title != "" {
			doc.Title = title
		}
	}
	return doc
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a Document in one file format.
type Exporter interface {
	Export(doc *Document) ([]byte, error)
	FileExtension() string
	MimeType() string
}

// Options configures export behavior.
type Options struct {
	// OutputDir is where files are written. Default: current directory.
	OutputDir string

	// IncludeMetadata adds the model and export time to the output.
	IncludeMetadata bool

	// Theme for HTML export ("light" or "dark").
	Theme string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		IncludeMetadata: true,
		Theme:           "dark",
	}
}

// Formats lists the names accepted by ForFormat.
func Formats() []string {
	return []string{"markdown", "json", "html"}
}

// ForFormat returns the exporter for a format name.
func ForFormat(name string, opts *Options) (Exporter, error) {
	switch strings.ToLower(name) {
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	case "html":
		return NewHTMLExporter(opts), nil
	default:
		return nil, errors.Errorf("unknown export format %q (want one of %s)",
			name, strings.Join(Formats(), ", "))
	}
}

// ExportToFile renders doc and writes it under opts.OutputDir. It returns
// the path written.
func ExportToFile(doc *Document, exporter Exporter, opts *Options) (string, error) {
	if doc == nil || len(doc.Turns) == 0 {
		return "", ErrEmptyTranscript
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(doc)
	if err != nil {
		return "", errors.Wrap(err, "render export")
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "create output directory")
	}

	name := generateFilename(doc, exporter.FileExtension())
	path := filepath.Join(dir, name)
	if err := util.AtomicWriteFile(path, content, 0644); err != nil {
		return "", errors.Wrap(err, "write export")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

// generateFilename builds "formchat_<title>_<timestamp><ext>".
func generateFilename(doc *Document, ext string) string {
	ts := doc.ExportedAt.Format("20060102_150405")
	return "formchat_" + sanitizeFilename(doc.Title) + "_" + ts + ext
}

// sanitizeFilename keeps letters, digits, dashes and underscores, turning
// runs of anything else into a single underscore.
func sanitizeFilename(s string) string {
	const maxLen = 40

	var sb strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			sb.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && sb.Len() > 0 {
				sb.WriteByte('_')
				lastUnderscore = true
			}
		}
		if sb.Len() >= maxLen {
			break
		}
	}

	out := strings.Trim(sb.String(), "_")
	if out == "" {
		return "transcript"
	}
	return out
}
