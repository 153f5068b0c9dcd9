// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a chat transcript to a shareable file.
//
// # Supported Formats
//
//   - markdown: readable document with one section per turn
//   - json: machine-readable with the model and timestamp
//   - html: standalone page with user and bot bubbles
//
// # Usage
//
//	doc := export.NewDocument(store.Turns(), sel.Current())
//	exp, err := export.ForFormat("markdown", export.DefaultOptions())
//	path, err := export.ExportToFile(doc, exp, opts)
package export
