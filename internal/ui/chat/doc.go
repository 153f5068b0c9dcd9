// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen terminal chat form.
//
// The Model is a Bubble Tea program built from a textarea for the message,
// a viewport holding the transcript, a spinner shown while a reply is in
// flight, a model dropdown and a single status toast. All state transitions
// are delegated to the submission pipeline; the Model only maps pipeline
// results onto the screen.
//
// Key bindings:
//
//	Enter        submit the message
//	Alt+Enter    insert a newline
//	Ctrl+O       choose the model
//	Ctrl+L       clear the history
//	Ctrl+R       retry the last failed message
//	Esc          dismiss the status, or close the dropdown
//	Ctrl+C       quit
package chat
