// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable widgets for the formchat TUI.
//
//   - Toast: a dismissible status box, optionally offering a retry and
//     optionally expiring on its own.
//   - Dropdown: the model picker, a scrolling list with a cursor and a
//     highlighted current value.
//
// Widths are measured in terminal cells with go-runewidth so wide glyphs in
// model ids and messages do not break the layout.
package components
