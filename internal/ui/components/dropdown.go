// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/jeranaias/formchat/internal/ui/styles"
	"github.com/jeranaias/formchat/internal/util"
)

// Dropdown is a single-choice list. It does not handle keys itself; the
// owning model calls Up, Down and Choose.
type Dropdown struct {
	Title string

	items   []string
	current string
	cursor  int
	offset  int
	open    bool
	rows    int
}

// NewDropdown creates a closed dropdown showing at most rows entries at once.
func NewDropdown(title string, rows int) *Dropdown {
	if rows < 1 {
		rows = 1
	}
	return &Dropdown{Title: title, rows: rows}
}

// SetItems replaces the entries.
func (d *Dropdown) SetItems(items []string) {
	d.items = append(d.items[:0:0], items...)
	d.clamp()
}

// SetRows changes how many entries are visible at once.
func (d *Dropdown) SetRows(rows int) {
	if rows < 1 {
		rows = 1
	}
	d.rows = rows
	d.clamp()
}

// Open shows the list with the cursor on current when it is present.
func (d *Dropdown) Open(current string) {
	d.open = true
	d.current = current
	d.cursor = 0
	for i, item := range d.items {
		if item == current {
			d.cursor = i
			break
		}
	}
	d.clamp()
}

// Close hides the list.
func (d *Dropdown) Close() {
	d.open = false
}

// IsOpen reports whether the list is shown.
func (d *Dropdown) IsOpen() bool {
	return d.open
}

// Up moves the cursor up, wrapping at the top.
func (d *Dropdown) Up() {
	if len(d.items) == 0 {
		return
	}
	d.cursor = (d.cursor - 1 + len(d.items)) % len(d.items)
	d.clamp()
}

// Down moves the cursor down, wrapping at the bottom.
func (d *Dropdown) Down() {
	if len(d.items) == 0 {
		return
	}
	d.cursor = (d.cursor + 1) % len(d.items)
	d.clamp()
}

// Cursor returns the cursor index.
func (d *Dropdown) Cursor() int {
	return d.cursor
}

// Choose closes the list and returns the entry under the cursor. ok is false
// when there are no entries.
func (d *Dropdown) Choose() (string, bool) {
	d.open = false
	if len(d.items) == 0 {
		return "", false
	}
	d.current = d.items[d.cursor]
	return d.current, true
}

// clamp keeps the cursor in range and inside the visible window.
func (d *Dropdown) clamp() {
	if d.cursor >= len(d.items) {
		d.cursor = len(d.items) - 1
	}
	if d.cursor < 0 {
		d.cursor = 0
	}
	if d.cursor < d.offset {
		d.offset = d.cursor
	}
	if d.cursor >= d.offset+d.rows {
		d.offset = d.cursor - d.rows + 1
	}
	if last := len(d.items) - d.rows; d.offset > last {
		d.offset = last
	}
	if d.offset < 0 {
		d.offset = 0
	}
}

// Render draws the open list no wider than width cells. A closed dropdown
// renders as the empty string.
func (d *Dropdown) Render(theme *styles.Theme, width int) string {
	if !d.open {
		return ""
	}

	inner := width - 4
	if inner < 12 {
		inner = 12
	}

	var b strings.Builder
	b.WriteString(theme.DropdownTitle.Render(util.TruncateWidth(d.Title, inner)))

	if len(d.items) == 0 {
		b.WriteString("\n")
		b.WriteString(theme.ShortcutDesc.Render("no models available"))
		return theme.DropdownBox.Render(b.String())
	}

	end := d.offset + d.rows
	if end > len(d.items) {
		end = len(d.items)
	}
	for i := d.offset; i < end; i++ {
		item := d.items[i]
		marker := "  "
		if item == d.current {
			marker = "• "
		}
		text := util.PadWidth(util.TruncateWidth(marker+item, inner), inner)

		b.WriteString("\n")
		switch {
		case i == d.cursor:
			b.WriteString(theme.DropdownCursor.Render(text))
		case item == d.current:
			b.WriteString(theme.DropdownSelected.Render(text))
		default:
			b.WriteString(theme.DropdownItem.Render(text))
		}
	}

	if len(d.items) > d.rows {
		b.WriteString("\n")
		b.WriteString(theme.ShortcutDesc.Render(fmt.Sprintf("%d/%d", d.cursor+1, len(d.items))))
	}
	return theme.DropdownBox.Render(b.String())
}
