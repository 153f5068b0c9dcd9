// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/formchat/internal/ui/styles"
	"github.com/jeranaias/formchat/internal/util"
)

// =============================================================================
// TOAST TYPES
// =============================================================================

// ToastKind selects the toast color.
type ToastKind int

const (
	ToastKindInfo ToastKind = iota
	ToastKindWarning
	ToastKindError
)

// InfoToastDuration is how long an informational toast stays up.
const InfoToastDuration = 4 * time.Second

// Toast is a dismissible status message. A zero Duration keeps it until
// dismissed.
type Toast struct {
	Message   string
	Kind      ToastKind
	Retryable bool
	CreatedAt time.Time
	Duration  time.Duration
}

// NewToast creates a sticky toast.
func NewToast(message string, kind ToastKind, retryable bool) Toast {
	return Toast{Message: message, Kind: kind, Retryable: retryable, CreatedAt: time.Now()}
}

// NewInfoToast creates a toast that expires after InfoToastDuration.
func NewInfoToast(message string) Toast {
	t := NewToast(message, ToastKindInfo, false)
	t.Duration = InfoToastDuration
	return t
}

// Visible reports whether there is anything to render.
func (t Toast) Visible() bool {
	return t.Message != ""
}

// IsExpired reports whether an expiring toast has run its course at now.
func (t Toast) IsExpired(now time.Time) bool {
	return t.Duration > 0 && now.Sub(t.CreatedAt) >= t.Duration
}

// ToastTickMsg drives expiry of timed toasts.
type ToastTickMsg struct {
	Time time.Time
}

// ToastTickCmd schedules the next expiry check.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return ToastTickMsg{Time: t}
	})
}

// =============================================================================
// TOAST RENDERING
// =============================================================================

var toastIcons = map[ToastKind]string{
	ToastKindInfo:    "i",
	ToastKindWarning: "!",
	ToastKindError:   "x",
}

// Render draws the toast no wider than width cells.
func (t Toast) Render(theme *styles.Theme, width int) string {
	if !t.Visible() {
		return ""
	}

	style := theme.ToastInfo
	switch t.Kind {
	case ToastKindWarning:
		style = theme.ToastWarning
	case ToastKindError:
		style = theme.ToastError
	}

	// Border and padding take four cells.
	inner := width - 4
	if inner < 10 {
		inner = 10
	}

	line := toastIcons[t.Kind] + " " + util.OneLine(t.Message)
	hints := []string{"esc dismiss"}
	if t.Retryable {
		hints = append([]string{"ctrl+r retry"}, hints...)
	}

	content := util.TruncateWidth(line, inner) + "\n" +
		theme.ShortcutDesc.Render(util.TruncateWidth(strings.Join(hints, "  "), inner))
	return style.Render(content)
}
