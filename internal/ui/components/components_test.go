// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/formchat/internal/ui/styles"
)

// =============================================================================
// TOAST TESTS
// =============================================================================

func TestToast_Expiry(t *testing.T) {
	sticky := NewToast("backend unreachable", ToastKindError, true)
	assert.False(t, sticky.IsExpired(time.Now().Add(time.Hour)))

	info := NewInfoToast("history cleared")
	assert.False(t, info.IsExpired(info.CreatedAt))
	assert.True(t, info.IsExpired(info.CreatedAt.Add(InfoToastDuration)))
}

func TestToast_Render(t *testing.T) {
	theme := styles.NewTheme(styles.ThemeDark)

	out := NewToast("Could not reach the backend", ToastKindError, true).Render(theme, 60)
	assert.Contains(t, out, "Could not reach the backend")
	assert.Contains(t, out, "ctrl+r retry")
	assert.Contains(t, out, "esc dismiss")

	out = NewToast("Type a message first.", ToastKindInfo, false).Render(theme, 60)
	assert.NotContains(t, out, "retry")

	assert.Empty(t, Toast{}.Render(theme, 60))
}

func TestToast_RenderTruncatesWideText(t *testing.T) {
	theme := styles.NewTheme(styles.ThemeDark)
	msg := strings.Repeat("模型", 50)

	out := NewToast(msg, ToastKindWarning, false).Render(theme, 30)
	assert.NotContains(t, out, msg)
	assert.Contains(t, out, "…")
}

// =============================================================================
// DROPDOWN TESTS
// =============================================================================

func TestDropdown_OpenPlacesCursorOnCurrent(t *testing.T) {
	d := NewDropdown("Model", 5)
	d.SetItems([]string{"a", "text-davinci-003", "gpt-3.5"})

	d.Open("gpt-3.5")
	assert.True(t, d.IsOpen())
	assert.Equal(t, 2, d.Cursor())

	d.Open("missing")
	assert.Equal(t, 0, d.Cursor())
}

func TestDropdown_NavigationWraps(t *testing.T) {
	d := NewDropdown("Model", 5)
	d.SetItems([]string{"a", "b", "c"})
	d.Open("a")

	d.Up()
	assert.Equal(t, 2, d.Cursor())
	d.Down()
	assert.Equal(t, 0, d.Cursor())
	d.Down()

	got, ok := d.Choose()
	assert.True(t, ok)
	assert.Equal(t, "b", got)
	assert.False(t, d.IsOpen())
}

func TestDropdown_ChooseEmpty(t *testing.T) {
	d := NewDropdown("Model", 5)
	d.Open("text-davinci-003")
	d.Down()

	_, ok := d.Choose()
	assert.False(t, ok)
}

func TestDropdown_RenderWindow(t *testing.T) {
	theme := styles.NewTheme(styles.ThemeDark)
	d := NewDropdown("Model", 2)
	d.SetItems([]string{"alpha", "beta", "gamma", "delta"})

	assert.Empty(t, d.Render(theme, 40))

	d.Open("alpha")
	out := d.Render(theme, 40)
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "beta")
	assert.NotContains(t, out, "gamma")
	assert.Contains(t, out, "1/4")

	d.Down()
	d.Down()
	out = d.Render(theme, 40)
	assert.Contains(t, out, "gamma")
	assert.NotContains(t, out, "alpha")
	assert.Contains(t, out, "3/4")
}

func TestDropdown_RenderNoItems(t *testing.T) {
	theme := styles.NewTheme(styles.ThemeDark)
	d := NewDropdown("Model", 3)
	d.Open("")
	assert.Contains(t, d.Render(theme, 40), "no models available")
}
