// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/formchat/internal/pipeline"
	"github.com/jeranaias/formchat/internal/transcript"
	"github.com/jeranaias/formchat/internal/util"
)

// dropdownWidth caps the width of the model list.
const dropdownWidth = 48

// View renders the chat form.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	parts := []string{m.renderHeader()}

	if m.dropdown.IsOpen() {
		w := dropdownWidth
		if w > m.width {
			w = m.width
		}
		parts = append(parts, lipgloss.Place(m.width, m.viewport.Height,
			lipgloss.Left, lipgloss.Top, m.dropdown.Render(m.theme, w)))
	} else {
		parts = append(parts, m.viewport.View())
	}

	if m.toast.Visible() {
		parts = append(parts, m.toast.Render(m.theme, m.width))
	}

	parts = append(parts, m.renderInput(), m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// =============================================================================
// HEADER AND FOOTER
// =============================================================================

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("formchat")
	hint := m.theme.HeaderHint.Render("ctrl+o change")

	room := m.width - 2 - lipgloss.Width(title) - lipgloss.Width(hint) - 4
	model := m.theme.HeaderModel.Render(util.TruncateWidth(m.selector.Current(), room))

	return m.theme.Header.Width(m.width).Render(title + "  " + model + "  " + hint)
}

// renderFooter lists as many shortcuts as fit on one line.
func (m Model) renderFooter() string {
	var line string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		item := m.theme.ShortcutKey.Render(h.Key) + " " + m.theme.ShortcutDesc.Render(h.Desc)
		next := item
		if line != "" {
			next = line + "  " + item
		}
		if lipgloss.Width(next) > m.width-2 {
			break
		}
		line = next
	}
	return m.theme.StatusBar.Width(m.width).Render(line)
}

func (m Model) renderInput() string {
	return m.theme.InputContainer.Width(m.width).Render(m.input.View())
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m Model) renderTranscript() string {
	turns := m.pipeline.Store().Turns()
	submitting := m.pipeline.State() == pipeline.Submitting

	if len(turns) == 0 && !submitting {
		return m.theme.EmptyState.Render("No messages yet. Type your query below.")
	}

	blocks := make([]string, 0, len(turns)+1)
	for i, turn := range turns {
		blocks = append(blocks, m.renderTurn(transcript.RoleAt(i), turn))
	}
	if submitting {
		blocks = append(blocks, m.renderThinking())
	}
	return strings.Join(blocks, "\n")
}

// renderTurn draws one turn as a bubble. User turns sit on the right and bot
// turns on the left, each in its own color.
func (m Model) renderTurn(role transcript.Role, text string) string {
	maxWidth := m.theme.BubbleWidth()
	style := m.theme.UserBubble
	align := lipgloss.Right

	if role == transcript.RoleBot {
		style = m.theme.BotBubble
		align = lipgloss.Left
		if m.renderer != nil {
			if out, err := m.renderer.Render(text); err == nil {
				text = strings.Trim(out, "\n")
			}
		}
	}

	// Padding takes two cells of the styled width.
	if lipgloss.Width(text) > maxWidth-2 {
		style = style.Width(maxWidth)
	}

	bubble := lipgloss.JoinVertical(align,
		m.theme.TurnLabel.Render(role.String()),
		style.Render(text),
	)
	if role == transcript.RoleUser {
		return lipgloss.PlaceHorizontal(m.viewport.Width, lipgloss.Right, bubble)
	}
	return bubble
}

func (m Model) renderThinking() string {
	body := m.spinner.View() + " " + m.theme.ThinkingText.Render("thinking")
	return lipgloss.JoinVertical(lipgloss.Left,
		m.theme.TurnLabel.Render(transcript.RoleBot.String()),
		m.theme.BotBubble.Render(body),
	)
}
