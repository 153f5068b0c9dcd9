// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/formchat/internal/pipeline"
	"github.com/jeranaias/formchat/internal/selector"
	"github.com/jeranaias/formchat/internal/ui/components"
	"github.com/jeranaias/formchat/internal/ui/styles"
)

// maxInputLength bounds the textarea; the server rejects longer messages.
const maxInputLength = 100000

// Layout heights of the fixed rows around the transcript.
const (
	headerHeight = 1
	inputHeight  = 3
	footerHeight = 1
)

// =============================================================================
// MODEL
// =============================================================================

// Options configures a chat Model.
type Options struct {
	// Context bounds every backend and storage call. Defaults to
	// context.Background.
	Context  context.Context
	Pipeline *pipeline.Pipeline
	Selector *selector.Selector
	Theme    *styles.Theme
	// Markdown renders bot replies with glamour.
	Markdown bool
	// StorageErr is reported once the transcript is restored. It is set
	// when history cannot be saved this session.
	StorageErr error
}

// Model is the Bubble Tea model for the chat form.
type Model struct {
	ctx      context.Context
	pipeline *pipeline.Pipeline
	selector *selector.Selector
	theme    *styles.Theme
	keys     KeyMap

	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	dropdown *components.Dropdown
	toast    components.Toast

	markdown   bool
	renderer   *glamour.TermRenderer
	renderedAt int
	storageErr error

	width  int
	height int
	ready  bool
}

// New creates a chat model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(styles.ThemeAuto)
	}

	ta := textarea.New()
	ta.Placeholder = "Type your query"
	ta.ShowLineNumbers = false
	ta.Prompt = "> "
	ta.CharLimit = maxInputLength
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.Focus()

	sp := spinner.New(
		spinner.WithSpinner(spinner.Points),
		spinner.WithStyle(theme.Spinner),
	)

	return Model{
		ctx:        ctx,
		pipeline:   opts.Pipeline,
		selector:   opts.Selector,
		theme:      theme,
		keys:       DefaultKeyMap(),
		input:      ta,
		viewport:   viewport.New(80, 20),
		spinner:    sp,
		dropdown:   components.NewDropdown("Model", 8),
		markdown:   opts.Markdown,
		storageErr: opts.StorageErr,
	}
}

// Init restores the saved transcript and fetches the model list.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.restoreCmd(), m.loadModelsCmd())
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case RestoredMsg:
		m.refresh()
		if msg.Err != nil {
			m.pipeline.SetStatus(pipeline.Classify(msg.Err))
			cmd := m.showStatus(m.pipeline.Status())
			return m, cmd
		}
		return m, nil

	case ModelsLoadedMsg:
		return m.handleModelsLoaded(msg)

	case ReplyMsg:
		m.refresh()
		cmd := m.showStatus(msg.Result.Status)
		return m, cmd

	case spinner.TickMsg:
		if m.pipeline.State() != pipeline.Submitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case components.ToastTickMsg:
		if m.toast.IsExpired(msg.Time) {
			m.dismiss()
			return m, nil
		}
		if m.toast.Visible() && m.toast.Duration > 0 {
			return m, components.ToastTickCmd()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)
	m.input.SetWidth(msg.Width)
	m.viewport.Width = msg.Width

	if m.markdown && m.renderedAt != m.theme.BubbleWidth() {
		m.renderer = newRenderer(m.theme)
		m.renderedAt = m.theme.BubbleWidth()
	}

	m.ready = true
	m.layout()
	m.refresh()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if m.dropdown.IsOpen() {
		return m.handleDropdownKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Dismiss):
		m.dismiss()
		return m, nil

	case key.Matches(msg, m.keys.Models):
		m.dropdown.SetItems(m.selector.IDs())
		m.dropdown.Open(m.selector.Current())
		if !m.selector.Loaded() {
			return m, m.loadModelsCmd()
		}
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		if err := m.pipeline.Clear(m.ctx); err != nil {
			cmd := m.showStatus(m.pipeline.Status())
			return m, cmd
		}
		m.refresh()
		cmd := m.showStatus(pipeline.Status{Kind: pipeline.KindInfo, Message: "History cleared."})
		return m, cmd

	case key.Matches(msg, m.keys.Retry):
		sub, err := m.pipeline.BeginRetry()
		if err != nil {
			cmd := m.showStatus(m.pipeline.Status())
			return m, cmd
		}
		return m.startRun(sub)

	case key.Matches(msg, m.keys.Submit):
		sub, err := m.pipeline.Begin(m.input.Value())
		if errors.Is(err, pipeline.ErrEmptyInput) {
			return m, nil
		}
		if err != nil {
			cmd := m.showStatus(m.pipeline.Status())
			return m, cmd
		}
		m.input.Reset()
		return m.startRun(sub)

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleDropdownKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.dropdown.Up()
	case key.Matches(msg, m.keys.Down):
		m.dropdown.Down()
	case key.Matches(msg, m.keys.Submit):
		id, ok := m.dropdown.Choose()
		m.dropdown.Close()
		if ok && id != m.selector.Current() {
			m.selector.Select(id)
			log.Info().Str("model", id).Msg("model selected")
			cmd := m.showStatus(pipeline.Status{Kind: pipeline.KindInfo, Message: "Model set to " + id + "."})
			return m, cmd
		}
	case key.Matches(msg, m.keys.Dismiss), key.Matches(msg, m.keys.Models):
		m.dropdown.Close()
	}
	return m, nil
}

func (m Model) handleModelsLoaded(msg ModelsLoadedMsg) (tea.Model, tea.Cmd) {
	m.dropdown.SetItems(m.selector.IDs())
	if msg.Err == nil {
		return m, nil
	}

	var missing *selector.DefaultMissingError
	status := pipeline.Classify(msg.Err)
	if !errors.As(msg.Err, &missing) {
		status = pipeline.Status{
			Kind:    pipeline.KindNetworkFailure,
			Message: "Could not load models: " + msg.Err.Error(),
		}
	}
	cmd := m.showStatus(status)
	return m, cmd
}

// startRun shows the echo and loading indicator and runs sub in the
// background.
func (m Model) startRun(sub pipeline.Submission) (tea.Model, tea.Cmd) {
	m.toast = components.Toast{}
	m.layout()
	m.refresh()

	p, ctx := m.pipeline, m.ctx
	run := func() tea.Msg {
		res, err := p.Run(ctx, sub)
		return ReplyMsg{Result: res, Err: err}
	}
	return m, tea.Batch(m.spinner.Tick, run)
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) restoreCmd() tea.Cmd {
	store, ctx, storageErr := m.pipeline.Store(), m.ctx, m.storageErr
	return func() tea.Msg {
		turns, err := store.Restore(ctx)
		if err == nil {
			err = storageErr
		}
		return RestoredMsg{Turns: turns, Err: err}
	}
}

func (m Model) loadModelsCmd() tea.Cmd {
	sel, ctx := m.selector, m.ctx
	return func() tea.Msg {
		return ModelsLoadedMsg{Err: sel.Load(ctx)}
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// showStatus replaces the toast with one describing s. Informational
// statuses expire on their own; everything else stays until dismissed.
func (m *Model) showStatus(s pipeline.Status) tea.Cmd {
	defer m.layout()

	switch s.Kind {
	case pipeline.KindNone:
		m.toast = components.Toast{}
		return nil
	case pipeline.KindEmptyInput, pipeline.KindBusy, pipeline.KindInfo:
		m.toast = components.NewInfoToast(s.Message)
		return components.ToastTickCmd()
	case pipeline.KindWarning:
		m.toast = components.NewToast(s.Message, components.ToastKindWarning, false)
	default:
		m.toast = components.NewToast(s.Message, components.ToastKindError, s.Retryable)
	}
	return nil
}

func (m *Model) dismiss() {
	m.toast = components.Toast{}
	m.pipeline.DismissStatus()
	m.layout()
}

// layout sizes the viewport to the space left between the fixed rows.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	// The input box adds a border row above the textarea.
	used := headerHeight + inputHeight + 1 + footerHeight
	if m.toast.Visible() {
		used += lipgloss.Height(m.toast.Render(m.theme, m.width))
	}
	h := m.height - used
	if h < 1 {
		h = 1
	}
	m.viewport.Height = h

	rows := h - 3
	if rows < 1 {
		rows = 1
	}
	m.dropdown.SetRows(rows)
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// Input returns the current contents of the message box.
func (m Model) Input() string {
	return m.input.Value()
}

// Toast returns the status toast currently shown.
func (m Model) Toast() components.Toast {
	return m.toast
}

// DropdownOpen reports whether the model list is showing.
func (m Model) DropdownOpen() bool {
	return m.dropdown.IsOpen()
}

func newRenderer(theme *styles.Theme) *glamour.TermRenderer {
	style := "light"
	if theme.IsDark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(theme.BubbleWidth()-4),
	)
	if err != nil {
		log.Warn().Err(err).Msg("markdown renderer unavailable")
		return nil
	}
	return r
}
