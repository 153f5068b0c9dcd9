// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/formchat/internal/config"
	"github.com/jeranaias/formchat/internal/logging"
	"github.com/jeranaias/formchat/internal/pipeline"
	"github.com/jeranaias/formchat/internal/transcript"
)

func newChatCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat line by line (works with pipes)",
		Long: `Chat line by line. Each input line is sent as one message.

Commands:
  /models        list available models
  /model <id>    switch model
  /history       print the transcript
  /clear         clear the history
  /retry         resend the last failed message
  /quit          exit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}
}

func runChat(cmd *cobra.Command, opts *rootOptions) error {
	cfg, closer, err := bootstrap(opts, logging.ModeConsole)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx := cmd.Context()
	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	repl := NewREPL(app, cmd.OutOrStdout(), cfg.UI.Markdown && IsStdoutTTY())
	repl.Start(ctx)
	return repl.Run(ctx)
}

// =============================================================================
// REPL
// =============================================================================

// REPL is the line-oriented chat front end.
type REPL struct {
	app      *App
	out      io.Writer
	renderer *glamour.TermRenderer

	// exportDir receives /export files.
	exportDir string
}

// NewREPL creates a REPL writing to out. With markdown set, replies are
// rendered through glamour.
func NewREPL(app *App, out io.Writer, markdown bool) *REPL {
	r := &REPL{app: app, out: out, exportDir: "."}
	if markdown {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(GetTerminalWidth()-4),
		)
		if err != nil {
			log.Warn().Err(err).Msg("markdown renderer unavailable")
		} else {
			r.renderer = renderer
		}
	}
	return r
}

// Start restores the saved transcript and loads the model list, reporting
// problems without stopping.
func (r *REPL) Start(ctx context.Context) {
	turns, err := r.app.Store.Restore(ctx)
	if err == nil {
		err = r.app.StorageErr
	}
	if err != nil {
		r.printStatus(pipeline.Classify(err))
	}

	if err := r.app.Selector.Load(ctx); err != nil {
		status := pipeline.Classify(err)
		if status.Kind != pipeline.KindWarning {
			status = pipeline.Status{Kind: pipeline.KindNetworkFailure, Message: "Could not load models: " + err.Error()}
		}
		r.printStatus(status)
	}

	fmt.Fprintln(r.out, welcomeStyle.Render("formchat"),
		infoStyle.Render(fmt.Sprintf("model %s, %d saved turns, /help for commands", r.app.Selector.Current(), len(turns))))
}

// Run reads lines until /quit, end of input or cancellation.
func (r *REPL) Run(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyFile := replHistoryPath()
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer saveReplHistory(line, historyFile)

	for ctx.Err() == nil {
		input, err := line.Prompt("formchat> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return errors.Wrap(err, "read input")
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		if !r.Handle(ctx, input) {
			return nil
		}
	}
	return nil
}

// Handle processes one input line. It returns false when the session should
// end.
func (r *REPL) Handle(ctx context.Context, input string) bool {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "/") {
		return r.command(ctx, trimmed)
	}

	res, err := r.app.Pipeline.Submit(ctx, input)
	if errors.Is(err, pipeline.ErrEmptyInput) {
		return true
	}
	if err != nil {
		r.printStatus(r.app.Pipeline.Status())
		return true
	}
	r.printReply(res.Reply)
	r.printStatus(res.Status)
	return true
}

func (r *REPL) command(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	name, args := fields[0], fields[1:]

	switch name {
	case "/quit", "/exit", "/q":
		return false

	case "/help", "/h":
		fmt.Fprintln(r.out, infoStyle.Render("/models  /model <id>  /history  /export [format]  /clear  /retry  /quit"))

	case "/models":
		if !r.app.Selector.Loaded() {
			if err := r.app.Selector.Load(ctx); err != nil && !r.app.Selector.Loaded() {
				r.printStatus(pipeline.Status{Kind: pipeline.KindNetworkFailure, Message: "Could not load models: " + err.Error()})
				return true
			}
		}
		r.printModels()

	case "/model":
		if len(args) == 0 {
			fmt.Fprintln(r.out, "Current model:", currentStyle.Render(r.app.Selector.Current()))
			return true
		}
		id := args[0]
		if ids := r.app.Selector.IDs(); len(ids) > 0 && !containsID(ids, id) {
			r.printStatus(pipeline.Status{Kind: pipeline.KindWarning, Message: fmt.Sprintf("Model %q is not in the backend's list; see /models.", id)})
		}
		r.app.Selector.Select(id)
		fmt.Fprintln(r.out, "Model set to", currentStyle.Render(id))

	case "/history":
		printTranscript(r.out, r.app.Store.Turns())

	case "/export":
		format := "markdown"
		if len(args) > 0 {
			format = args[0]
		}
		path, err := exportTranscript(r.app.Store.Turns(), r.app.Selector.Current(), format, r.exportDir)
		if err != nil {
			r.printStatus(pipeline.Status{Kind: pipeline.KindWarning, Message: "Export failed: " + err.Error()})
			return true
		}
		fmt.Fprintln(r.out, "Exported to", currentStyle.Render(path))

	case "/clear":
		if err := r.app.Pipeline.Clear(ctx); err != nil {
			r.printStatus(r.app.Pipeline.Status())
			return true
		}
		fmt.Fprintln(r.out, infoStyle.Render("History cleared."))

	case "/retry":
		res, err := r.app.Pipeline.Retry(ctx)
		if err != nil {
			r.printStatus(r.app.Pipeline.Status())
			return true
		}
		r.printReply(res.Reply)
		r.printStatus(res.Status)

	default:
		r.printStatus(pipeline.Status{Kind: pipeline.KindInfo, Message: "Unknown command " + name + "; try /help."})
	}
	return true
}

func (r *REPL) printModels() {
	current := r.app.Selector.Current()
	ids := r.app.Selector.IDs()
	if len(ids) == 0 {
		fmt.Fprintln(r.out, infoStyle.Render("No models available."))
		return
	}
	for _, id := range ids {
		if id == current {
			fmt.Fprintln(r.out, currentStyle.Render("* "+id))
		} else {
			fmt.Fprintln(r.out, "  "+id)
		}
	}
}

func (r *REPL) printReply(reply string) {
	text := reply
	if r.renderer != nil {
		if out, err := r.renderer.Render(reply); err == nil {
			text = strings.Trim(out, "\n")
		}
	}
	fmt.Fprintln(r.out, botLabelStyle.Render("bot:"), text)
}

func (r *REPL) printStatus(s pipeline.Status) {
	if s.Empty() {
		return
	}
	switch {
	case s.Kind == pipeline.KindWarning:
		fmt.Fprintln(r.out, warningStyle.Render("[Warning]"), s.Message)
	case s.Kind.IsError():
		msg := s.Message
		if s.Retryable {
			msg += " (/retry to resend)"
		}
		fmt.Fprintln(r.out, errorStyle.Render("[Error]"), msg)
	default:
		fmt.Fprintln(r.out, infoStyle.Render(s.Message))
	}
}

// printTranscript writes turns with alternating role labels.
func printTranscript(w io.Writer, turns []string) {
	if len(turns) == 0 {
		fmt.Fprintln(w, infoStyle.Render("No history."))
		return
	}
	for i, turn := range turns {
		label := userLabelStyle.Render("you:")
		if transcript.RoleAt(i) == transcript.RoleBot {
			label = botLabelStyle.Render("bot:")
		}
		fmt.Fprintln(w, label, turn)
	}
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

func replHistoryPath() string {
	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "chat_history")
}

func saveReplHistory(line *liner.State, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := line.WriteHistory(f); err != nil {
		log.Debug().Err(err).Msg("could not save input history")
	}
}
