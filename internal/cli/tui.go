// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/formchat/internal/logging"
	"github.com/jeranaias/formchat/internal/ui/chat"
	"github.com/jeranaias/formchat/internal/ui/styles"
)

func newTUICommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the full-screen chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}
}

// runTUI starts the Bubble Tea program, or the line REPL when the terminal
// cannot host it.
func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	if !Interactive() {
		return runChat(cmd, opts)
	}

	cfg, closer, err := bootstrap(opts, logging.ModeFile)
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

	model := chat.New(chat.Options{
		Context:    ctx,
		Pipeline:   app.Pipeline,
		Selector:   app.Selector,
		Theme:      styles.NewTheme(cfg.UI.Theme),
		Markdown:   cfg.UI.Markdown,
		StorageErr: app.StorageErr,
	})

	log.Info().Str("api", cfg.Client.APIURL).Str("storage", cfg.Storage.Backend).Msg("starting tui")
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "tui")
	}
	return nil
}
