// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/formchat/internal/config"
	"github.com/jeranaias/formchat/internal/export"
	"github.com/jeranaias/formchat/internal/logging"
	"github.com/jeranaias/formchat/internal/transcript"
)

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or clear the saved transcript",
	}
	cmd.AddCommand(
		newHistoryShowCommand(opts),
		newHistoryExportCommand(opts),
		newHistoryClearCommand(opts),
	)
	return cmd
}

func newHistoryShowCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the saved transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, done, err := openHistory(cmd, opts)
			if err != nil {
				return err
			}
			defer done()

			turns, err := store.Restore(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if turns == nil {
					turns = []string{}
				}
				return json.NewEncoder(out).Encode(turns)
			}
			printTranscript(out, turns)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the stored JSON array")
	return cmd
}

func newHistoryExportCommand(opts *rootOptions) *cobra.Command {
	var (
		format string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the saved transcript to a Markdown, JSON or HTML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, done, err := openHistory(cmd, opts)
			if err != nil {
				return err
			}
			defer done()

			turns, err := store.Restore(cmd.Context())
			if err != nil {
				return err
			}

			path, err := exportTranscript(turns, cfg.Client.DefaultModel, format, outDir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "export format: markdown, json or html")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	return cmd
}

func newHistoryClearCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, done, err := openHistory(cmd, opts)
			if err != nil {
				return err
			}
			defer done()

			if err := store.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}
}

// openHistory opens the configured backend directly. Unlike a chat session
// it does not fall back to memory, so storage problems surface as errors.
func openHistory(cmd *cobra.Command, opts *rootOptions) (*transcript.Store, *config.Config, func(), error) {
	cfg, closer, err := bootstrap(opts, logging.ModeConsole)
	if err != nil {
		return nil, nil, nil, err
	}
	backend, err := openBackend(cmd.Context(), cfg)
	if err != nil {
		closer.Close()
		return nil, nil, nil, err
	}
	done := func() {
		backend.Close()
		closer.Close()
	}
	return transcript.New(backend, cfg.Storage.Key), cfg, done, nil
}

// exportTranscript writes turns in format under dir and returns the path.
func exportTranscript(turns []string, model, format, dir string) (string, error) {
	opts := export.DefaultOptions()
	opts.OutputDir = dir

	exp, err := export.ForFormat(format, opts)
	if err != nil {
		return "", err
	}
	return export.ExportToFile(export.NewDocument(turns, model), exp, opts)
}
