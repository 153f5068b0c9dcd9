// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jeranaias/formchat/internal/config"
	"github.com/jeranaias/formchat/internal/logging"
)

// Version information, set at build time.
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
	apiURL     string
	model      string
	storage    string
}

// NewRootCommand builds the formchat command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "formchat",
		Short:         "Chat with a completion backend from the terminal",
		Long:          "formchat keeps a local chat transcript, sends each message with the selected model to the backend and shows the reply.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.formchat/config.toml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.apiURL, "api-url", "", "backend base URL")
	flags.StringVarP(&opts.model, "model", "m", "", "preferred model id")
	flags.StringVar(&opts.storage, "storage", "", "history backend: file, sqlite, redis, memory")

	root.AddCommand(
		newTUICommand(opts),
		newChatCommand(opts),
		newServeCommand(opts),
		newModelsCommand(opts),
		newHistoryCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		return 1
	}
	return 0
}

// =============================================================================
// BOOTSTRAP
// =============================================================================

// loadConfig reads .env, the config file and environment, then applies
// command-line overrides.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	if err := config.LoadDotEnv(""); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.apiURL != "" {
		cfg.Client.APIURL = opts.apiURL
	}
	if opts.model != "" {
		cfg.Client.DefaultModel = opts.model
	}
	if opts.storage != "" {
		cfg.Storage.Backend = opts.storage
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid flags")
	}
	return cfg, nil
}

// bootstrap loads configuration and installs the logger for mode.
// The returned closer flushes the log sink.
func bootstrap(opts *rootOptions, mode logging.Mode) (*config.Config, io.Closer, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, nil, err
	}

	var logFile string
	if mode == logging.ModeFile {
		if logFile, err = cfg.LogPath(); err != nil {
			return nil, nil, err
		}
	}
	closer, err := logging.Setup(cfg.Log.Level, mode, logFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, closer, nil
}
