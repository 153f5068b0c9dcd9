// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/formchat/internal/logging"
	"github.com/jeranaias/formchat/internal/ollama"
	"github.com/jeranaias/formchat/internal/server"
)

// shutdownTimeout bounds the graceful drain on exit.
const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	var listen, ollamaURL string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /api/response and /api/models from a local Ollama",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := bootstrap(opts, logging.ModeConsole)
			if err != nil {
				return err
			}
			defer closer.Close()

			if listen != "" {
				cfg.Server.Listen = listen
			}
			if ollamaURL != "" {
				cfg.Server.OllamaURL = ollamaURL
			}

			ctx := cmd.Context()
			client := ollama.NewClient(&ollama.ClientConfig{
				BaseURL: cfg.Server.OllamaURL,
				Timeout: cfg.Server.UpstreamTimeout(),
			})
			if err := client.CheckRunning(ctx); err != nil {
				log.Warn().Err(err).Str("url", client.BaseURL()).Msg("ollama is not reachable yet; requests will fail until it is")
			}

			srv := server.New(server.NewOllamaProvider(client, cfg.Server.Owner), server.Options{
				Addr:            cfg.Server.Listen,
				RateLimit:       cfg.Server.RateLimit,
				RateBurst:       cfg.Server.RateBurst,
				MaxBodyBytes:    cfg.Server.MaxBodyBytes,
				UpstreamTimeout: cfg.Server.UpstreamTimeout(),
				Version:         Version,
			})

			ln, err := net.Listen("tcp", srv.Addr())
			if err != nil {
				return errors.Wrapf(err, "listen on %s", srv.Addr())
			}
			return serve(ctx, srv, ln)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")
	cmd.Flags().StringVar(&ollamaURL, "ollama-url", "", "Ollama base URL (default from config)")
	return cmd
}

// serve runs srv on ln until ctx is cancelled, then shuts it down.
func serve(ctx context.Context, srv *server.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return <-errCh
}
