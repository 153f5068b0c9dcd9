// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/formchat/internal/api"
	"github.com/jeranaias/formchat/internal/config"
	"github.com/jeranaias/formchat/internal/pipeline"
	"github.com/jeranaias/formchat/internal/selector"
	"github.com/jeranaias/formchat/internal/storage"
	"github.com/jeranaias/formchat/internal/transcript"
)

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// App bundles the components of one chat session.
type App struct {
	Config   *config.Config
	Backend  storage.Backend
	Store    *transcript.Store
	Client   *api.Client
	Selector *selector.Selector
	Pipeline *pipeline.Pipeline

	// StorageErr is set when the configured backend could not be opened
	// and the session fell back to memory. Nothing is saved in that case.
	StorageErr error
}

// NewApp wires a session from cfg. An unreachable storage backend degrades
// to an in-memory one; any other storage error is returned.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	backend, err := openBackend(ctx, cfg)
	var storageErr error
	if err != nil {
		if !errors.Is(err, storage.ErrUnavailable) {
			return nil, err
		}
		log.Warn().Err(err).Str("backend", cfg.Storage.Backend).Msg("storage unavailable, history will not be saved")
		backend, storageErr = storage.NewMemoryBackend(), err
	}

	client := newAPIClient(cfg)
	return newApp(cfg, backend, client, storageErr), nil
}

func newApp(cfg *config.Config, backend storage.Backend, client *api.Client, storageErr error) *App {
	store := transcript.New(backend, cfg.Storage.Key)
	sel := selector.New(client, cfg.Client.DefaultModel)
	return &App{
		Config:     cfg,
		Backend:    backend,
		Store:      store,
		Client:     client,
		Selector:   sel,
		Pipeline:   pipeline.New(store, client, sel, cfg.Client.Timeout()),
		StorageErr: storageErr,
	}
}

// Close releases the storage backend.
func (a *App) Close() error {
	return a.Backend.Close()
}

func newAPIClient(cfg *config.Config) *api.Client {
	return api.NewClient(cfg.Client.APIURL, cfg.Client.Timeout())
}

func openBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	path, err := cfg.StoragePath()
	if err != nil {
		return nil, err
	}
	return storage.Open(ctx, storage.Options{
		Kind:          cfg.Storage.Backend,
		Path:          path,
		RedisAddr:     cfg.Storage.RedisAddr,
		RedisPassword: cfg.Storage.RedisPassword,
		RedisDB:       cfg.Storage.RedisDB,
		RedisPrefix:   cfg.Storage.RedisPrefix,
	})
}
