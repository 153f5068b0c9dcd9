// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package selector tracks the models offered by the backend and which one is
// currently selected.
package selector

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/formchat/internal/api"
)

// Lister fetches the model listing. *api.Client satisfies it.
type Lister interface {
	ListModels(ctx context.Context) ([]api.ModelDescriptor, error)
}

// DefaultMissingError is returned by Load when the listing succeeded but does
// not contain the default model. The listing is still stored.
type DefaultMissingError struct {
	Default string
	Current string
}

func (e *DefaultMissingError) Error() string {
	return fmt.Sprintf("default model %q is not offered by the backend; keeping %q", e.Default, e.Current)
}

// Selector holds the fetched model list and the selected id.
// It is safe for concurrent use.
type Selector struct {
	mu       sync.RWMutex
	lister   Lister
	fallback string
	current  string
	models   []api.ModelDescriptor
	loaded   bool
}

// New creates a selector whose initial selection is defaultID.
func New(lister Lister, defaultID string) *Selector {
	return &Selector{lister: lister, fallback: defaultID, current: defaultID}
}

// Load fetches the listing once and applies the default policy: when an
// entry's id equals the default, that id becomes the selection; otherwise the
// selection is left alone and a *DefaultMissingError is returned.
//
// A failed fetch leaves both the list and the selection unchanged.
func (s *Selector) Load(ctx context.Context) error {
	models, err := s.lister.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load models")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.models = models
	s.loaded = true

	for _, m := range models {
		if m.ID == s.fallback {
			s.current = m.ID
			log.Debug().Str("model", m.ID).Int("count", len(models)).Msg("default model selected")
			return nil
		}
	}

	log.Warn().Str("default", s.fallback).Str("current", s.current).Int("count", len(models)).
		Msg("default model not offered")
	return &DefaultMissingError{Default: s.fallback, Current: s.current}
}

// Select overwrites the selection. The id is not checked against the list.
func (s *Selector) Select(id string) {
	s.mu.Lock()
	s.current = id
	s.mu.Unlock()
}

// Current returns the selected model id.
func (s *Selector) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Default returns the id the selector prefers after loading.
func (s *Selector) Default() string {
	return s.fallback
}

// Models returns a copy of the fetched list.
func (s *Selector) Models() []api.ModelDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.ModelDescriptor, len(s.models))
	copy(out, s.models)
	return out
}

// IDs returns the ids of the fetched models in listing order.
func (s *Selector) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.models))
	for i, m := range s.models {
		ids[i] = m.ID
	}
	return ids
}

// Loaded reports whether a listing has been fetched successfully.
func (s *Selector) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}
