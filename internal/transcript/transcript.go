// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript holds the chat transcript and mirrors it to a storage
// backend.
//
// The transcript is an ordered list of strings. By convention even indices
// are user turns and odd indices are replies; the store does not enforce the
// alternation because the submission pipeline echoes a user turn before its
// reply exists.
package transcript

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/formchat/internal/storage"
)

// Role identifies who produced a turn.
type Role int

const (
	RoleUser Role = iota
	RoleBot
)

func (r Role) String() string {
	if r == RoleBot {
		return "bot"
	}
	return "user"
}

// RoleAt returns the role of the turn at index i.
func RoleAt(i int) Role {
	if i%2 == 1 {
		return RoleBot
	}
	return RoleUser
}

// Store is the in-memory transcript plus its durable mirror.
// It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	turns   []string
	backend storage.Backend
	key     string
}

// New creates an empty store persisting under key.
func New(backend storage.Backend, key string) *Store {
	return &Store{backend: backend, key: key, turns: []string{}}
}

// Append adds turn to the end of the transcript and returns the new sequence.
func (s *Store) Append(turn string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turn)
	return s.snapshotLocked()
}

// AppendUser adds turn as a user turn and returns the new sequence. When the
// transcript ends with a user turn that never got a reply, turn replaces it
// so even indices stay user turns and odd indices replies.
func (s *Store) AppendUser(turn string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.turns); n%2 == 1 {
		s.turns[n-1] = turn
	} else {
		s.turns = append(s.turns, turn)
	}
	return s.snapshotLocked()
}

// Turns returns a copy of the transcript.
func (s *Store) Turns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Len returns the number of turns.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Persist writes the current transcript to storage, overwriting any prior
// value. On failure the in-memory transcript is untouched and the returned
// error wraps storage.ErrUnavailable.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.RLock()
	data, err := json.Marshal(s.turns)
	s.mu.RUnlock()
	if err != nil {
		return errors.Wrap(err, "encode transcript")
	}

	if err := s.backend.Set(ctx, s.key, string(data)); err != nil {
		log.Warn().Err(err).Str("key", s.key).Msg("transcript not persisted")
		return err
	}
	return nil
}

// Restore loads the transcript from storage and returns it. An absent key,
// malformed content or unavailable storage all leave an empty transcript;
// the latter two are logged as warnings and reported through the error so
// callers can surface them.
func (s *Store) Restore(ctx context.Context) ([]string, error) {
	raw, ok, err := s.backend.Get(ctx, s.key)
	if err != nil {
		log.Warn().Err(err).Str("key", s.key).Msg("transcript storage unavailable, starting empty")
		return s.replace(nil), err
	}
	if !ok {
		return s.replace(nil), nil
	}

	var turns []string
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		log.Warn().Err(err).Str("key", s.key).Msg("malformed transcript in storage, starting empty")
		return s.replace(nil), &MalformedError{Key: s.key, Cause: err}
	}
	log.Debug().Int("turns", len(turns)).Str("key", s.key).Msg("transcript restored")
	return s.replace(turns), nil
}

// Reset clears the transcript and removes the durable entry. The in-memory
// transcript is cleared even if storage fails.
func (s *Store) Reset(ctx context.Context) error {
	s.replace(nil)
	if err := s.backend.Remove(ctx, s.key); err != nil {
		log.Warn().Err(err).Str("key", s.key).Msg("transcript entry not removed")
		return err
	}
	return nil
}

func (s *Store) replace(turns []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if turns == nil {
		turns = []string{}
	}
	s.turns = turns
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() []string {
	out := make([]string, len(s.turns))
	copy(out, s.turns)
	return out
}

// MalformedError reports stored content that is not a JSON string array.
type MalformedError struct {
	Key   string
	Cause error
}

func (e *MalformedError) Error() string {
	if e.Cause == nil {
		return "malformed transcript under " + e.Key
	}
	return "malformed transcript under " + e.Key + ": " + e.Cause.Error()
}

func (e *MalformedError) Unwrap() error {
	return e.Cause
}
