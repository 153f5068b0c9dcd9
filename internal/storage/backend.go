// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// Backend is a durable string key/value store.
type Backend interface {
	// Get returns the value under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any prior value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// Close releases the backend's resources.
	Close() error
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrUnavailable is wrapped by every backend failure: disabled storage,
// quota, I/O or connection errors.
var ErrUnavailable = &StorageError{Message: "storage unavailable"}

// ErrUnknownBackend is returned by Open for an unrecognised kind.
var ErrUnknownBackend = errors.New("unknown storage backend")

// StorageError carries the failing operation and key.
type StorageError struct {
	Op      string
	Key     string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Op != "" {
		sb.WriteString(" (" + e.Op)
		if e.Key != "" {
			sb.WriteString(" " + e.Key)
		}
		sb.WriteString(")")
	}
	if e.Cause != nil {
		sb.WriteString(": " + e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Is reports every StorageError as ErrUnavailable.
func (e *StorageError) Is(target error) bool {
	_, ok := target.(*StorageError)
	return ok
}

func unavailable(op, key string, cause error) error {
	return &StorageError{Op: op, Key: key, Message: ErrUnavailable.Message, Cause: cause}
}

// =============================================================================
// FACTORY
// =============================================================================

// Options selects and configures a backend.
type Options struct {
	// Kind is one of "memory", "file", "sqlite", "redis".
	Kind string
	// Path is the directory (file) or database file (sqlite).
	Path string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open constructs the backend named by opts.Kind.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch strings.ToLower(opts.Kind) {
	case "memory":
		return NewMemoryBackend(), nil
	case "file", "":
		return NewFileBackend(opts.Path)
	case "sqlite":
		return NewSQLiteBackend(ctx, opts.Path)
	case "redis":
		return NewRedisBackend(ctx, RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			Prefix:   opts.RedisPrefix,
		})
	default:
		return nil, errors.Wrapf(ErrUnknownBackend, "%q", opts.Kind)
	}
}
