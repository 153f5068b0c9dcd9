// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable key/value backends that formchat
// persists its transcript to.
//
// A Backend behaves like browser local storage: string values under string
// keys, with Get, Set and Remove. The transcript package owns the encoding;
// backends only move bytes.
//
// # Backends
//
//   - MemoryBackend: process-local map, used by tests and --storage memory
//   - FileBackend: one file per key, written atomically
//   - SQLiteBackend: key/value table in a pure-Go SQLite database
//   - RedisBackend: string keys under a configurable prefix
//
// # Usage
//
//	backend, err := storage.Open(ctx, storage.Options{Kind: "file", Path: dir})
//	if err != nil {
//	    return err
//	}
//	defer backend.Close()
//	err = backend.Set(ctx, "response", `["hello","hi there"]`)
//
// Every failure a backend reports wraps ErrUnavailable, so callers can
// degrade with errors.Is(err, storage.ErrUnavailable).
package storage
