// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"net/url"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/jeranaias/formchat/internal/util"
)

// FileBackend stores each key as <dir>/<escaped key>.json.
type FileBackend struct {
	// BaseDir holds one file per key.
	BaseDir string
}

// NewFileBackend creates a backend rooted at dir, creating it if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		return nil, unavailable("open", "", errors.New("no storage directory configured"))
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, unavailable("open", "", err)
	}
	return &FileBackend{BaseDir: dir}, nil
}

// Get implements Backend.
func (f *FileBackend) Get(ctx context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(f.filePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, unavailable("get", key, err)
	}
	return string(data), true, nil
}

// Set implements Backend.
// Writes are atomic: a crash leaves either the old or the new value.
func (f *FileBackend) Set(ctx context.Context, key, value string) error {
	if err := util.AtomicWriteFile(f.filePath(key), []byte(value), 0600); err != nil {
		return unavailable("set", key, err)
	}
	return nil
}

// Remove implements Backend.
func (f *FileBackend) Remove(ctx context.Context, key string) error {
	if err := os.Remove(f.filePath(key)); err != nil && !os.IsNotExist(err) {
		return unavailable("remove", key, err)
	}
	return nil
}

// Close implements Backend.
func (f *FileBackend) Close() error {
	return nil
}

// filePath escapes key so it cannot leave BaseDir.
func (f *FileBackend) filePath(key string) string {
	return filepath.Join(f.BaseDir, url.PathEscape(key)+".json")
}
