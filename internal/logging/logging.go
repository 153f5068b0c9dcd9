// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process-wide zerolog logger.
//
// Command-line modes log human-readable lines to stderr. The full-screen UI
// owns the terminal, so in that mode logs go to a JSON file instead.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Mode selects the log sink.
type Mode int

const (
	// ModeConsole writes colourised lines to stderr.
	ModeConsole Mode = iota
	// ModeFile writes JSON lines to a file.
	ModeFile
)

// Setup installs the global logger and returns a closer for the sink.
// An unknown level falls back to info.
func Setup(level string, mode Mode, file string) (io.Closer, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	switch mode {
	case ModeFile:
		if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
			return nil, errors.Wrap(err, "create log directory")
		}
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, errors.Wrap(err, "open log file")
		}
		log.Logger = New(f)
		return f, nil
	default:
		log.Logger = New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
		return io.NopCloser(nil), nil
	}
}

// New returns a timestamped logger writing to w.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
