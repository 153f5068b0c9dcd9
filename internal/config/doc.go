// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for formchat.
//
// Configuration is TOML with sensible defaults, a .env bootstrap,
// environment variable overrides and validation.
//
// # Key Types
//
//   - Config: complete configuration
//   - ClientConfig: completion/listing endpoint settings
//   - StorageConfig: transcript storage backend selection
//   - ServerConfig: settings for the bundled backend
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (FORMCHAT_*), including those set by ./.env
//   - ~/.formchat/config.toml (or the file given with --config)
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	client := api.NewClient(cfg.Client.APIURL)
package config
