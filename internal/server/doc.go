// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server is the formchat backend.
//
// Endpoints:
//   - POST /api/response - {"message", "currentModel"} -> {"bot"}
//   - GET  /api/models   - {"data": [model descriptors]}
//   - GET  /health       - upstream reachability and uptime
//
// Completions and model listings come from a Provider; OllamaProvider backs
// them with a local Ollama server. Every request passes through request id,
// recovery, logging, rate limiting and body size middleware.
package server
