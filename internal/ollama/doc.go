// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama is the upstream client used by the formchat backend.
//
// The backend answers POST /api/response by sending a single user message to
// Ollama's /api/chat endpoint (non-streaming) and GET /api/models by listing
// /api/tags. Only those calls and a reachability check are implemented.
//
// # Usage
//
//	client := ollama.NewClient(ollama.DefaultConfig())
//	if err := client.CheckRunning(ctx); err != nil {
//	    return err
//	}
//	resp, err := client.Chat(ctx, "llama3.2", []ollama.Message{ollama.NewUserMessage("Hello")})
package ollama
