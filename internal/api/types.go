// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the chat backend.
//
// The backend exposes two endpoints:
//
//	POST /api/response  {"message": "...", "currentModel": "..."} -> {"bot": "..."}
//	GET  /api/models    -> {"data": [ModelDescriptor, ...]}
//
// Responses are checked against these shapes before anything is returned to
// the caller. A reply without a string "bot" field, or a listing without
// "data", is reported as a bad response rather than silently coerced.
package api

import "encoding/json"

// =============================================================================
// WIRE TYPES
// =============================================================================

// CompletionRequest is the body of POST /api/response.
type CompletionRequest struct {
	Message      string `json:"message"`
	CurrentModel string `json:"currentModel"`
}

// CompletionResponse is the body returned by POST /api/response.
type CompletionResponse struct {
	Bot string `json:"bot"`
}

// ModelDescriptor describes one model offered by the backend.
// Only ID is used by the client.
type ModelDescriptor struct {
	Object      string          `json:"object"`
	ID          string          `json:"id"`
	Ready       bool            `json:"ready"`
	Owner       string          `json:"owner"`
	Permissions json.RawMessage `json:"permissions"`
	Created     string          `json:"created"`
}

// ModelList is the body returned by GET /api/models.
type ModelList struct {
	Data []ModelDescriptor `json:"data"`
}

// ErrorResponse is the body the backend sends with a non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ObjectEngine is the object kind reported for every model descriptor.
const ObjectEngine = "engine"
