// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is where the bundled backend listens by default.
	DefaultBaseURL = "http://127.0.0.1:8080"
	DefaultTimeout = 60 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 4 << 20
)

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the chat backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the backend at baseURL. A zero timeout
// selects DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Complete sends message to POST /api/response using model and returns the
// reply text.
func (c *Client) Complete(ctx context.Context, message, model string) (string, error) {
	body, err := json.Marshal(CompletionRequest{Message: message, CurrentModel: model})
	if err != nil {
		return "", &ClientError{Type: ErrTypeUnknown, Message: "failed to marshal request", Cause: err}
	}

	raw, err := c.do(ctx, http.MethodPost, "/api/response", body)
	if err != nil {
		return "", err
	}

	var envelope struct {
		Bot json.RawMessage `json:"bot"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", badResponse("reply is not a JSON object", err)
	}
	if len(envelope.Bot) == 0 || envelope.Bot[0] != '"' {
		return "", badResponse(`reply has no string "bot" field`, nil)
	}
	var bot string
	if err := json.Unmarshal(envelope.Bot, &bot); err != nil {
		return "", badResponse(`reply has no string "bot" field`, err)
	}

	log.Debug().Str("model", model).Int("reply_len", len(bot)).Msg("completion received")
	return bot, nil
}

// ListModels fetches GET /api/models.
func (c *Client) ListModels(ctx context.Context) ([]ModelDescriptor, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/models", nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data *[]ModelDescriptor `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, badResponse("model listing is malformed", err)
	}
	if envelope.Data == nil {
		return nil, badResponse(`model listing has no "data" array`, nil)
	}
	models := make([]ModelDescriptor, 0, len(*envelope.Data))
	for i, m := range *envelope.Data {
		if m.ID == "" {
			log.Warn().Int("entry", i).Msg("skipping model entry without id")
			continue
		}
		models = append(models, m)
	}

	log.Debug().Int("count", len(models)).Msg("models listed")
	return models, nil
}

// do performs the request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeNetwork, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("%s %s failed: %s", method, path, resp.Status)
		var apiErr ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			msg += ": " + apiErr.Error
		}
		return nil, &ClientError{Type: ErrTypeNetwork, Message: msg}
	}

	return raw, nil
}
