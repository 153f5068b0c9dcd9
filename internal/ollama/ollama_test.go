// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(&ClientConfig{BaseURL: srv.URL, Timeout: 2 * time.Second})
}

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestNewClient_FillsDefaults(t *testing.T) {
	c := NewClient(&ClientConfig{BaseURL: "http://ollama.test/"})
	assert.Equal(t, "http://ollama.test", c.BaseURL())
	assert.Equal(t, 120*time.Second, c.httpClient.Timeout)

	c = NewClient(nil)
	assert.Equal(t, "http://127.0.0.1:11434", c.BaseURL())
}

// =============================================================================
// HEALTH CHECK TESTS
// =============================================================================

func TestCheckRunning(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Ollama is running"))
	})
	assert.NoError(t, c.CheckRunning(context.Background()))
}

func TestCheckRunning_Down(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewClient(&ClientConfig{BaseURL: url}).CheckRunning(context.Background())
	assert.True(t, IsNotRunning(err))
}

// =============================================================================
// MODEL TESTS
// =============================================================================

func TestListModels(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[
			{"name":"llama3.2:latest","modified_at":"2025-01-02T03:04:05Z","size":2019393189},
			{"name":"qwen2.5-coder:7b","modified_at":"2025-02-03T04:05:06Z","size":4683087332}
		]}`))
	})

	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "llama3.2:latest", models[0].Name)
	assert.Equal(t, 2025, models[0].ModifiedAt.Year())
}

func TestListModels_BadStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.ListModels(context.Background())
	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, ErrTypeInvalidResponse, clientErr.Type)
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestChat(t *testing.T) {
	var got ChatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"model":"llama3.2","message":{"role":"assistant","content":"hi there"},"done":true,"total_duration":2500000000,"eval_count":10,"eval_duration":2000000000}`))
	})

	resp, err := c.Chat(context.Background(), "llama3.2", []Message{NewUserMessage("hello")})
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Message.Content)
	assert.InDelta(t, 5.0, resp.TokensPerSecond(), 0.001)
	assert.Equal(t, 2500*time.Millisecond, resp.TotalTime())

	assert.Equal(t, "llama3.2", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, []Message{{Role: "user", Content: "hello"}}, got.Messages)
}

func TestChat_ModelNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model \"nope\" not found"}`))
	})

	_, err := c.Chat(context.Background(), "nope", []Message{NewUserMessage("hello")})
	assert.True(t, IsModelNotFound(err))
}

func TestChat_ErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid options"}`))
	})

	_, err := c.Chat(context.Background(), "m", nil)
	require.Error(t, err)
	assert.Equal(t, "invalid options", err.Error())
}

func TestChat_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := NewClient(&ClientConfig{BaseURL: srv.URL}).Chat(ctx, "m", nil)
	assert.True(t, IsTimeout(err))
}

func TestChatResponse_TokensPerSecondZero(t *testing.T) {
	var r ChatResponse
	assert.Equal(t, 0.0, r.TokensPerSecond())
}
