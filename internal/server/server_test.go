// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/formchat/internal/api"
	"github.com/jeranaias/formchat/internal/ollama"
)

type fakeProvider struct {
	mu        sync.Mutex
	reply     string
	err       error
	models    []api.ModelDescriptor
	modelsErr error
	pingErr   error
	gotModel  string
	gotMsg    string
}

func (f *fakeProvider) Complete(ctx context.Context, model, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotModel, f.gotMsg = model, message
	return f.reply, f.err
}

func (f *fakeProvider) Models(ctx context.Context) ([]api.ModelDescriptor, error) {
	return f.models, f.modelsErr
}

func (f *fakeProvider) Ping(ctx context.Context) error {
	return f.pingErr
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

// =============================================================================
// POST /api/response
// =============================================================================

func TestHandleResponse(t *testing.T) {
	p := &fakeProvider{reply: "hi there"}
	s := New(p, Options{})

	rec := do(t, s.Handler(), http.MethodPost, "/api/response", `{"message":"hello","currentModel":"text-davinci-003"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"bot":"hi there"}`, rec.Body.String())
	assert.Equal(t, "hello", p.gotMsg)
	assert.Equal(t, "text-davinci-003", p.gotModel)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestHandleResponse_Validation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"not json", `hello`, http.StatusBadRequest},
		{"missing message", `{"currentModel":"m"}`, http.StatusBadRequest},
		{"blank message", `{"message":"  ","currentModel":"m"}`, http.StatusBadRequest},
		{"missing model", `{"message":"hello"}`, http.StatusBadRequest},
		{"too long", `{"message":"` + strings.Repeat("a", MaxMessageLength+1) + `","currentModel":"m"}`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := New(&fakeProvider{reply: "x"}, Options{})
			rec := do(t, s.Handler(), http.MethodPost, "/api/response", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.NotEmpty(t, decodeError(t, rec))
		})
	}
}

func TestHandleResponse_BodyTooLarge(t *testing.T) {
	s := New(&fakeProvider{reply: "x"}, Options{MaxBodyBytes: 64})

	body := `{"message":"` + strings.Repeat("a", 200) + `","currentModel":"m"}`
	rec := do(t, s.Handler(), http.MethodPost, "/api/response", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandleResponse_ProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unknown model", errors.Wrap(ErrUnknownModel, "nope"), http.StatusNotFound},
		{"timeout", errors.Wrap(ErrUpstreamTimeout, "slow"), http.StatusGatewayTimeout},
		{"down", errors.Wrap(ErrUpstreamDown, "refused"), http.StatusServiceUnavailable},
		{"other", errors.New("weird"), http.StatusBadGateway},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := New(&fakeProvider{err: tc.err}, Options{})
			rec := do(t, s.Handler(), http.MethodPost, "/api/response", `{"message":"hello","currentModel":"m"}`)
			assert.Equal(t, tc.status, rec.Code)
			assert.NotContains(t, decodeError(t, rec), "refused")
		})
	}
}

func TestHandleResponse_MethodNotAllowed(t *testing.T) {
	s := New(&fakeProvider{}, Options{})
	rec := do(t, s.Handler(), http.MethodGet, "/api/response", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// =============================================================================
// GET /api/models
// =============================================================================

func TestHandleModels(t *testing.T) {
	p := &fakeProvider{models: []api.ModelDescriptor{
		{Object: api.ObjectEngine, ID: "text-davinci-003", Ready: true, Owner: "openai"},
		{Object: api.ObjectEngine, ID: "gpt-3.5", Ready: true, Owner: "openai"},
	}}
	s := New(p, Options{})

	rec := do(t, s.Handler(), http.MethodGet, "/api/models", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body["data"], 2)
	first := body["data"][0]
	assert.Equal(t, "engine", first["object"])
	assert.Equal(t, "text-davinci-003", first["id"])
	assert.Contains(t, first, "permissions")
	assert.Nil(t, first["permissions"])
}

func TestHandleModels_EmptyListIsArray(t *testing.T) {
	s := New(&fakeProvider{}, Options{})
	rec := do(t, s.Handler(), http.MethodGet, "/api/models", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestHandleModels_ProviderDown(t *testing.T) {
	s := New(&fakeProvider{modelsErr: errors.Wrap(ErrUpstreamDown, "refused")}, Options{})
	rec := do(t, s.Handler(), http.MethodGet, "/api/models", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// =============================================================================
// GET /health
// =============================================================================

func TestHandleHealth(t *testing.T) {
	s := New(&fakeProvider{}, Options{Version: "1.2.3"})
	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "ok", health.Upstream)
	assert.Equal(t, "1.2.3", health.Version)
}

func TestHandleHealth_Degraded(t *testing.T) {
	s := New(&fakeProvider{pingErr: ErrUpstreamDown}, Options{})
	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "unavailable", health.Upstream)
}

// =============================================================================
// END TO END
// =============================================================================

func TestClientAgainstServer(t *testing.T) {
	p := &fakeProvider{
		reply:  "hi there",
		models: []api.ModelDescriptor{{Object: api.ObjectEngine, ID: "text-davinci-003", Ready: true}},
	}
	srv := httptest.NewServer(New(p, Options{}).Handler())
	defer srv.Close()

	client := api.NewClient(srv.URL, 2*time.Second)

	models, err := client.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "text-davinci-003", models[0].ID)

	reply, err := client.Complete(context.Background(), "hello", "text-davinci-003")
	require.NoError(t, err)
	assert.Equal(t, "hi there", reply)

	p.mu.Lock()
	p.err = errors.Wrap(ErrUpstreamDown, "refused")
	p.mu.Unlock()
	_, err = client.Complete(context.Background(), "hello", "text-davinci-003")
	assert.True(t, api.IsNetworkFailure(err))
}

func TestServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(&fakeProvider{}, Options{})
	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.NoError(t, <-done)
}

// =============================================================================
// OLLAMA PROVIDER
// =============================================================================

func TestOllamaProvider(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Write([]byte("Ollama is running"))
		case "/api/tags":
			w.Write([]byte(`{"models":[{"name":"llama3.2:latest","modified_at":"2025-01-02T03:04:05Z"}]}`))
		case "/api/chat":
			var req ollama.ChatRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Model != "llama3.2:latest" {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"error":"model not found"}`))
				return
			}
			w.Write([]byte(`{"model":"llama3.2:latest","message":{"role":"assistant","content":"echo: ` + req.Messages[0].Content + `"},"done":true}`))
		}
	}))
	defer upstream.Close()

	p := NewOllamaProvider(ollama.NewClient(&ollama.ClientConfig{BaseURL: upstream.URL}), "")
	ctx := context.Background()

	require.NoError(t, p.Ping(ctx))

	models, err := p.Models(ctx)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, api.ModelDescriptor{
		Object:  api.ObjectEngine,
		ID:      "llama3.2:latest",
		Ready:   true,
		Owner:   "ollama",
		Created: "2025-01-02T03:04:05Z",
	}, models[0])

	reply, err := p.Complete(ctx, "llama3.2:latest", "hello")
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", reply)

	_, err = p.Complete(ctx, "missing", "hello")
	assert.True(t, errors.Is(err, ErrUnknownModel))
}

func TestOllamaProvider_Down(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	p := NewOllamaProvider(ollama.NewClient(&ollama.ClientConfig{BaseURL: url}), "local")
	assert.True(t, errors.Is(p.Ping(context.Background()), ErrUpstreamDown))

	_, err := p.Models(context.Background())
	assert.True(t, errors.Is(err, ErrUpstreamDown))
}
