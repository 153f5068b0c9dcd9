// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/formchat/internal/api"
	"github.com/jeranaias/formchat/internal/config"
	"github.com/jeranaias/formchat/internal/server"
	"github.com/jeranaias/formchat/internal/storage"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// fakeAPI serves /api/response and /api/models.
type fakeAPI struct {
	mu     sync.Mutex
	ids    []string
	reply  string
	fail   bool
	models []string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/response", func(w http.ResponseWriter, r *http.Request) {
		var req api.CompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		fail, reply := f.fail, f.reply
		f.models = append(f.models, req.CurrentModel)
		f.mu.Unlock()

		if fail {
			http.Error(w, `{"error":"upstream down"}`, http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(api.CompletionResponse{Bot: reply})
	})
	mux.HandleFunc("GET /api/models", func(w http.ResponseWriter, r *http.Request) {
		list := api.ModelList{Data: []api.ModelDescriptor{}}
		for _, id := range f.ids {
			list.Data = append(list.Data, api.ModelDescriptor{Object: api.ObjectEngine, ID: id, Ready: true, Owner: "test"})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	})
	return mux
}

func (f *fakeAPI) setFail(fail bool) {
	f.mu.Lock()
	f.fail = fail
	f.mu.Unlock()
}

func (f *fakeAPI) lastModel() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.models) == 0 {
		return ""
	}
	return f.models[len(f.models)-1]
}

// isolate points configuration and storage at a temporary directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FORMCHAT_HOME", dir)
	t.Setenv("FORMCHAT_STORAGE", "file")
	t.Setenv("FORMCHAT_LOG_LEVEL", "error")
	return dir
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func newTestREPL(t *testing.T, fake *fakeAPI) (*REPL, *bytes.Buffer, *App) {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Client.APIURL = srv.URL
	cfg.Client.TimeoutSecs = 5

	app := newApp(cfg, storage.NewMemoryBackend(), newAPIClient(cfg), nil)
	var out bytes.Buffer
	return NewREPL(app, &out, false), &out, app
}

// =============================================================================
// COMMAND TESTS
// =============================================================================

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "formchat "+Version)
}

func TestConfigInitAndPath(t *testing.T) {
	dir := isolate(t)
	want := filepath.Join(dir, "config.toml")

	out, err := runCommand(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, want, strings.TrimSpace(out))

	out, err = runCommand(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, want)

	info, err := os.Stat(want)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	_, err = runCommand(t, "config", "init")
	assert.Error(t, err)

	_, err = runCommand(t, "config", "init", "--force")
	assert.NoError(t, err)
}

func TestConfigShowRedactsPassword(t *testing.T) {
	isolate(t)
	t.Setenv("FORMCHAT_REDIS_PASSWORD", "hunter2")

	out, err := runCommand(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "text-davinci-003")
	assert.Contains(t, out, redacted)
	assert.NotContains(t, out, "hunter2")
}

func TestConfigShowAppliesFlags(t *testing.T) {
	isolate(t)

	out, err := runCommand(t, "config", "show", "--model", "gpt-3.5", "--storage", "memory")
	require.NoError(t, err)
	assert.Contains(t, out, `default_model = "gpt-3.5"`)
	assert.Contains(t, out, `backend = "memory"`)

	_, err = runCommand(t, "config", "show", "--storage", "floppy")
	assert.Error(t, err)
}

func TestHistoryShowAndClear(t *testing.T) {
	dir := isolate(t)

	backend, err := storage.NewFileBackend(filepath.Join(dir, "storage"))
	require.NoError(t, err)
	require.NoError(t, backend.Set(context.Background(), "response", `["hello","hi there"]`))

	out, err := runCommand(t, "history", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "hi there")

	out, err = runCommand(t, "history", "show", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `["hello","hi there"]`, out)

	_, err = runCommand(t, "history", "clear")
	require.NoError(t, err)

	_, ok, err := backend.Get(context.Background(), "response")
	require.NoError(t, err)
	assert.False(t, ok)

	out, err = runCommand(t, "history", "show", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)
}

func TestHistoryExport(t *testing.T) {
	dir := isolate(t)

	backend, err := storage.NewFileBackend(filepath.Join(dir, "storage"))
	require.NoError(t, err)
	require.NoError(t, backend.Set(context.Background(), "response", `["hello","hi there"]`))

	outDir := filepath.Join(dir, "exports")
	out, err := runCommand(t, "history", "export", "--format", "json", "--out", outDir)
	require.NoError(t, err)

	path := strings.TrimSpace(out)
	assert.Equal(t, ".json", filepath.Ext(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"hi there"`)
	assert.Contains(t, string(data), `"text-davinci-003"`)

	_, err = runCommand(t, "history", "export", "--format", "pdf", "--out", outDir)
	assert.Error(t, err)
}

func TestModelsCommand(t *testing.T) {
	isolate(t)
	fake := &fakeAPI{ids: []string{"gpt-3.5", "text-davinci-003"}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	out, err := runCommand(t, "models", "--api-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "  gpt-3.5")
	assert.Contains(t, out, "* text-davinci-003")

	out, err = runCommand(t, "models", "--api-url", srv.URL, "--json")
	require.NoError(t, err)
	var list api.ModelList
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Len(t, list.Data, 2)
}

func TestModelsCommandBackendDown(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := runCommand(t, "models", "--api-url", srv.URL)
	assert.Error(t, err)
}

// =============================================================================
// REPL TESTS
// =============================================================================

func TestREPL_SubmitPrintsReply(t *testing.T) {
	fake := &fakeAPI{ids: []string{"text-davinci-003"}, reply: "hi there"}
	repl, out, app := newTestREPL(t, fake)
	ctx := context.Background()

	repl.Start(ctx)
	assert.True(t, repl.Handle(ctx, "hello"))

	assert.Contains(t, out.String(), "hi there")
	assert.Equal(t, []string{"hello", "hi there"}, app.Store.Turns())
	assert.Equal(t, "text-davinci-003", fake.lastModel())

	stored, ok, err := app.Backend.Get(ctx, "response")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `["hello","hi there"]`, stored)
}

func TestREPL_EmptyLineIsIgnored(t *testing.T) {
	repl, out, app := newTestREPL(t, &fakeAPI{reply: "x"})

	assert.True(t, repl.Handle(context.Background(), "   "))
	assert.Empty(t, app.Store.Turns())
	assert.Empty(t, out.String())
}

func TestREPL_FailureThenRetry(t *testing.T) {
	fake := &fakeAPI{reply: "recovered", fail: true}
	repl, out, app := newTestREPL(t, fake)
	ctx := context.Background()

	repl.Handle(ctx, "hello")
	assert.Equal(t, []string{"hello"}, app.Store.Turns())
	assert.Contains(t, out.String(), "[Error]")
	assert.Contains(t, out.String(), "/retry")

	fake.setFail(false)
	out.Reset()
	repl.Handle(ctx, "/retry")

	assert.Contains(t, out.String(), "recovered")
	assert.Equal(t, []string{"hello", "recovered"}, app.Store.Turns())
}

func TestREPL_ModelCommands(t *testing.T) {
	fake := &fakeAPI{ids: []string{"gpt-3.5", "text-davinci-003"}, reply: "ok"}
	repl, out, app := newTestREPL(t, fake)
	ctx := context.Background()

	repl.Handle(ctx, "/models")
	assert.Contains(t, out.String(), "* text-davinci-003")
	assert.Contains(t, out.String(), "  gpt-3.5")

	out.Reset()
	repl.Handle(ctx, "/model nonexistent")
	assert.Contains(t, out.String(), "[Warning]")
	assert.Contains(t, out.String(), "Model set to nonexistent")
	assert.Equal(t, "nonexistent", app.Selector.Current())

	repl.Handle(ctx, "hello")
	assert.Equal(t, "nonexistent", fake.lastModel())

	repl.Handle(ctx, "/model gpt-3.5")
	assert.Equal(t, "gpt-3.5", app.Selector.Current())

	repl.Handle(ctx, "hello")
	assert.Equal(t, "gpt-3.5", fake.lastModel())
}

func TestREPL_HistoryAndClear(t *testing.T) {
	repl, out, app := newTestREPL(t, &fakeAPI{reply: "hi there"})
	ctx := context.Background()

	repl.Handle(ctx, "hello")
	out.Reset()
	repl.Handle(ctx, "/history")
	assert.Contains(t, out.String(), "you: hello")
	assert.Contains(t, out.String(), "bot: hi there")

	repl.Handle(ctx, "/clear")
	assert.Empty(t, app.Store.Turns())
	_, ok, err := app.Backend.Get(ctx, "response")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestREPL_Export(t *testing.T) {
	repl, out, _ := newTestREPL(t, &fakeAPI{reply: "hi there"})
	repl.exportDir = t.TempDir()
	ctx := context.Background()

	repl.Handle(ctx, "/export")
	assert.Contains(t, out.String(), "[Warning]")

	repl.Handle(ctx, "hello")
	out.Reset()
	repl.Handle(ctx, "/export html")
	assert.Contains(t, out.String(), "Exported to")

	matches, err := filepath.Glob(filepath.Join(repl.exportDir, "*.html"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "hi there")
}

func TestREPL_StartWarnsOnMalformedHistory(t *testing.T) {
	repl, out, app := newTestREPL(t, &fakeAPI{ids: []string{"text-davinci-003"}})
	ctx := context.Background()
	require.NoError(t, app.Backend.Set(ctx, "response", "{not json"))

	repl.Start(ctx)

	assert.Contains(t, out.String(), "[Warning]")
	assert.Empty(t, app.Store.Turns())
}

func TestREPL_QuitAndUnknownCommand(t *testing.T) {
	repl, out, _ := newTestREPL(t, &fakeAPI{})
	ctx := context.Background()

	assert.True(t, repl.Handle(ctx, "/bogus"))
	assert.Contains(t, out.String(), "Unknown command")
	assert.False(t, repl.Handle(ctx, "/quit"))
}

// =============================================================================
// SERVE TESTS
// =============================================================================

type stubProvider struct{}

func (stubProvider) Complete(ctx context.Context, model, message string) (string, error) {
	return "echo: " + message, nil
}

func (stubProvider) Models(ctx context.Context) ([]api.ModelDescriptor, error) {
	return []api.ModelDescriptor{{Object: api.ObjectEngine, ID: "text-davinci-003", Ready: true}}, nil
}

func (stubProvider) Ping(ctx context.Context) error { return nil }

func TestServe_StopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := server.New(stubProvider{}, server.Options{Addr: ln.Addr().String()})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv, ln) }()

	client := api.NewClient("http://"+ln.Addr().String(), 5*time.Second)
	var reply string
	require.Eventually(t, func() bool {
		reply, err = client.Complete(context.Background(), "hello", "text-davinci-003")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, "echo: hello", reply)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
