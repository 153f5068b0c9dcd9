// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config dir at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FORMCHAT_HOME", dir)
	for _, k := range []string{
		"FORMCHAT_API_URL", "FORMCHAT_MODEL", "FORMCHAT_TIMEOUT", "FORMCHAT_STORAGE",
		"FORMCHAT_STORAGE_PATH", "FORMCHAT_REDIS_ADDR", "FORMCHAT_REDIS_PASSWORD",
		"FORMCHAT_LISTEN", "FORMCHAT_OLLAMA_URL", "FORMCHAT_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
	return dir
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "text-davinci-003", cfg.Client.DefaultModel)
	assert.Equal(t, "response", cfg.Storage.Key)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, 60*time.Second, cfg.Client.Timeout())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Client, cfg.Client)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_PartialFileFillsDefaults(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[client]
default_model = "gpt-3.5"

[storage]
backend = "sqlite"
`), 0600))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gpt-3.5", cfg.Client.DefaultModel)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.Client.APIURL)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "response", cfg.Storage.Key)

	storagePath, err := cfg.StoragePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "formchat.db"), storagePath)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("FORMCHAT_MODEL", "llama3")
	t.Setenv("FORMCHAT_STORAGE", "memory")
	t.Setenv("FORMCHAT_TIMEOUT", "5")
	t.Setenv("FORMCHAT_API_URL", "http://chat.internal:9000")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "llama3", cfg.Client.DefaultModel)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 5*time.Second, cfg.Client.Timeout())
	assert.Equal(t, "http://chat.internal:9000", cfg.Client.APIURL)
}

func TestLoad_InvalidConfig(t *testing.T) {
	isolate(t)
	t.Setenv("FORMCHAT_STORAGE", "floppy")

	_, err := Load("")
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 1)
	assert.Equal(t, "storage.backend", verrs[0].Field)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Client.APIURL = "not a url"
	cfg.UI.Theme = "neon"
	cfg.Log.Level = "loud"
	cfg.Server.RateLimit = 2
	cfg.Server.RateBurst = 0

	err := cfg.Validate()
	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))

	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"client.api_url", "ui.theme", "log.level", "server.rate_burst"}, fields)
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Client.DefaultModel = "mistral"
	cfg.Storage.Backend = "redis"
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mistral", loaded.Client.DefaultModel)
	assert.Equal(t, "redis", loaded.Storage.Backend)
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FORMCHAT_DOTENV_PROBE=from-dotenv\n"), 0600))
	t.Setenv("FORMCHAT_DOTENV_PROBE", "")
	os.Unsetenv("FORMCHAT_DOTENV_PROBE")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv("FORMCHAT_DOTENV_PROBE"))

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
