// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/jeranaias/formchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete formchat configuration.
type Config struct {
	Version string `toml:"version"`

	Client  ClientConfig  `toml:"client"`
	Storage StorageConfig `toml:"storage"`
	Server  ServerConfig  `toml:"server"`
	Log     LogConfig     `toml:"log"`
	UI      UIConfig      `toml:"ui"`
}

// ClientConfig controls how the chat client reaches its backend.
type ClientConfig struct {
	// APIURL is the base URL serving /api/response and /api/models.
	APIURL string `toml:"api_url"`
	// DefaultModel is selected at startup and preferred when the model list contains it.
	DefaultModel string `toml:"default_model"`
	// TimeoutSecs bounds a single completion or listing request.
	TimeoutSecs int `toml:"timeout_secs"`
}

// StorageConfig selects the durable transcript backend.
type StorageConfig struct {
	// Backend is one of "file", "sqlite", "redis", "memory".
	Backend string `toml:"backend"`
	// Path is the directory (file) or database file (sqlite). Empty = under the config dir.
	Path string `toml:"path"`
	// Key is the storage key holding the transcript.
	Key string `toml:"key"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix"`
}

// ServerConfig configures `formchat serve`.
type ServerConfig struct {
	Listen    string `toml:"listen"`
	OllamaURL string `toml:"ollama_url"`
	// Owner is reported in model descriptors.
	Owner string `toml:"owner"`
	// RateLimit is the sustained requests per second per client IP (0 = unlimited).
	RateLimit    float64 `toml:"rate_limit"`
	RateBurst    int     `toml:"rate_burst"`
	MaxBodyBytes int64   `toml:"max_body_bytes"`
	// UpstreamTimeoutSecs bounds a single call to the model provider.
	UpstreamTimeoutSecs int `toml:"upstream_timeout_secs"`
}

// LogConfig configures the zerolog sink.
type LogConfig struct {
	Level string `toml:"level"`
	// File receives logs while the full-screen UI owns the terminal.
	File string `toml:"file"`
}

// UIConfig contains terminal UI preferences.
type UIConfig struct {
	// Theme is "auto", "dark" or "light".
	Theme string `toml:"theme"`
	// Markdown renders bot replies through glamour.
	Markdown bool `toml:"markdown"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// DefaultModel is the model preferred when the backend lists it.
const DefaultModel = "text-davinci-003"

// DefaultStorageKey is the key the transcript is stored under.
const DefaultStorageKey = "response"

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1",
		Client: ClientConfig{
			APIURL:       "http://127.0.0.1:8080",
			DefaultModel: DefaultModel,
			TimeoutSecs:  60,
		},
		Storage: StorageConfig{
			Backend:     "file",
			Key:         DefaultStorageKey,
			RedisAddr:   "127.0.0.1:6379",
			RedisPrefix: "formchat:",
		},
		Server: ServerConfig{
			Listen:              "127.0.0.1:8080",
			OllamaURL:           "http://127.0.0.1:11434",
			Owner:               "ollama",
			RateLimit:           5,
			RateBurst:           10,
			MaxBodyBytes:        1 << 20,
			UpstreamTimeoutSecs: 120,
		},
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			Theme:    "auto",
			Markdown: true,
		},
	}
}

// Timeout returns the client request timeout.
func (c ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// UpstreamTimeout returns the provider call timeout.
func (c ServerConfig) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutSecs) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the formchat configuration directory.
// FORMCHAT_HOME overrides the default ~/.formchat.
func Dir() (string, error) {
	if home := os.Getenv("FORMCHAT_HOME"); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return filepath.Join(home, ".formchat"), nil
}

// Path returns the default config file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// StoragePath returns the configured storage path or the backend default.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if strings.EqualFold(c.Storage.Backend, "sqlite") {
		return filepath.Join(dir, "formchat.db"), nil
	}
	return filepath.Join(dir, "storage"), nil
}

// LogPath returns the configured log file or the default under the config dir.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "formchat.log"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv loads ./.env into the process environment. Variables that are
// already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return errors.Wrapf(godotenv.Load(path), "load %s", path)
}

// Load reads configuration from path, or from the default location when path
// is empty. A missing default file yields the built-in defaults; a missing
// explicit path is an error. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	} else if explicit {
		return nil, errors.Wrapf(err, "config file %s", path)
	}

	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return errors.Wrap(err, "failed to decode TOML file")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return nil
}

// fillDefaults fills in any values a partial file left empty.
func (c *Config) fillDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Client.APIURL == "" {
		c.Client.APIURL = d.Client.APIURL
	}
	if c.Client.DefaultModel == "" {
		c.Client.DefaultModel = d.Client.DefaultModel
	}
	if c.Client.TimeoutSecs == 0 {
		c.Client.TimeoutSecs = d.Client.TimeoutSecs
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Storage.Key == "" {
		c.Storage.Key = d.Storage.Key
	}
	if c.Storage.RedisAddr == "" {
		c.Storage.RedisAddr = d.Storage.RedisAddr
	}
	if c.Server.Listen == "" {
		c.Server.Listen = d.Server.Listen
	}
	if c.Server.OllamaURL == "" {
		c.Server.OllamaURL = d.Server.OllamaURL
	}
	if c.Server.Owner == "" {
		c.Server.Owner = d.Server.Owner
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = d.Server.MaxBodyBytes
	}
	if c.Server.UpstreamTimeoutSecs == 0 {
		c.Server.UpstreamTimeoutSecs = d.Server.UpstreamTimeoutSecs
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes cfg to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var sb strings.Builder
	sb.WriteString("# formchat configuration file\n")
	sb.WriteString("# Generated by `formchat config init` - edit with care\n\n")

	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	// The file may hold a redis password.
	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// Encode renders cfg as TOML.
func (c *Config) Encode() (string, error) {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(c); err != nil {
		return "", errors.Wrap(err, "failed to encode config")
	}
	return sb.String(), nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validBackends = map[string]bool{"file": true, "sqlite": true, "redis": true, "memory": true}

var validThemes = map[string]bool{"auto": true, "dark": true, "light": true}

var validLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true,
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors

	for field, raw := range map[string]string{
		"client.api_url":    c.Client.APIURL,
		"server.ollama_url": c.Server.OllamaURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("invalid URL %q", raw)})
		}
	}

	if c.Client.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "client.timeout_secs", Message: "cannot be negative"})
	}
	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: file, sqlite, redis, memory", c.Storage.Backend),
		})
	}
	if c.Storage.RedisDB < 0 {
		errs = append(errs, ValidationError{Field: "storage.redis_db", Message: "cannot be negative"})
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, ValidationError{Field: "server.rate_limit", Message: "cannot be negative"})
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		errs = append(errs, ValidationError{Field: "server.rate_burst", Message: "must be at least 1 when rate_limit is set"})
	}
	if c.Server.MaxBodyBytes < 0 {
		errs = append(errs, ValidationError{Field: "server.max_body_bytes", Message: "cannot be negative"})
	}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s'", c.Log.Level),
		})
	}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - FORMCHAT_API_URL: client.api_url
//   - FORMCHAT_MODEL: client.default_model
//   - FORMCHAT_TIMEOUT: client.timeout_secs
//   - FORMCHAT_STORAGE: storage.backend
//   - FORMCHAT_STORAGE_PATH: storage.path
//   - FORMCHAT_REDIS_ADDR, FORMCHAT_REDIS_PASSWORD: storage.redis_*
//   - FORMCHAT_LISTEN: server.listen
//   - FORMCHAT_OLLAMA_URL: server.ollama_url
//   - FORMCHAT_LOG_LEVEL: log.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("FORMCHAT_API_URL"); v != "" {
		c.Client.APIURL = v
	}
	if v := os.Getenv("FORMCHAT_MODEL"); v != "" {
		c.Client.DefaultModel = v
	}
	if v := os.Getenv("FORMCHAT_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Client.TimeoutSecs = secs
		}
	}
	if v := os.Getenv("FORMCHAT_STORAGE"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("FORMCHAT_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("FORMCHAT_REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv("FORMCHAT_REDIS_PASSWORD"); v != "" {
		c.Storage.RedisPassword = v
	}
	if v := os.Getenv("FORMCHAT_LISTEN"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("FORMCHAT_OLLAMA_URL"); v != "" {
		c.Server.OllamaURL = v
	}
	if v := os.Getenv("FORMCHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}
