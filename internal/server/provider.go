// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/formchat/internal/api"
	"github.com/jeranaias/formchat/internal/ollama"
)

// Provider produces completions and model listings for the handlers.
type Provider interface {
	Complete(ctx context.Context, model, message string) (string, error)
	Models(ctx context.Context) ([]api.ModelDescriptor, error)
	Ping(ctx context.Context) error
}

// Provider errors the handlers translate into HTTP statuses.
var (
	ErrUnknownModel     = errors.New("unknown model")
	ErrUpstreamDown     = errors.New("model provider unavailable")
	ErrUpstreamTimeout  = errors.New("model provider timed out")
	ErrUpstreamRejected = errors.New("model provider rejected the request")
)

// OllamaProvider serves completions from a local Ollama server.
type OllamaProvider struct {
	client *ollama.Client
	owner  string
}

// NewOllamaProvider wraps client. owner is reported in every descriptor.
func NewOllamaProvider(client *ollama.Client, owner string) *OllamaProvider {
	if owner == "" {
		owner = "ollama"
	}
	return &OllamaProvider{client: client, owner: owner}
}

// Complete sends message as a single user turn.
func (p *OllamaProvider) Complete(ctx context.Context, model, message string) (string, error) {
	resp, err := p.client.Chat(ctx, model, []ollama.Message{ollama.NewUserMessage(message)})
	if err != nil {
		return "", translate(err)
	}
	log.Debug().
		Str("model", model).
		Int("eval_count", resp.EvalCount).
		Float64("tokens_per_sec", resp.TokensPerSecond()).
		Dur("total", resp.TotalTime()).
		Msg("ollama chat completed")
	return resp.Message.Content, nil
}

// Models lists the installed models as engine descriptors.
func (p *OllamaProvider) Models(ctx context.Context) ([]api.ModelDescriptor, error) {
	models, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, translate(err)
	}

	out := make([]api.ModelDescriptor, 0, len(models))
	for _, m := range models {
		created := ""
		if !m.ModifiedAt.IsZero() {
			created = m.ModifiedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, api.ModelDescriptor{
			Object:  api.ObjectEngine,
			ID:      m.Name,
			Ready:   true,
			Owner:   p.owner,
			Created: created,
		})
	}
	return out, nil
}

// Ping checks that Ollama answers.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	if err := p.client.CheckRunning(ctx); err != nil {
		return translate(err)
	}
	return nil
}

func translate(err error) error {
	switch {
	case ollama.IsModelNotFound(err):
		return errors.Wrap(ErrUnknownModel, err.Error())
	case ollama.IsTimeout(err):
		return errors.Wrap(ErrUpstreamTimeout, err.Error())
	case ollama.IsNotRunning(err):
		return errors.Wrap(ErrUpstreamDown, err.Error())
	default:
		return errors.Wrap(ErrUpstreamRejected, err.Error())
	}
}
