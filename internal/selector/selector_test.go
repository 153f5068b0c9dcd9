// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package selector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/formchat/internal/api"
)

type fakeLister struct {
	models []api.ModelDescriptor
	err    error
	calls  int
}

func (f *fakeLister) ListModels(ctx context.Context) ([]api.ModelDescriptor, error) {
	f.calls++
	return f.models, f.err
}

func descriptors(ids ...string) []api.ModelDescriptor {
	out := make([]api.ModelDescriptor, len(ids))
	for i, id := range ids {
		out[i] = api.ModelDescriptor{Object: api.ObjectEngine, ID: id, Ready: true}
	}
	return out
}

func TestLoad_SelectsDefaultWhenPresent(t *testing.T) {
	lister := &fakeLister{models: descriptors("text-davinci-003", "gpt-3.5")}
	s := New(lister, "text-davinci-003")
	s.Select("gpt-3.5")

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, "text-davinci-003", s.Current())
	assert.Equal(t, []string{"text-davinci-003", "gpt-3.5"}, s.IDs())
	assert.True(t, s.Loaded())
	assert.Equal(t, 1, lister.calls)
}

func TestLoad_DefaultNotFirst(t *testing.T) {
	s := New(&fakeLister{models: descriptors("a", "b", "text-davinci-003")}, "text-davinci-003")

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, "text-davinci-003", s.Current())
}

func TestLoad_DefaultMissingKeepsSelection(t *testing.T) {
	s := New(&fakeLister{models: descriptors("gpt-3.5", "gpt-4")}, "text-davinci-003")
	s.Select("gpt-4")

	err := s.Load(context.Background())

	var missing *DefaultMissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "text-davinci-003", missing.Default)
	assert.Equal(t, "gpt-4", missing.Current)
	assert.Equal(t, "gpt-4", s.Current())
	assert.Equal(t, []string{"gpt-3.5", "gpt-4"}, s.IDs())
	assert.True(t, s.Loaded())
}

func TestLoad_EmptyListKeepsSelection(t *testing.T) {
	s := New(&fakeLister{models: []api.ModelDescriptor{}}, "text-davinci-003")

	err := s.Load(context.Background())
	var missing *DefaultMissingError
	assert.True(t, errors.As(err, &missing))
	assert.Equal(t, "text-davinci-003", s.Current())
	assert.Empty(t, s.IDs())
}

func TestLoad_FailureLeavesStateUntouched(t *testing.T) {
	lister := &fakeLister{err: api.ErrNetworkFailure}
	s := New(lister, "text-davinci-003")

	err := s.Load(context.Background())
	assert.True(t, api.IsNetworkFailure(err))
	assert.False(t, s.Loaded())
	assert.Empty(t, s.Models())
	assert.Equal(t, "text-davinci-003", s.Current())
}

func TestSelect_DoesNotValidate(t *testing.T) {
	s := New(&fakeLister{models: descriptors("text-davinci-003")}, "text-davinci-003")
	require.NoError(t, s.Load(context.Background()))

	s.Select("not-offered")
	assert.Equal(t, "not-offered", s.Current())
	assert.Equal(t, "text-davinci-003", s.Default())
}

func TestModels_ReturnsCopy(t *testing.T) {
	s := New(&fakeLister{models: descriptors("a")}, "a")
	require.NoError(t, s.Load(context.Background()))

	models := s.Models()
	models[0].ID = "changed"
	assert.Equal(t, []string{"a"}, s.IDs())
}
