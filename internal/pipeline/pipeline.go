// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pipeline turns user input into transcript turns.
//
// A submission echoes the message into the transcript, asks the backend for
// a reply with the selected model, appends the reply and persists the
// transcript. At most one submission is in flight at a time: the state check
// and the transition to Submitting happen under one lock, so a second Submit
// while the first is running fails with ErrBusy.
//
// Front ends that must render the echo before the network call returns use
// Begin and Run separately. Submit does both.
package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/formchat/internal/transcript"
)

// State is the pipeline state.
type State int

const (
	Idle State = iota
	Submitting
)

func (s State) String() string {
	if s == Submitting {
		return "submitting"
	}
	return "idle"
}

// Completer produces a reply for a message. *api.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, message, model string) (string, error)
}

// ModelSource supplies the selected model id. *selector.Selector satisfies it.
type ModelSource interface {
	Current() string
}

// Submission is an accepted message waiting for its reply.
type Submission struct {
	Message string
	Model   string
	// Retry is set when the message was already echoed by an earlier
	// failed attempt.
	Retry bool
	// Turns is the transcript right after the echo.
	Turns []string
}

// Result is the outcome of a completed submission.
type Result struct {
	Reply  string
	Turns  []string
	Status Status
}

// Pipeline is the submission state machine. It is safe for concurrent use.
type Pipeline struct {
	store   *transcript.Store
	backend Completer
	models  ModelSource
	timeout time.Duration

	mu      sync.Mutex
	state   State
	status  Status
	pending string
	failed  bool
}

// New creates an idle pipeline. A positive timeout bounds each backend call.
func New(store *transcript.Store, backend Completer, models ModelSource, timeout time.Duration) *Pipeline {
	return &Pipeline{store: store, backend: backend, models: models, timeout: timeout}
}

// Store returns the transcript store the pipeline writes to.
func (p *Pipeline) Store() *transcript.Store {
	return p.store
}

// State returns the current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Status returns the last status. It stays until dismissed or replaced.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// SetStatus replaces the status. Front ends use it to surface errors from
// outside the pipeline, such as a failed model load.
func (p *Pipeline) SetStatus(s Status) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}

// DismissStatus clears the status.
func (p *Pipeline) DismissStatus() {
	p.SetStatus(Status{})
}

// LastFailed returns the message of the last failed submission, if any.
func (p *Pipeline) LastFailed() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending, p.failed
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Submit runs a whole submission and returns once the reply is stored or the
// attempt has failed.
func (p *Pipeline) Submit(ctx context.Context, input string) (Result, error) {
	sub, err := p.Begin(input)
	if err != nil {
		return Result{Turns: p.store.Turns(), Status: p.Status()}, err
	}
	return p.Run(ctx, sub)
}

// Begin validates input, moves to Submitting and echoes the message into the
// transcript. The message is the input in Unicode NFC form; that normalized
// text is what the transcript stores and the backend receives.
//
// Whitespace-only input fails with ErrEmptyInput and leaves the status alone.
// A submission already in flight fails with ErrBusy. Neither changes the
// transcript. If the previous attempt failed, its unanswered echo is replaced
// by the new message and the failed message can no longer be retried.
func (p *Pipeline) Begin(input string) (Submission, error) {
	message := norm.NFC.String(input)
	if strings.TrimSpace(message) == "" {
		return Submission{}, ErrEmptyInput
	}

	p.mu.Lock()
	if p.state == Submitting {
		p.status = Classify(ErrBusy)
		p.mu.Unlock()
		return Submission{}, ErrBusy
	}
	p.state = Submitting
	p.status = Status{}
	p.pending, p.failed = "", false
	p.mu.Unlock()

	turns := p.store.AppendUser(message)
	sub := Submission{Message: message, Model: p.models.Current(), Turns: turns}
	log.Debug().Str("model", sub.Model).Int("len", len(message)).Msg("submission started")
	return sub, nil
}

// BeginRetry starts a new attempt for the last failed message without echoing
// it again.
func (p *Pipeline) BeginRetry() (Submission, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Submitting {
		p.status = Classify(ErrBusy)
		return Submission{}, ErrBusy
	}
	if !p.failed {
		p.status = Classify(ErrNothingToRetry)
		return Submission{}, ErrNothingToRetry
	}

	p.state = Submitting
	p.status = Status{}
	sub := Submission{Message: p.pending, Model: p.models.Current(), Retry: true, Turns: p.store.Turns()}
	log.Debug().Str("model", sub.Model).Msg("retry started")
	return sub, nil
}

// Retry resubmits the last failed message.
func (p *Pipeline) Retry(ctx context.Context) (Result, error) {
	sub, err := p.BeginRetry()
	if err != nil {
		return Result{Turns: p.store.Turns(), Status: p.Status()}, err
	}
	return p.Run(ctx, sub)
}

// Run performs the backend call for sub and settles the pipeline back to
// Idle. On failure the transcript keeps only the echo and the returned
// status is retryable. A reply that cannot be persisted still counts as
// delivered; the storage problem is reported through Result.Status only.
func (p *Pipeline) Run(ctx context.Context, sub Submission) (Result, error) {
	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := p.backend.Complete(callCtx, sub.Message, sub.Model)
	if err != nil {
		status := Classify(err)
		if status.Kind != KindBadResponse {
			status.Kind = KindNetworkFailure
		}
		status.Retryable = true

		log.Warn().Err(err).Str("model", sub.Model).Dur("elapsed", time.Since(start)).Msg("submission failed")

		p.mu.Lock()
		p.state = Idle
		p.status = status
		p.pending, p.failed = sub.Message, true
		p.mu.Unlock()

		return Result{Turns: p.store.Turns(), Status: status}, err
	}

	turns := p.store.Append(reply)
	var status Status
	if perr := p.store.Persist(ctx); perr != nil {
		status = Classify(perr)
	}

	log.Info().Str("model", sub.Model).Dur("elapsed", time.Since(start)).Int("turns", len(turns)).Msg("reply received")

	p.mu.Lock()
	p.state = Idle
	p.status = status
	p.pending, p.failed = "", false
	p.mu.Unlock()

	return Result{Reply: reply, Turns: turns, Status: status}, nil
}

// Clear empties the transcript and removes it from storage. It is refused
// while a submission is in flight so a late reply cannot land in the cleared
// transcript.
func (p *Pipeline) Clear(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Submitting {
		p.status = Classify(ErrBusy)
		return ErrBusy
	}
	p.pending, p.failed = "", false

	if err := p.store.Reset(ctx); err != nil {
		p.status = Classify(err)
		return err
	}
	p.status = Status{}
	log.Info().Msg("history cleared")
	return nil
}
