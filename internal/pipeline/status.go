// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"errors"

	"github.com/jeranaias/formchat/internal/api"
	"github.com/jeranaias/formchat/internal/selector"
	"github.com/jeranaias/formchat/internal/storage"
	"github.com/jeranaias/formchat/internal/transcript"
)

// =============================================================================
// STATUS
// =============================================================================

// Kind categorizes a status shown to the user.
type Kind int

const (
	KindNone Kind = iota
	KindEmptyInput
	KindBusy
	KindNetworkFailure
	KindBadResponse
	KindStorageUnavailable
	KindWarning
	KindInfo
)

func (k Kind) String() string {
	switch k {
	case KindEmptyInput:
		return "EmptyInput"
	case KindBusy:
		return "Busy"
	case KindNetworkFailure:
		return "NetworkFailure"
	case KindBadResponse:
		return "BadResponse"
	case KindStorageUnavailable:
		return "StorageUnavailable"
	case KindWarning:
		return "Warning"
	case KindInfo:
		return "Info"
	default:
		return "None"
	}
}

// IsError reports whether the kind should be rendered as an error.
func (k Kind) IsError() bool {
	switch k {
	case KindNetworkFailure, KindBadResponse, KindStorageUnavailable:
		return true
	}
	return false
}

// Status is a dismissible message about the last operation.
type Status struct {
	Kind      Kind
	Message   string
	Retryable bool
}

// Empty reports whether there is nothing to show.
func (s Status) Empty() bool {
	return s.Kind == KindNone
}

// Sentinel errors returned by Submit and Retry.
var (
	ErrEmptyInput     = errors.New("message is empty")
	ErrBusy           = errors.New("a submission is already in flight")
	ErrNothingToRetry = errors.New("no failed message to retry")
)

// Classify maps an error from any formchat component onto a Status.
// A nil error yields the empty status.
func Classify(err error) Status {
	var (
		malformed *transcript.MalformedError
		missing   *selector.DefaultMissingError
	)

	switch {
	case err == nil:
		return Status{}
	case errors.Is(err, ErrEmptyInput):
		return Status{Kind: KindEmptyInput, Message: "Type a message first."}
	case errors.Is(err, ErrBusy):
		return Status{Kind: KindBusy, Message: "Still waiting for the previous reply."}
	case errors.Is(err, ErrNothingToRetry):
		return Status{Kind: KindInfo, Message: "Nothing to retry."}
	case errors.As(err, &malformed):
		return Status{Kind: KindWarning, Message: "Saved history was unreadable and has been discarded."}
	case errors.As(err, &missing):
		return Status{Kind: KindWarning, Message: missing.Error()}
	case errors.Is(err, storage.ErrUnavailable):
		return Status{Kind: KindStorageUnavailable, Message: "Local storage is unavailable: " + err.Error()}
	case api.IsBadResponse(err):
		return Status{Kind: KindBadResponse, Message: "The backend sent an unexpected reply: " + err.Error(), Retryable: true}
	case api.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return Status{Kind: KindNetworkFailure, Message: "The backend did not answer in time.", Retryable: true}
	default:
		return Status{Kind: KindNetworkFailure, Message: "Could not reach the backend: " + err.Error(), Retryable: true}
	}
}
