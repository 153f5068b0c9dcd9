// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"net"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the backend client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a ClientError of the same type, so that
// errors.Is(err, ErrTimeout) matches any timeout regardless of its cause.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	return ok && t.Type == e.Type
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	// ErrTypeNetwork covers unreachable backends and non-2xx statuses.
	ErrTypeNetwork
	ErrTypeTimeout
	ErrTypeCanceled
	// ErrTypeBadResponse covers bodies that do not match the expected shape.
	ErrTypeBadResponse
)

func (t ErrorType) String() string {
	switch t {
	case ErrTypeNetwork:
		return "network"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeCanceled:
		return "canceled"
	case ErrTypeBadResponse:
		return "bad_response"
	default:
		return "unknown"
	}
}

// Sentinel errors for easy checking.
var (
	ErrNetworkFailure = &ClientError{Type: ErrTypeNetwork, Message: "backend unreachable"}
	ErrTimeout        = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrCanceled       = &ClientError{Type: ErrTypeCanceled, Message: "request canceled"}
	ErrBadResponse    = &ClientError{Type: ErrTypeBadResponse, Message: "unexpected response from backend"}
)

// transportError classifies an error returned by http.Client.Do.
func transportError(err error) *ClientError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	case errors.Is(err, context.Canceled):
		return &ClientError{Type: ErrTypeCanceled, Message: "request canceled", Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	return &ClientError{Type: ErrTypeNetwork, Message: "backend unreachable", Cause: err}
}

func badResponse(msg string, cause error) *ClientError {
	return &ClientError{Type: ErrTypeBadResponse, Message: msg, Cause: cause}
}

func typeOf(err error) ErrorType {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type
	}
	return ErrTypeUnknown
}

// IsNetworkFailure reports whether err means the request did not complete:
// the backend was unreachable, answered with a non-2xx status, timed out or
// was canceled.
func IsNetworkFailure(err error) bool {
	switch typeOf(err) {
	case ErrTypeNetwork, ErrTypeTimeout, ErrTypeCanceled:
		return true
	}
	return false
}

// IsBadResponse reports whether err means the backend answered with a body
// that did not match the expected schema.
func IsBadResponse(err error) bool {
	return typeOf(err) == ErrTypeBadResponse
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return typeOf(err) == ErrTypeTimeout
}
