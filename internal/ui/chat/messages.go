// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/formchat/internal/pipeline"
)

// RestoredMsg carries the outcome of restoring the saved transcript.
type RestoredMsg struct {
	Turns []string
	Err   error
}

// ModelsLoadedMsg reports that the model list request finished.
type ModelsLoadedMsg struct {
	Err error
}

// ReplyMsg carries the outcome of a submission or retry.
type ReplyMsg struct {
	Result pipeline.Result
	Err    error
}
