// Package ai talks to the answer providers behind the chat: a search-grounded
// Gemini model and a small keyword FAQ used when no model is configured.
package ai

import (
	"context"
	"fmt"
)

// Asker answers a prompt under a persona. Every non-nil error returned by an
// Asker in this package is a *Failure.
type Asker interface {
	Ask(ctx context.Context, prompt, persona string) (string, error)
}

// AskerFunc adapts a function to the Asker interface.
type AskerFunc func(ctx context.Context, prompt, persona string) (string, error)

// Ask implements Asker.
func (f AskerFunc) Ask(ctx context.Context, prompt, persona string) (string, error) {
	return f(ctx, prompt, persona)
}

// Reason classifies why no answer was produced.
type Reason string

const (
	ReasonTransport        Reason = "transport_error"
	ReasonTimeout          Reason = "timeout"
	ReasonCanceled         Reason = "canceled"
	ReasonHTTPStatus       Reason = "http_status"
	ReasonRetriesExhausted Reason = "retries_exhausted"
	ReasonEmptyResponse    Reason = "empty_response"
	ReasonBadResponse      Reason = "bad_response"
	ReasonNoMatch          Reason = "no_match"
)

// Failure is the only error kind an Asker returns.
type Failure struct {
	Reason   Reason
	Status   int // last HTTP status, 0 if none was received
	Attempts int
	Err      error
}

func (f *Failure) Error() string {
	msg := "ai: " + string(f.Reason)
	if f.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", f.Status)
	}
	if f.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", f.Attempts)
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}
