// Package api implements the shared HTTP layer for the ordering backend:
// request execution, the response envelope, and the error taxonomy. Both the
// customer and admin clients are built on top of it.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized marks a request the backend refused with 401, or a
// credential the client-side expiry check rejected. The owning credential
// is cleared before this error surfaces.
var ErrUnauthorized = errors.New("unauthorized")

// Envelope is the response shape every backend endpoint uses:
// {success, data?, message?}. Absence of success:true is always a failure,
// regardless of HTTP status.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// decodeEnvelope parses a response body on a best-effort basis. A body that
// is not valid JSON yields an empty envelope rather than an error; callers
// inspect the Success flag.
func decodeEnvelope(body []byte) Envelope {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}
	}
	return env
}

// Error is a request the backend rejected: non-2xx status, or a 2xx body
// without success:true.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// TransportError is a request the transport layer could not complete at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// EnvelopeError converts a completed response into an *Error, or nil when the
// response is a success. The message comes from the body when present,
// otherwise it is synthesized from the status code.
func EnvelopeError(status int, env Envelope) error {
	if status >= 200 && status < 300 && env.Success {
		return nil
	}
	msg := env.Message
	if msg == "" {
		msg = fmt.Sprintf("request failed (%d %s)", status, http.StatusText(status))
	}
	return &Error{Status: status, Message: msg}
}
