package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine-checkable error category returned to API clients.
// Keep these stable; they are part of the HTTP contract.
type Kind string

const (
	KindValidation   Kind = "validation_error"
	KindAuth         Kind = "auth_error"
	KindNotFound     Kind = "not_found"
	KindPrecondition Kind = "precondition_failed"
	KindUpstream     Kind = "upstream_error"
	KindSynthesis    Kind = "synthesis_error"
	KindStorage      Kind = "storage_error"
)

// MaxDetailLen bounds diagnostic payloads included in error responses so
// upstream bodies are never leaked wholesale.
const MaxDetailLen = 500

// Error carries the category, a human-readable message, and optional
// truncated upstream diagnostics.
type Error struct {
	Kind    Kind
	Message string

	// UpstreamStatus is set for KindUpstream when the provider returned one.
	UpstreamStatus int

	// Detail is a bounded excerpt for diagnostics (upstream body, raw LLM
	// content). Always pass it through Truncate.
	Detail string

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps the kind to an HTTP response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindPrecondition:
		return http.StatusConflict
	case KindUpstream:
		if e.UpstreamStatus >= 500 || e.UpstreamStatus == 0 {
			return http.StatusBadGateway
		}
		return http.StatusBadRequest
	case KindSynthesis:
		return http.StatusBadGateway
	case KindStorage:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Auth(msg string) *Error {
	return &Error{Kind: KindAuth, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Precondition(msg string) *Error {
	return &Error{Kind: KindPrecondition, Message: msg}
}

// Upstream wraps a provider failure. status may be 0 for transport errors.
func Upstream(msg string, status int, detail string) *Error {
	return &Error{Kind: KindUpstream, Message: msg, UpstreamStatus: status, Detail: Truncate(detail, MaxDetailLen)}
}

// Synthesis marks content that came back 2xx but could not be decoded.
func Synthesis(msg string, rawExcerpt string) *Error {
	return &Error{Kind: KindSynthesis, Message: msg, Detail: Truncate(rawExcerpt, MaxDetailLen)}
}

func Storage(msg string, cause error) *Error {
	return &Error{Kind: KindStorage, Message: msg, cause: cause}
}

// Wrap attaches a cause without changing the kind.
func Wrap(e *Error, cause error) *Error {
	out := *e
	out.cause = cause
	return &out
}

// From extracts an *Error, or wraps unknown errors as storage failures.
// Services return *Error; anything else reaching the HTTP layer is a bug in
// a repository or client, which is a storage-class failure from the caller's
// point of view.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Storage("internal error", err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, k Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == k
}

// Truncate bounds s to n bytes, marking the cut.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…(truncated)"
}
