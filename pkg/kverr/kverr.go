// Package kverr defines the error type carried from storage through
// the transaction manager to the HTTP layer, where its Kind maps
// directly to a status code.
package kverr

import (
	"fmt"
	"net/http"
)

// Kind classifies an Error for status-code mapping and logging level.
type Kind string

const (
	KindStorage        Kind = "storage"
	KindTransaction    Kind = "transaction"
	KindAuth           Kind = "auth"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindInvalidRequest Kind = "invalid_request"
	KindCompression    Kind = "compression"
	KindHash           Kind = "hash"
	KindInternal       Kind = "internal"
)

// Error is the typed error returned from storage, txn, and api
// operations. Wrap lower-level errors with %w via New to preserve them
// for inspection while still attaching a Kind.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// displayName is the human-facing phrasing for a Kind, independent of
// the machine-readable Kind string itself.
func (k Kind) displayName() string {
	switch k {
	case KindStorage:
		return "Storage error"
	case KindTransaction:
		return "Transaction error"
	case KindAuth:
		return "Authentication error"
	case KindNotFound:
		return "Not found"
	case KindConflict:
		return "Conflict"
	case KindInvalidRequest:
		return "Invalid request"
	case KindCompression:
		return "Compression error"
	case KindHash:
		return "Hash error"
	default:
		return "Internal error"
	}
}

// ClientMessage renders the message this error's Kind and Msg are safe
// to hand back to a caller over the wire: it never includes Err, so a
// wrapped internal error (a filesystem path, a driver's own message)
// never reaches a client.
func (e *Error) ClientMessage() string {
	return fmt.Sprintf("%s: %s", e.Kind.displayName(), e.Msg)
}

// New builds an Error of the given kind wrapping err, which may be nil.
func New(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// StatusCode maps a Kind to the HTTP status the api package should
// answer with.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindAuth:
		return http.StatusUnauthorized
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindStorage, KindTransaction, KindCompression, KindHash, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// IsServerError reports whether this Kind represents a 5xx condition,
// which the api package logs at error level; 4xx kinds log at debug
// level to avoid drowning real failures in client mistakes.
func (e *Error) IsServerError() bool {
	return e.StatusCode() >= http.StatusInternalServerError
}

func NotFound(msg string) *Error       { return New(KindNotFound, msg, nil) }
func Conflict(msg string) *Error       { return New(KindConflict, msg, nil) }
func InvalidRequest(msg string) *Error { return New(KindInvalidRequest, msg, nil) }
func Auth(msg string) *Error           { return New(KindAuth, msg, nil) }
func Storage(msg string, err error) *Error {
	return New(KindStorage, msg, err)
}
func Internal(msg string, err error) *Error {
	return New(KindInternal, msg, err)
}
