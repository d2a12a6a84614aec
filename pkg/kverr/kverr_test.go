package kverr

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestStatusCodeMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindAuth, http.StatusUnauthorized},
		{KindInvalidRequest, http.StatusBadRequest},
		{KindStorage, http.StatusInternalServerError},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, c := range cases {
		e := New(c.kind, "x", nil)
		if got := e.StatusCode(); got != c.want {
			t.Errorf("%s: got %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestIsServerError(t *testing.T) {
	if !Internal("boom", nil).IsServerError() {
		t.Fatal("internal error should be a server error")
	}
	if NotFound("missing").IsServerError() {
		t.Fatal("not-found should not be a server error")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	e := Storage("write failed", cause)
	if !errors.Is(e, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
}

func TestErrorMessageIncludesKindAndMessage(t *testing.T) {
	e := Conflict("key exists")
	if e.Error() != "conflict: key exists" {
		t.Fatalf("got %q", e.Error())
	}
}

func TestClientMessageOmitsWrappedError(t *testing.T) {
	cause := errors.New("open /var/lib/kvstore/db: permission denied")
	e := Storage("read existing key meta", cause)

	got := e.ClientMessage()
	if got != "Storage error: read existing key meta" {
		t.Fatalf("got %q", got)
	}
	if strings.Contains(got, "permission denied") {
		t.Fatalf("ClientMessage leaked the wrapped cause: %q", got)
	}
}

func TestClientMessageMatchesDisplayNamePerKind(t *testing.T) {
	cases := []struct {
		kind Kind
		msg  string
		want string
	}{
		{KindNotFound, "key 'x' not found", "Not found: key 'x' not found"},
		{KindConflict, "key exists", "Conflict: key exists"},
		{KindAuth, "missing bearer token", "Authentication error: missing bearer token"},
		{KindInvalidRequest, "key must not be empty", "Invalid request: key must not be empty"},
		{KindCompression, "compress body", "Compression error: compress body"},
		{KindHash, "unsupported algorithm", "Hash error: unsupported algorithm"},
		{KindInternal, "unexpected error", "Internal error: unexpected error"},
	}
	for _, c := range cases {
		e := New(c.kind, c.msg, nil)
		if got := e.ClientMessage(); got != c.want {
			t.Errorf("%s: got %q, want %q", c.kind, got, c.want)
		}
	}
}
