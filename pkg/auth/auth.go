// Package auth checks the bearer token on incoming requests against
// the token configured for this process, in constant time so a
// timing side-channel can't be used to guess it one byte at a time.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cuemby/kvstore/pkg/kverr"
)

const bearerPrefix = "Bearer "

// Checker holds the expected token in memory for the process lifetime.
// Callers that need to wipe it on shutdown should use Zero.
type Checker struct {
	token []byte
}

// New returns a Checker comparing incoming tokens against expected.
func New(expected string) *Checker {
	return &Checker{token: []byte(expected)}
}

// Check validates the Authorization header of r against the
// configured token, returning a kverr.Auth error describing exactly
// what was wrong (missing header, wrong scheme, wrong token) without
// ever logging the token values involved.
func (c *Checker) Check(r *http.Request) error {
	header := r.Header.Get("Authorization")
	if header == "" {
		return kverr.Auth("missing Authorization header")
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return kverr.Auth("Authorization header must use Bearer scheme")
	}
	token := []byte(header[len(bearerPrefix):])

	// Compare equal-length padded copies so a length mismatch does not
	// return early; the length check itself is folded in with
	// ConstantTimeEq.
	n := len(c.token)
	if len(token) > n {
		n = len(token)
	}
	got := make([]byte, n)
	want := make([]byte, n)
	copy(got, token)
	copy(want, c.token)
	sameLen := subtle.ConstantTimeEq(int32(len(token)), int32(len(c.token)))
	if subtle.ConstantTimeCompare(got, want)&sameLen != 1 {
		return kverr.Auth("invalid token")
	}
	return nil
}

// Zero overwrites the in-memory token so it doesn't linger in the
// process's heap after shutdown. Callers hold no further reference to
// it once this returns.
func (c *Checker) Zero() {
	for i := range c.token {
		c.token[i] = 0
	}
}
