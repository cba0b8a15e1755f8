// Package auth implements the request authentication strategies guarding the
// operational endpoints (/metrics and the publish bridge).
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Authenticator is the interface all auth strategies implement.
type Authenticator interface {
	Authenticate(r *http.Request) bool
}

// BasicAuth validates HTTP Basic credentials against a username→password map.
type BasicAuth struct {
	users map[string]string
}

func NewBasicAuth(users map[string]string) *BasicAuth {
	return &BasicAuth{users: users}
}

func (a *BasicAuth) Authenticate(r *http.Request) bool {
	username, password, ok := r.BasicAuth()
	if !ok {
		return false
	}

	expected, exists := a.users[username]
	if !exists {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(password), []byte(expected)) == 1
}

// BearerAuth validates Bearer tokens against a configured list.
type BearerAuth struct {
	tokens [][]byte
}

func NewBearerAuth(tokens []string) *BearerAuth {
	// Pre-convert once; also decouples us from the caller's slice.
	t := make([][]byte, len(tokens))
	for i, tok := range tokens {
		t[i] = []byte(tok)
	}
	return &BearerAuth{tokens: t}
}

func (a *BearerAuth) Authenticate(r *http.Request) bool {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return false
	}

	incoming := []byte(parts[1])

	// Constant-time comparison across the whole list; must not
	// short-circuit in a way that leaks which token matched.
	var matched int
	for _, t := range a.tokens {
		matched |= subtle.ConstantTimeCompare(incoming, t)
	}
	return matched == 1
}

// MultiAuth auto-detects the authentication scheme from the incoming
// Authorization header and delegates to BasicAuth or BearerAuth. With no
// users and no tokens configured it allows all requests.
type MultiAuth struct {
	basic  *BasicAuth  // nil when no users configured
	bearer *BearerAuth // nil when no tokens configured
}

// NewMultiAuth creates an auto-detecting authenticator. Pass nil/empty maps
// or slices for schemes you don't need.
func NewMultiAuth(users map[string]string, tokens []string) *MultiAuth {
	m := &MultiAuth{}
	if len(users) > 0 {
		m.basic = NewBasicAuth(users)
	}
	if len(tokens) > 0 {
		m.bearer = NewBearerAuth(tokens)
	}
	return m
}

// HasAuth returns true if at least one auth scheme is configured.
func (m *MultiAuth) HasAuth() bool {
	return m.basic != nil || m.bearer != nil
}

// Authenticate inspects the Authorization header scheme and delegates.
// No auth configured allows everything; a missing or unrecognised header is
// rejected as soon as any scheme is configured.
func (m *MultiAuth) Authenticate(r *http.Request) bool {
	if !m.HasAuth() {
		return true
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 {
		return false
	}

	switch strings.ToLower(parts[0]) {
	case "basic":
		return m.basic != nil && m.basic.Authenticate(r)
	case "bearer":
		return m.bearer != nil && m.bearer.Authenticate(r)
	default:
		return false
	}
}
