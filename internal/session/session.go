// Package session holds the credential context handed to every backend
// caller. Nothing in the polling layer reads ambient storage directly.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// TokenSource yields the current bearer token. ok is false when no token is
// stored, which is a valid state and not an error.
type TokenSource interface {
	Token(ctx context.Context) (token string, ok bool, err error)
}

// Session is the explicit credential context of one signed-in user.
type Session struct {
	source TokenSource
}

// New wraps a token source. A nil source means "signed out".
func New(source TokenSource) *Session {
	return &Session{source: source}
}

// Token returns the bearer token if one is available.
func (s *Session) Token(ctx context.Context) (string, bool, error) {
	if s == nil || s.source == nil {
		return "", false, nil
	}
	token, ok, err := s.source.Token(ctx)
	if err != nil {
		return "", false, err
	}
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return "", false, nil
	}
	return token, true, nil
}

// StaticToken is a fixed token, mostly useful in tests and one-off CLI runs.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, bool, error) {
	return string(t), t != "", nil
}

// EnvToken reads the token from an environment variable on every call.
type EnvToken string

func (e EnvToken) Token(context.Context) (string, bool, error) {
	v, ok := os.LookupEnv(string(e))
	return v, ok && v != "", nil
}

// FileToken reads the token from a file on every call so that an external
// session guard can rotate it in place.
type FileToken string

func (f FileToken) Token(context.Context) (string, bool, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading token file: %w", err)
	}
	return string(data), len(data) > 0, nil
}
