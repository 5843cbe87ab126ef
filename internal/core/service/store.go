package service

import (
	"context"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
)

// SessionStore persists sessions and per-form anti-replay tokens.
//
// Check returns domain.ErrSessionNotFound, domain.ErrSessionExpired or
// domain.ErrSessionInvalid for cookies that do not authenticate; any other
// error is a storage failure. Form checks return false for unknown or
// already closed tokens.
type SessionStore interface {
	// Create starts a session for login in company and returns it with the
	// plaintext token for the cookie.
	Create(ctx context.Context, login, company string) (*domain.Session, string, error)

	// Check verifies a cookie and extends the session's expiry.
	Check(ctx context.Context, cookie domain.SessionCookie) (*domain.Session, error)

	// Delete ends a session and its form tokens.
	Delete(ctx context.Context, sessionID string) error

	// OpenForm issues a form token bound to the session.
	OpenForm(ctx context.Context, sessionID string) (domain.FormToken, error)

	// CheckForm reports whether the token is open, without consuming it.
	CheckForm(ctx context.Context, sessionID string, token domain.FormToken) (bool, error)

	// CloseForm consumes the token. Only the first close of an open token
	// returns true.
	CloseForm(ctx context.Context, sessionID string, token domain.FormToken) (bool, error)
}
