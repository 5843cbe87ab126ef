package memory

import (
	"context"
	"time"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/service"
	"github.com/yndnr/ledgergate-go/pkg/cmap"
)

var _ service.SessionStore = (*Store)(nil)

// Default lifetimes.
const (
	DefaultSessionTTL = 90 * time.Minute
	DefaultFormTTL    = 8 * time.Hour
)

// entry is one session and its open form tokens. It is only touched
// under its shard lock.
type entry struct {
	session *domain.Session
	forms   map[string]int64 // form ID to expiry, Unix ms; 0 never expires
}

// Store is an in-memory SessionStore.
type Store struct {
	sessions *cmap.Map[*entry]

	sessionTTL time.Duration
	formTTL    time.Duration
	now        func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithSessionTTL sets the sliding session lifetime. Zero never expires.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.sessionTTL = ttl
	}
}

// WithFormTTL sets the form token lifetime.
func WithFormTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.formTTL = ttl
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		sessions:   cmap.New[*entry](),
		sessionTTL: DefaultSessionTTL,
		formTTL:    DefaultFormTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create implements service.SessionStore.
func (s *Store) Create(_ context.Context, login, company string) (*domain.Session, string, error) {
	session, err := domain.NewSession(login, company, 0)
	if err != nil {
		return nil, "", err
	}
	if err := session.Validate(); err != nil {
		return nil, "", err
	}

	plaintext, hash, err := domain.GenerateToken()
	if err != nil {
		return nil, "", err
	}
	now := s.now()
	session.TokenHash = hash
	session.CreatedAt = now.UnixMilli()
	session.Touch(now, s.sessionTTL)

	s.sessions.Set(session.ID, &entry{session: session, forms: make(map[string]int64)})
	return session.Clone(), plaintext, nil
}

// Check implements service.SessionStore.
func (s *Store) Check(_ context.Context, cookie domain.SessionCookie) (*domain.Session, error) {
	var (
		out *domain.Session
		err error
	)
	now := s.now()
	s.sessions.Update(cookie.SessionID, func(e *entry, ok bool) (*entry, bool) {
		switch {
		case !ok:
			err = domain.ErrSessionNotFound
			return nil, false
		case e.session.IsExpiredAt(now):
			err = domain.ErrSessionExpired
			return nil, false
		case !domain.VerifyToken(cookie.Token, e.session.TokenHash) || cookie.Company != e.session.Company:
			err = domain.ErrSessionInvalid
			return e, true
		}
		e.session.Touch(now, s.sessionTTL)
		out = e.session.Clone()
		return e, true
	})
	return out, err
}

// Delete implements service.SessionStore. The session's form tokens go
// with it.
func (s *Store) Delete(_ context.Context, sessionID string) error {
	if _, ok := s.sessions.Pop(sessionID); !ok {
		return domain.ErrSessionNotFound
	}
	return nil
}

// OpenForm implements service.SessionStore.
func (s *Store) OpenForm(_ context.Context, sessionID string) (domain.FormToken, error) {
	id, err := domain.GenerateFormID()
	if err != nil {
		return "", err
	}

	var expires int64
	if s.formTTL > 0 {
		expires = s.now().Add(s.formTTL).UnixMilli()
	}
	_, ok := s.sessions.Update(sessionID, func(e *entry, ok bool) (*entry, bool) {
		if !ok {
			return nil, false
		}
		e.forms[id] = expires
		return e, true
	})
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	return domain.FormToken(id), nil
}

// CheckForm implements service.SessionStore.
func (s *Store) CheckForm(_ context.Context, sessionID string, token domain.FormToken) (bool, error) {
	return s.form(sessionID, token, false), nil
}

// CloseForm implements service.SessionStore.
func (s *Store) CloseForm(_ context.Context, sessionID string, token domain.FormToken) (bool, error) {
	return s.form(sessionID, token, true), nil
}

// form reports whether token is open for the session, dropping it when
// expired or when consume is set.
func (s *Store) form(sessionID string, token domain.FormToken, consume bool) bool {
	open := false
	now := s.now().UnixMilli()
	s.sessions.Update(sessionID, func(e *entry, ok bool) (*entry, bool) {
		if !ok {
			return nil, false
		}
		expires, found := e.forms[token.String()]
		switch {
		case !found:
		case expires != 0 && now > expires:
			delete(e.forms, token.String())
		default:
			open = true
			if consume {
				delete(e.forms, token.String())
			}
		}
		return e, true
	})
	return open
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	return s.sessions.Count()
}
