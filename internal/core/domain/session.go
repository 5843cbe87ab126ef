package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Session constraints.
const (
	MaxLoginLength   = 128
	MaxCompanyLength = 63 // PostgreSQL identifier length

	// SessionIDPrefix is the prefix for session IDs.
	SessionIDPrefix = "lgss-"

	// FormIDPrefix is the prefix for form token IDs issued by local stores.
	FormIDPrefix = "lgfm-"

	// DefaultCookieName is the default session cookie name.
	DefaultCookieName = "LedgerGate"
)

// SessionCookie is the decoded session cookie: session_id:token:company.
type SessionCookie struct {
	SessionID string
	Token     string
	Company   string
}

// ParseSessionCookie decodes a cookie value of the form
// session_id:token:company. The company is the trailing suffix and may
// itself contain colons; it may also be empty.
func ParseSessionCookie(value string) (SessionCookie, error) {
	parts := strings.SplitN(value, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return SessionCookie{}, ErrSessionCookieMalformed
	}

	c := SessionCookie{
		SessionID: parts[0],
		Token:     parts[1],
	}
	if len(parts) == 3 {
		c.Company = parts[2]
	}
	if len(c.Company) > MaxCompanyLength {
		return SessionCookie{}, ErrSessionCookieMalformed.WithDetails("company exceeds 63 characters")
	}
	return c, nil
}

// String encodes the cookie value.
func (c SessionCookie) String() string {
	return c.SessionID + ":" + c.Token + ":" + c.Company
}

// IsZero reports whether no cookie was present.
func (c SessionCookie) IsZero() bool {
	return c.SessionID == "" && c.Token == ""
}

// Session is the server-side record a cookie is checked against.
type Session struct {
	ID        string `json:"id"`
	TokenHash string `json:"token_hash"`
	Login     string `json:"login"`
	Company   string `json:"company"`

	// CreatedAt and ExpiresAt are Unix milliseconds; ExpiresAt 0 never expires.
	CreatedAt int64 `json:"created_at"`
	ExpiresAt int64 `json:"expires_at"`
}

// NewSession creates a Session with a generated ID.
func NewSession(login, company string, ttl time.Duration) (*Session, error) {
	id, err := GenerateSessionID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	s := &Session{
		ID:        id,
		Login:     login,
		Company:   company,
		CreatedAt: now.UnixMilli(),
	}
	if ttl > 0 {
		s.ExpiresAt = now.Add(ttl).UnixMilli()
	}
	return s, nil
}

// Validate validates the session fields against constraints.
func (s *Session) Validate() error {
	var violations []string
	if s.Login == "" {
		violations = append(violations, "login is required")
	}
	if len(s.Login) > MaxLoginLength {
		violations = append(violations, "login exceeds 128 characters")
	}
	if len(s.Company) > MaxCompanyLength {
		violations = append(violations, "company exceeds 63 characters")
	}
	if strings.Contains(s.Login, ":") {
		violations = append(violations, "login must not contain ':'")
	}
	if len(violations) > 0 {
		return ErrInvalidArgument.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// IsExpiredAt reports whether the session has expired at now.
func (s *Session) IsExpiredAt(now time.Time) bool {
	if s.ExpiresAt == 0 {
		return false
	}
	return now.UnixMilli() > s.ExpiresAt
}

// Touch extends the expiry to now+ttl. A zero ttl leaves it unbounded.
func (s *Session) Touch(now time.Time, ttl time.Duration) {
	if ttl > 0 {
		s.ExpiresAt = now.Add(ttl).UnixMilli()
	}
}

// Clone returns a copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	return &c
}

// TTLDuration returns the remaining time-to-live, 0 if expired or unbounded.
func (s *Session) TTLDuration() time.Duration {
	if s.ExpiresAt == 0 {
		return 0
	}
	remaining := s.ExpiresAt - time.Now().UnixMilli()
	if remaining < 0 {
		return 0
	}
	return time.Duration(remaining) * time.Millisecond
}

// Cookie builds the cookie for this session with the plaintext token.
func (s *Session) Cookie(token string) SessionCookie {
	return SessionCookie{
		SessionID: s.ID,
		Token:     token,
		Company:   s.Company,
	}
}

// UserConfig holds per-user preferences loaded at request start.
type UserConfig struct {
	Login        string `json:"login"`
	Language     string `json:"language"`
	DateFormat   string `json:"dateformat"`
	NumberFormat string `json:"numberformat"`
	Timezone     string `json:"timezone"`
}

// GenerateSessionID generates a session ID: lgss-{ulid_lowercase}.
func GenerateSessionID() (string, error) {
	return generateID(SessionIDPrefix)
}

// GenerateFormID generates a form token ID: lgfm-{ulid_lowercase}.
func GenerateFormID() (string, error) {
	return generateID(FormIDPrefix)
}

func generateID(prefix string) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return prefix + strings.ToLower(id.String()), nil
}

// IsValidSessionID checks if a string is a well-formed local session ID.
func IsValidSessionID(id string) bool {
	return isValidID(SessionIDPrefix, id)
}

// IsValidFormID checks if a string is a well-formed local form ID.
func IsValidFormID(id string) bool {
	return isValidID(FormIDPrefix, id)
}

func isValidID(prefix, id string) bool {
	id = strings.ToLower(id)
	if !strings.HasPrefix(id, prefix) || len(id) != len(prefix)+26 {
		return false
	}
	_, err := ulid.Parse(strings.ToUpper(id[len(prefix):]))
	return err == nil
}
