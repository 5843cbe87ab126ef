package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/service"
	"github.com/yndnr/ledgergate-go/internal/storage/pgdb"
)

var _ service.SessionStore = (*PgStore)(nil)

// PgStore is a SessionStore backed by stored procedures:
//
//	session_create(login, company, token_hash, ttl_seconds) -> id, login, company, created_at, expires_at
//	session_check(id, token_hash, company, ttl_seconds)     -> id, login, company, created_at, expires_at
//	session_delete(id)                                      -> bool
//	form_open(session_id)                                   -> int
//	form_check(session_id, form_id)                         -> bool
//	form_close(session_id, form_id)                         -> bool
//
// A handle bound to the context with pgdb.WithHandle is used as-is;
// otherwise each call runs in its own transaction.
type PgStore struct {
	db         pgdb.Beginner
	schema     string
	sessionTTL time.Duration
}

// NewPgStore creates a store calling procedures in schema.
func NewPgStore(db pgdb.Beginner, schema string, sessionTTL time.Duration) *PgStore {
	if schema == "" {
		schema = domain.DefaultSchema
	}
	return &PgStore{db: db, schema: schema, sessionTTL: sessionTTL}
}

func (s *PgStore) call(ctx context.Context, name string, args ...any) ([]domain.Row, error) {
	call := domain.ProcedureCall{Schema: s.schema, Name: name, Args: domain.Args(args...)}

	if h := pgdb.HandleFrom(ctx); h != nil {
		return pgdb.Invoke(ctx, h, s.schema, call)
	}

	h, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := pgdb.Invoke(ctx, h, s.schema, call)
	if err != nil {
		_ = h.Rollback(ctx)
		return nil, err
	}
	if err := h.Commit(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *PgStore) ttlSeconds() int64 {
	return int64(s.sessionTTL / time.Second)
}

// Create implements service.SessionStore.
func (s *PgStore) Create(ctx context.Context, login, company string) (*domain.Session, string, error) {
	probe := domain.Session{Login: login, Company: company}
	if err := probe.Validate(); err != nil {
		return nil, "", err
	}
	plaintext, hash, err := domain.GenerateToken()
	if err != nil {
		return nil, "", err
	}

	rows, err := s.call(ctx, "session_create", login, company, hash, s.ttlSeconds())
	if err != nil {
		return nil, "", storageError("session_create", err)
	}
	if len(rows) == 0 {
		return nil, "", domain.ErrStorageError.WithDetails("session_create returned no row")
	}
	session := sessionFromRow(rows[0])
	session.TokenHash = hash
	return session, plaintext, nil
}

// Check implements service.SessionStore. The procedure compares hashes, so
// a mismatch and an unknown session are indistinguishable and both report
// ErrSessionInvalid.
func (s *PgStore) Check(ctx context.Context, cookie domain.SessionCookie) (*domain.Session, error) {
	rows, err := s.call(ctx, "session_check", cookie.SessionID, domain.HashToken(cookie.Token), cookie.Company, s.ttlSeconds())
	if err != nil {
		return nil, storageError("session_check", err)
	}
	if len(rows) == 0 || rows[0]["id"] == nil {
		return nil, domain.ErrSessionInvalid
	}

	session := sessionFromRow(rows[0])
	if session.IsExpired() {
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}

// Delete implements service.SessionStore.
func (s *PgStore) Delete(ctx context.Context, sessionID string) error {
	rows, err := s.call(ctx, "session_delete", sessionID)
	if err != nil {
		return storageError("session_delete", err)
	}
	if !firstBool(rows, "session_delete") {
		return domain.ErrSessionNotFound
	}
	return nil
}

// OpenForm implements service.SessionStore.
func (s *PgStore) OpenForm(ctx context.Context, sessionID string) (domain.FormToken, error) {
	rows, err := s.call(ctx, "form_open", sessionID)
	if err != nil {
		return "", storageError("form_open", err)
	}
	if len(rows) == 0 || rows[0]["form_open"] == nil {
		return "", domain.ErrSessionNotFound
	}
	return domain.FormToken(fmt.Sprint(rows[0]["form_open"])), nil
}

// CheckForm implements service.SessionStore.
func (s *PgStore) CheckForm(ctx context.Context, sessionID string, token domain.FormToken) (bool, error) {
	return s.formCall(ctx, "form_check", sessionID, token)
}

// CloseForm implements service.SessionStore.
func (s *PgStore) CloseForm(ctx context.Context, sessionID string, token domain.FormToken) (bool, error) {
	return s.formCall(ctx, "form_close", sessionID, token)
}

func (s *PgStore) formCall(ctx context.Context, proc, sessionID string, token domain.FormToken) (bool, error) {
	id, err := strconv.ParseInt(token.String(), 10, 64)
	if err != nil {
		return false, nil
	}
	rows, err := s.call(ctx, proc, sessionID, id)
	if err != nil {
		return false, storageError(proc, err)
	}
	return firstBool(rows, proc), nil
}

// storageError keeps database errors intact so the error reporter can map
// their SQLSTATE; domain errors pass through.
func storageError(proc string, err error) error {
	if _, _, ok := pgdb.SQLState(err); ok {
		return err
	}
	if domain.IsDomainError(err, "") {
		return err
	}
	return domain.ErrStorageError.WithDetails(proc).WithCause(err)
}

func sessionFromRow(row domain.Row) *domain.Session {
	s := &domain.Session{
		ID:      fmt.Sprint(row["id"]),
		Login:   stringValue(row["login"]),
		Company: stringValue(row["company"]),
	}
	if t, ok := row["created_at"].(time.Time); ok {
		s.CreatedAt = t.UnixMilli()
	}
	if t, ok := row["expires_at"].(time.Time); ok {
		s.ExpiresAt = t.UnixMilli()
	}
	return s
}

func stringValue(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func firstBool(rows []domain.Row, column string) bool {
	if len(rows) == 0 {
		return false
	}
	b, _ := rows[0][column].(bool)
	return b
}
