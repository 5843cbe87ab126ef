package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/service"
)

var _ service.SessionStore = (*RedisStore)(nil)

// DefaultRedisKeyPrefix namespaces every key the store writes.
const DefaultRedisKeyPrefix = "ledgergate:"

const redisPingTimeout = 5 * time.Second

// openFormScript stores a form token only while its session exists, so a
// token cannot be added after a concurrent delete dropped the index.
// KEYS: session, form, form index. ARGV: form id, TTL in milliseconds.
var openFormScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
if tonumber(ARGV[2]) > 0 then
	redis.call("SET", KEYS[2], "1", "PX", ARGV[2])
	redis.call("SADD", KEYS[3], ARGV[1])
	redis.call("PEXPIRE", KEYS[3], ARGV[2])
else
	redis.call("SET", KEYS[2], "1")
	redis.call("SADD", KEYS[3], ARGV[1])
end
return 1
`)

// RedisConfig configures the Redis session store.
type RedisConfig struct {
	// URL is a redis:// or rediss:// URL.
	URL       string
	KeyPrefix string

	SessionTTL time.Duration
	FormTTL    time.Duration
}

// RedisStore is a SessionStore backed by Redis. Sessions are JSON values
// expiring with the session; each form token is its own key, indexed by a
// per-session set so a delete can drop them.
type RedisStore struct {
	client *redis.Client
	cfg    RedisConfig
	logger *slog.Logger
}

// OpenRedis connects and verifies the server answers.
func OpenRedis(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultRedisKeyPrefix
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, domain.ErrStorageError.WithDetails("parse redis url").WithCause(err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, domain.ErrStorageError.WithDetails(fmt.Sprintf("ping redis %s", opt.Addr)).WithCause(err)
	}

	logger.Info("redis session store opened",
		"addr", opt.Addr,
		"db", opt.DB,
		"session_ttl", cfg.SessionTTL,
		"form_ttl", cfg.FormTTL)
	return &RedisStore{client: client, cfg: cfg, logger: logger}, nil
}

func (s *RedisStore) sessionKey(id string) string {
	return s.cfg.KeyPrefix + "session:" + id
}

func (s *RedisStore) formKey(sessionID, formID string) string {
	return s.cfg.KeyPrefix + "form:" + sessionID + ":" + formID
}

func (s *RedisStore) formsKey(sessionID string) string {
	return s.cfg.KeyPrefix + "forms:" + sessionID
}

// Create implements service.SessionStore.
func (s *RedisStore) Create(ctx context.Context, login, company string) (*domain.Session, string, error) {
	session, err := domain.NewSession(login, company, s.cfg.SessionTTL)
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
	session.TokenHash = hash

	if err := s.putSession(ctx, session); err != nil {
		return nil, "", err
	}
	return session, plaintext, nil
}

func (s *RedisStore) putSession(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return domain.ErrStorageError.WithDetails("encode session").WithCause(err)
	}
	if err := s.client.Set(ctx, s.sessionKey(session.ID), data, s.cfg.SessionTTL).Err(); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

func (s *RedisStore) getSession(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, domain.ErrStorageError.WithDetails("decode session").WithCause(err)
	}
	return &session, nil
}

// Check implements service.SessionStore. A valid check slides the expiry
// of the value and of the Redis key, but never recreates a key deleted
// since it was read.
func (s *RedisStore) Check(ctx context.Context, cookie domain.SessionCookie) (*domain.Session, error) {
	session, err := s.getSession(ctx, cookie.SessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired() {
		return nil, domain.ErrSessionExpired
	}
	if !domain.VerifyToken(cookie.Token, session.TokenHash) || cookie.Company != session.Company {
		return nil, domain.ErrSessionInvalid
	}

	session.Touch(time.Now(), s.cfg.SessionTTL)
	data, err := json.Marshal(session)
	if err != nil {
		return nil, domain.ErrStorageError.WithDetails("encode session").WithCause(err)
	}
	ok, err := s.client.SetXX(ctx, s.sessionKey(session.ID), data, s.cfg.SessionTTL).Result()
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Delete implements service.SessionStore.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	n, err := s.client.Del(ctx, s.sessionKey(sessionID)).Result()
	if err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}

	forms, err := s.client.SMembers(ctx, s.formsKey(sessionID)).Result()
	if err != nil {
		return domain.ErrStorageError.WithDetails("list form tokens").WithCause(err)
	}
	keys := make([]string, 0, len(forms)+1)
	keys = append(keys, s.formsKey(sessionID))
	for _, id := range forms {
		keys = append(keys, s.formKey(sessionID, id))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return domain.ErrStorageError.WithDetails("delete form tokens").WithCause(err)
	}
	return nil
}

// OpenForm implements service.SessionStore.
func (s *RedisStore) OpenForm(ctx context.Context, sessionID string) (domain.FormToken, error) {
	id, err := domain.GenerateFormID()
	if err != nil {
		return "", err
	}
	keys := []string{s.sessionKey(sessionID), s.formKey(sessionID, id), s.formsKey(sessionID)}
	n, err := openFormScript.Run(ctx, s.client, keys, id, s.cfg.FormTTL.Milliseconds()).Int()
	if err != nil {
		return "", domain.ErrStorageError.WithDetails("open form").WithCause(err)
	}
	if n == 0 {
		return "", domain.ErrSessionNotFound
	}
	return domain.FormToken(id), nil
}

// CheckForm implements service.SessionStore.
func (s *RedisStore) CheckForm(ctx context.Context, sessionID string, token domain.FormToken) (bool, error) {
	n, err := s.client.Exists(ctx, s.formKey(sessionID, token.String())).Result()
	if err != nil {
		return false, domain.ErrStorageError.WithCause(err)
	}
	return n > 0, nil
}

// CloseForm implements service.SessionStore. DEL is atomic, so only one of
// two concurrent closes succeeds.
func (s *RedisStore) CloseForm(ctx context.Context, sessionID string, token domain.FormToken) (bool, error) {
	n, err := s.client.Del(ctx, s.formKey(sessionID, token.String())).Result()
	if err != nil {
		return false, domain.ErrStorageError.WithCause(err)
	}
	if n == 0 {
		return false, nil
	}
	if err := s.client.SRem(ctx, s.formsKey(sessionID), token.String()).Err(); err != nil {
		s.logger.Warn("removing form from index failed", "session_id", sessionID, "error", err)
	}
	return true, nil
}

// Ping reports whether Redis answers.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("redis: close: %w", err)
	}
	return nil
}
