package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/service"
)

var _ service.SessionStore = (*BadgerStore)(nil)

const (
	sessionKeyPrefix = "session/"
	formKeyPrefix    = "form/"

	maxConflictRetries = 16
)

// BadgerConfig configures the Badger session store.
type BadgerConfig struct {
	// Dir is the data directory. Empty with InMemory set keeps everything
	// in memory.
	Dir      string
	InMemory bool

	SessionTTL time.Duration
	FormTTL    time.Duration

	GCInterval  time.Duration
	GCThreshold float64
	SyncWrites  bool

	// EncryptionKey enables encryption at rest. It must be 16, 24 or 32
	// bytes; see DeriveEncryptionKey.
	EncryptionKey []byte
}

// DefaultBadgerConfig returns defaults for dir.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:         dir,
		SessionTTL:  90 * time.Minute,
		FormTTL:     8 * time.Hour,
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
	}
}

// BadgerStore is a SessionStore backed by Badger v3.
type BadgerStore struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	lsmSize   prometheus.Gauge
	vlogSize  prometheus.Gauge
	lastGCRun prometheus.Gauge

	stopCh chan struct{}
	doneCh chan struct{}
}

// OpenBadger opens the store and starts value-log GC.
func OpenBadger(cfg BadgerConfig, logger *slog.Logger) (*BadgerStore, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = 10 * time.Minute
	}
	if cfg.GCThreshold <= 0 || cfg.GCThreshold >= 1 {
		cfg.GCThreshold = 0.5
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithDetectConflicts(true).
		WithLogger(&badgerLogger{logger: logger})
	if cfg.InMemory {
		opts.Dir, opts.ValueDir = "", ""
	}
	if len(cfg.EncryptionKey) > 0 {
		opts = opts.
			WithEncryptionKey(cfg.EncryptionKey).
			WithIndexCacheSize(64 << 20)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, domain.ErrStorageError.WithDetails("open badger").WithCause(err)
	}

	s := &BadgerStore{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go s.gcLoop()

	logger.Info("badger session store opened",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"session_ttl", cfg.SessionTTL,
		"form_ttl", cfg.FormTTL,
		"encrypted", len(cfg.EncryptionKey) > 0)
	return s, nil
}

func sessionKey(id string) []byte {
	return []byte(sessionKeyPrefix + id)
}

func formKey(sessionID string, formID string) []byte {
	return []byte(formKeyPrefix + sessionID + "/" + formID)
}

func formPrefix(sessionID string) []byte {
	return []byte(formKeyPrefix + sessionID + "/")
}

// Create implements service.SessionStore.
func (s *BadgerStore) Create(_ context.Context, login, company string) (*domain.Session, string, error) {
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

	err = s.db.Update(func(txn *badger.Txn) error {
		return s.putSession(txn, session)
	})
	if err != nil {
		return nil, "", domain.ErrStorageError.WithCause(err)
	}
	return session, plaintext, nil
}

func (s *BadgerStore) putSession(txn *badger.Txn, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	e := badger.NewEntry(sessionKey(session.ID), data)
	if s.cfg.SessionTTL > 0 {
		e = e.WithTTL(s.cfg.SessionTTL)
	}
	return txn.SetEntry(e)
}

func getSession(txn *badger.Txn, id string) (*domain.Session, error) {
	item, err := txn.Get(sessionKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}

	var session domain.Session
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &session)
	})
	if err != nil {
		return nil, domain.ErrStorageError.WithDetails("decode session").WithCause(err)
	}
	return &session, nil
}

// Check implements service.SessionStore.
func (s *BadgerStore) Check(_ context.Context, cookie domain.SessionCookie) (*domain.Session, error) {
	var out *domain.Session
	err := s.db.Update(func(txn *badger.Txn) error {
		session, err := getSession(txn, cookie.SessionID)
		if err != nil {
			return err
		}
		if session.IsExpired() {
			return domain.ErrSessionExpired
		}
		if !domain.VerifyToken(cookie.Token, session.TokenHash) || cookie.Company != session.Company {
			return domain.ErrSessionInvalid
		}

		session.Touch(time.Now(), s.cfg.SessionTTL)
		out = session
		return s.putSession(txn, session)
	})
	if errors.Is(err, badger.ErrConflict) {
		// A concurrent check or delete committed first.
		return s.view(cookie)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) view(cookie domain.SessionCookie) (*domain.Session, error) {
	var out *domain.Session
	err := s.db.View(func(txn *badger.Txn) error {
		session, err := getSession(txn, cookie.SessionID)
		if err != nil {
			return err
		}
		if session.IsExpired() {
			return domain.ErrSessionExpired
		}
		if !domain.VerifyToken(cookie.Token, session.TokenHash) || cookie.Company != session.Company {
			return domain.ErrSessionInvalid
		}
		out = session
		return nil
	})
	return out, err
}

// update runs fn in a read-write transaction, retrying while another
// transaction commits a key fn read.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		if err = s.db.Update(fn); !errors.Is(err, badger.ErrConflict) {
			return err
		}
		time.Sleep(time.Duration(attempt) * time.Millisecond)
	}
	return domain.ErrStorageError.WithDetails("transaction conflict").WithCause(err)
}

// Delete implements service.SessionStore.
func (s *BadgerStore) Delete(_ context.Context, sessionID string) error {
	return s.update(func(txn *badger.Txn) error {
		if _, err := getSession(txn, sessionID); err != nil {
			return err
		}
		if err := txn.Delete(sessionKey(sessionID)); err != nil {
			return domain.ErrStorageError.WithCause(err)
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = formPrefix(sessionID)
		it := txn.NewIterator(opts)
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return domain.ErrStorageError.WithCause(err)
			}
		}
		return nil
	})
}

// OpenForm implements service.SessionStore.
func (s *BadgerStore) OpenForm(_ context.Context, sessionID string) (domain.FormToken, error) {
	id, err := domain.GenerateFormID()
	if err != nil {
		return "", err
	}

	err = s.update(func(txn *badger.Txn) error {
		if _, err := getSession(txn, sessionID); err != nil {
			return err
		}
		e := badger.NewEntry(formKey(sessionID, id), nil)
		if s.cfg.FormTTL > 0 {
			e = e.WithTTL(s.cfg.FormTTL)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return "", err
	}
	return domain.FormToken(id), nil
}

// CheckForm implements service.SessionStore.
func (s *BadgerStore) CheckForm(_ context.Context, sessionID string, token domain.FormToken) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(formKey(sessionID, token.String()))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, domain.ErrStorageError.WithCause(err)
	}
	return found, nil
}

// CloseForm implements service.SessionStore.
func (s *BadgerStore) CloseForm(_ context.Context, sessionID string, token domain.FormToken) (bool, error) {
	key := formKey(sessionID, token.String())
	closed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		closed = true
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		// Lost the race to a concurrent close.
		return false, nil
	}
	if err != nil {
		return false, domain.ErrStorageError.WithCause(err)
	}
	return closed, nil
}

// GC runs value-log garbage collection until nothing is rewritten.
func (s *BadgerStore) GC() (int, error) {
	runs := 0
	for {
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			break
		}
		if err != nil {
			return runs, fmt.Errorf("badger gc: %w", err)
		}
		runs++
	}
	if s.lastGCRun != nil {
		s.lastGCRun.SetToCurrentTime()
	}
	return runs, nil
}

// Size returns the LSM and value-log sizes in bytes.
func (s *BadgerStore) Size() (lsm, vlog int64) {
	return s.db.Size()
}

// RegisterMetrics registers storage size gauges with reg.
func (s *BadgerStore) RegisterMetrics(reg prometheus.Registerer) error {
	s.lsmSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ledgergate",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes.",
	})
	s.vlogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ledgergate",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes.",
	})
	s.lastGCRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ledgergate",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix time of the last value-log GC.",
	})

	for _, c := range []prometheus.Collector{s.lsmSize, s.vlogSize, s.lastGCRun} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	s.updateSizeMetrics()
	return nil
}

func (s *BadgerStore) updateSizeMetrics() {
	if s.lsmSize == nil {
		return
	}
	lsm, vlog := s.db.Size()
	s.lsmSize.Set(float64(lsm))
	s.vlogSize.Set(float64(vlog))
}

func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.GC(); err != nil {
				s.logger.Error("badger gc failed", "error", err)
			}
			s.updateSizeMetrics()
		case <-s.stopCh:
			return
		}
	}
}

// Close stops GC and closes the database.
func (s *BadgerStore) Close() error {
	close(s.stopCh)
	<-s.doneCh

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("badger: close: %w", err)
	}
	s.logger.Info("badger session store closed")
	return nil
}

// badgerLogger adapts slog to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
