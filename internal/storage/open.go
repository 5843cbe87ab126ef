package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/ledgergate-go/internal/core/service"
	"github.com/yndnr/ledgergate-go/internal/storage/memory"
	"github.com/yndnr/ledgergate-go/internal/storage/pgdb"
)

// Store kinds accepted by Open.
const (
	KindPostgres = "pg"
	KindBadger   = "badger"
	KindMemory   = "memory"
	KindRedis    = "redis"
)

// OpenConfig selects and configures a session store.
type OpenConfig struct {
	Kind       string
	DataDir    string
	Schema     string
	SessionTTL time.Duration
	FormTTL    time.Duration

	// EncryptionSecret encrypts the badger store when set.
	EncryptionSecret string

	// RedisURL is required for KindRedis.
	RedisURL string

	// DB is required for KindPostgres.
	DB pgdb.Beginner

	// Registerer receives store metrics when the store has any.
	Registerer prometheus.Registerer
	Logger     *slog.Logger
}

// Open creates the configured store. The returned close function releases
// it and is never nil.
func Open(cfg OpenConfig) (service.SessionStore, func() error, error) {
	noop := func() error { return nil }
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	switch cfg.Kind {
	case KindPostgres, "":
		if cfg.DB == nil {
			return nil, noop, fmt.Errorf("storage: %s store needs a database", KindPostgres)
		}
		log.Info("using postgres session store", "schema", cfg.Schema)
		return NewPgStore(cfg.DB, cfg.Schema, cfg.SessionTTL), noop, nil

	case KindBadger:
		bcfg := DefaultBadgerConfig(cfg.DataDir)
		if cfg.SessionTTL > 0 {
			bcfg.SessionTTL = cfg.SessionTTL
		}
		if cfg.FormTTL > 0 {
			bcfg.FormTTL = cfg.FormTTL
		}
		if cfg.EncryptionSecret != "" {
			key, err := DeriveEncryptionKey(cfg.EncryptionSecret)
			if err != nil {
				return nil, noop, err
			}
			bcfg.EncryptionKey = key
		}
		s, err := OpenBadger(bcfg, log)
		if err != nil {
			return nil, noop, err
		}
		if cfg.Registerer != nil {
			if err := s.RegisterMetrics(cfg.Registerer); err != nil {
				s.Close()
				return nil, noop, fmt.Errorf("storage: register badger metrics: %w", err)
			}
		}
		return s, s.Close, nil

	case KindRedis:
		s, err := OpenRedis(context.Background(), RedisConfig{
			URL:        cfg.RedisURL,
			SessionTTL: cfg.SessionTTL,
			FormTTL:    cfg.FormTTL,
		}, log)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil

	case KindMemory:
		var opts []memory.Option
		if cfg.SessionTTL > 0 {
			opts = append(opts, memory.WithSessionTTL(cfg.SessionTTL))
		}
		if cfg.FormTTL > 0 {
			opts = append(opts, memory.WithFormTTL(cfg.FormTTL))
		}
		log.Warn("using in-memory session store; sessions are lost on restart")
		return memory.New(opts...), noop, nil
	}
	return nil, noop, fmt.Errorf("storage: unknown store kind %q", cfg.Kind)
}
