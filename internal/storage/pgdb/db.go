package pgdb

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/infra/tlsroots"
)

// Handle is a database session owned by one request. pgx.Tx satisfies it.
type Handle interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Beginner opens handles.
type Beginner interface {
	Begin(ctx context.Context) (Handle, error)
}

// Config configures the connection pool.
type Config struct {
	DSN       string
	Schema    string
	MaxConns  int32
	TLSCAFile string

	// ConnectTimeout bounds the initial ping. Zero means 5s.
	ConnectTimeout time.Duration
}

// DB is the connection pool.
type DB struct {
	pool   *pgxpool.Pool
	schema string
}

// Open creates the pool and verifies connectivity.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, domain.ErrDatabaseUnavailable.WithDetails("parse dsn").WithCause(err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.TLSCAFile != "" {
		tlsCfg, err := tlsroots.DatabaseConfig(cfg.TLSCAFile, pcfg.ConnConfig.Host)
		if err != nil {
			return nil, domain.ErrDatabaseUnavailable.WithDetails("tls").WithCause(err)
		}
		pcfg.ConnConfig.TLSConfig = tlsCfg
		// Never fall back to plaintext once a CA is configured.
		pcfg.ConnConfig.Fallbacks = nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, domain.ErrDatabaseUnavailable.WithCause(err)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, domain.ErrDatabaseUnavailable.WithDetails(fmt.Sprintf("ping %s", pcfg.ConnConfig.Host)).WithCause(err)
	}

	schema := cfg.Schema
	if schema == "" {
		schema = domain.DefaultSchema
	}
	return &DB{pool: pool, schema: schema}, nil
}

// Begin starts a transaction on a pooled connection. Commit or Rollback
// returns the connection to the pool.
func (db *DB) Begin(ctx context.Context) (Handle, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrDatabaseUnavailable.WithCause(err)
	}
	return tx, nil
}

// Ping checks connectivity.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Schema returns the default procedure schema.
func (db *DB) Schema() string {
	return db.schema
}

// Stat returns pool statistics.
func (db *DB) Stat() *pgxpool.Stat {
	return db.pool.Stat()
}

// Close closes every pooled connection.
func (db *DB) Close() {
	db.pool.Close()
}

type handleKey struct{}

// WithHandle binds h to ctx so stores can join the request transaction.
func WithHandle(ctx context.Context, h Handle) context.Context {
	return context.WithValue(ctx, handleKey{}, h)
}

// HandleFrom returns the handle bound to ctx, or nil.
func HandleFrom(ctx context.Context) Handle {
	h, _ := ctx.Value(handleKey{}).(Handle)
	return h
}
