package command

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/service"
	"github.com/yndnr/ledgergate-go/internal/locale"
	"github.com/yndnr/ledgergate-go/internal/server/config"
	"github.com/yndnr/ledgergate-go/internal/storage"
	"github.com/yndnr/ledgergate-go/internal/storage/pgdb"
	"github.com/yndnr/ledgergate-go/internal/telemetry/logger"
)

// Runtime opens the configuration, database and session store on first
// use, so commands that need none of them never touch the database.
type Runtime struct {
	flags  *GlobalFlags
	stderr io.Writer

	cfg     *config.ServerConfig
	log     *slog.Logger
	db      pgdb.Beginner
	store   service.SessionStore
	locales locale.Provider
	closers []func() error
}

// NewRuntime creates a runtime for the given flags. Logs go to stderr.
func NewRuntime(flags *GlobalFlags, stderr io.Writer) *Runtime {
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Runtime{flags: flags, stderr: stderr}
}

// Config loads and verifies the configuration.
func (rt *Runtime) Config() (*config.ServerConfig, error) {
	if rt.cfg != nil {
		return rt.cfg, nil
	}
	cfg, _, err := config.Load(rt.flags.ConfigFile, rt.flags.Overrides())
	if err != nil {
		return nil, err
	}
	rt.cfg = cfg
	return cfg, nil
}

// Logger returns the CLI logger. It logs warnings and above unless the
// configuration asks for more.
func (rt *Runtime) Logger() *slog.Logger {
	if rt.log != nil {
		return rt.log
	}
	level := "warn"
	if rt.flags != nil && rt.flags.Verbose {
		level = "debug"
	}
	l, err := logger.New(logger.Config{Level: level, Format: "text", Output: rt.stderr})
	if err != nil {
		rt.log = slog.Default()
		return rt.log
	}
	logger.SetDefault(l)
	rt.log = l.Slog()
	return rt.log
}

// Database opens the connection pool.
func (rt *Runtime) Database(ctx context.Context) (pgdb.Beginner, error) {
	if rt.db != nil {
		return rt.db, nil
	}
	cfg, err := rt.Config()
	if err != nil {
		return nil, err
	}
	db, err := pgdb.Open(ctx, pgdb.Config{
		DSN:            cfg.Database.DSN,
		Schema:         cfg.Database.Schema,
		MaxConns:       2,
		TLSCAFile:      cfg.Database.TLSCAFile,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	})
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, func() error {
		db.Close()
		return nil
	})
	rt.db = db
	return db, nil
}

// Store opens the configured session store.
func (rt *Runtime) Store(ctx context.Context) (service.SessionStore, error) {
	if rt.store != nil {
		return rt.store, nil
	}
	cfg, err := rt.Config()
	if err != nil {
		return nil, err
	}
	open := storage.OpenConfig{
		Kind:       cfg.Session.Store,
		DataDir:    cfg.Session.DataDir,
		Schema:     cfg.Database.Schema,
		SessionTTL: cfg.Session.TTL,
		FormTTL:    cfg.Session.FormTTL,
		Logger:     rt.Logger(),

		RedisURL:         cfg.Session.RedisURL,
		EncryptionSecret: cfg.Session.EncryptionKey,
	}
	if open.Kind == storage.KindPostgres {
		if open.DB, err = rt.Database(ctx); err != nil {
			return nil, err
		}
	}
	store, closeFn, err := storage.Open(open)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, closeFn)
	rt.store = store
	return store, nil
}

// Locales builds the message catalog. Without a loadable configuration
// every built-in language is available with English as the default.
func (rt *Runtime) Locales() (locale.Provider, error) {
	if rt.locales != nil {
		return rt.locales, nil
	}
	def, supported := "en", []string(nil)
	if rt.cfg != nil {
		def, supported = rt.cfg.Locale.Default, rt.cfg.Locale.Supported
	}
	c, err := locale.NewCatalog(def, supported...)
	if err != nil {
		return nil, err
	}
	rt.locales = c
	return c, nil
}

// Initializer builds command-line requests. db may be nil for requests
// that need no database.
func (rt *Runtime) Initializer(db pgdb.Beginner) (*service.Initializer, error) {
	locales, err := rt.Locales()
	if err != nil {
		return nil, err
	}
	icfg := service.InitializerConfig{Schema: domain.DefaultSchema}
	if rt.cfg != nil {
		icfg.Schema = rt.cfg.Database.Schema
		icfg.CookieName = rt.cfg.Session.CookieName
	}
	return service.NewInitializer(db, locales, icfg), nil
}

// Env is the environment a command-line request sees.
func (rt *Runtime) Env() map[string]string {
	env := map[string]string{}
	if rt.flags != nil && rt.flags.Lang != "" {
		env[domain.EnvLang] = rt.flags.Lang
	}
	return env
}

// Close releases everything opened, most recent first.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	rt.closers = nil
	return errors.Join(errs...)
}
