package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/service"
	"github.com/yndnr/ledgergate-go/internal/infra/buildinfo"
	"github.com/yndnr/ledgergate-go/internal/infra/confloader"
	"github.com/yndnr/ledgergate-go/internal/infra/shutdown"
	"github.com/yndnr/ledgergate-go/internal/infra/tlsroots"
	"github.com/yndnr/ledgergate-go/internal/locale"
	"github.com/yndnr/ledgergate-go/internal/server/cgiserver"
	"github.com/yndnr/ledgergate-go/internal/server/config"
	"github.com/yndnr/ledgergate-go/internal/server/httpserver"
	"github.com/yndnr/ledgergate-go/internal/server/httpserver/handler"
	"github.com/yndnr/ledgergate-go/internal/storage"
	"github.com/yndnr/ledgergate-go/internal/storage/pgdb"
	"github.com/yndnr/ledgergate-go/internal/telemetry/logger"
	"github.com/yndnr/ledgergate-go/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", os.Getenv("LEDGERGATE_CONFIG"), "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("ledgergate-server " + buildinfo.String())
		return nil
	}

	cfg, _, err := config.Load(*configFile, nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Stdout carries the response in gateway mode, so logs go to stderr.
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	if cfg.Server.Mode == config.ModeGateway || cgiserver.IsGateway() {
		return runGateway(cfg, log.Slog())
	}
	return runEmbedded(cfg, *configFile, log.Slog())
}

// components holds what both modes share.
type components struct {
	db         *pgdb.DB
	handler    *handler.Handler
	closeStore func() error
}

func (c *components) close() error {
	err := c.closeStore()
	c.db.Close()
	return err
}

func build(ctx context.Context, cfg *config.ServerConfig, m *metric.Metrics, reg prometheus.Registerer, env map[string]string, log *slog.Logger) (*components, error) {
	db, err := pgdb.Open(ctx, pgdb.Config{
		DSN:            cfg.Database.DSN,
		Schema:         cfg.Database.Schema,
		MaxConns:       cfg.Database.MaxConns,
		TLSCAFile:      cfg.Database.TLSCAFile,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store, closeStore, err := storage.Open(storage.OpenConfig{
		Kind:       cfg.Session.Store,
		DataDir:    cfg.Session.DataDir,
		Schema:     cfg.Database.Schema,
		SessionTTL: cfg.Session.TTL,
		FormTTL:    cfg.Session.FormTTL,
		DB:         db,
		Registerer: reg,
		Logger:     log,

		RedisURL:         cfg.Session.RedisURL,
		EncryptionSecret: cfg.Session.EncryptionKey,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open session store: %w", err)
	}

	catalog, err := locale.NewCatalog(cfg.Locale.Default, cfg.Locale.Supported...)
	if err != nil {
		_ = closeStore()
		db.Close()
		return nil, fmt.Errorf("load locales: %w", err)
	}

	procs := service.NewProcedures(cfg.Database.Schema, m)
	h := handler.New(handler.Config{
		Initializer: service.NewInitializer(db, catalog, service.InitializerConfig{
			CookieName:     cfg.Session.CookieName,
			Schema:         cfg.Database.Schema,
			NoSessionCheck: cfg.Session.NoCheck,
		}),
		Gate:       service.NewGate(store, service.NewUserLoader(procs, catalog), m, service.GateConfig{NoCheck: cfg.Session.NoCheck}),
		Procedures: procs,
		Reporter:   service.NewReporter(m),
		Locales:    catalog,
		Env:        env,
		Logger:     log,
	})

	return &components{db: db, handler: h, closeStore: closeStore}, nil
}

func runGateway(cfg *config.ServerConfig, log *slog.Logger) error {
	c, err := build(context.Background(), cfg, nil, nil, cgiserver.Env(nil), log)
	if err != nil {
		return err
	}
	defer c.close()

	return cgiserver.New(c.handler, cgiserver.WithLogger(log)).Serve()
}

func runEmbedded(cfg *config.ServerConfig, configFile string, log *slog.Logger) error {
	info := buildinfo.Get()
	log.Info("starting ledgergate-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", configFile,
		"store", cfg.Session.Store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := metric.NewRegistry()
	m := metric.New(reg)

	c, err := build(ctx, cfg, m, reg, map[string]string{domain.EnvEmbedded: "1"}, log)
	if err != nil {
		return err
	}
	if err := reg.Register(metric.NewPoolCollector(c.db.Stat)); err != nil {
		log.Warn("registering pool metrics failed", "error", err)
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Handler:   c.handler,
		Health:    handler.NewHealth(c.db.Ping, log),
		Gatherer:  reg,
		Metrics:   m,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
		Audit:     true,
		Logger:    log,
	})

	opts := []httpserver.Option{httpserver.WithLogger(log)}
	if cfg.Server.HTTP.TLSEnabled() {
		kp, err := tlsroots.LoadKeyPair(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile, log)
		if err != nil {
			_ = c.close()
			return fmt.Errorf("load tls key pair: %w", err)
		}
		go func() {
			if err := kp.Watch(ctx); err != nil {
				log.Warn("certificate watch stopped", "error", err)
			}
		}()
		opts = append(opts, httpserver.WithKeyPair(kp))
	}
	srv := httpserver.New(cfg.Server.HTTP.Addr, router, opts...)

	if configFile != "" {
		watchConfig(ctx, configFile, log)
	}

	sh := shutdown.NewHandler(cfg.Server.ShutdownTimeout)
	sh.OnShutdown(func(context.Context) error {
		log.Info("closing session store and database")
		return c.close()
	})
	sh.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return srv.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.HTTP.Addr, "tls", srv.TLS())
		if err := srv.ListenAndServe(); err != nil {
			log.Error("HTTP server error", "error", err)
			sh.Trigger()
		}
	}()

	if err := sh.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

// watchConfig applies log level changes from the configuration file
// without a restart. Other settings need one.
func watchConfig(ctx context.Context, path string, log *slog.Logger) {
	w, err := confloader.NewWatcher(path, confloader.WithWatcherLogger(log))
	if err != nil {
		log.Warn("configuration watch disabled", "path", path, "error", err)
		return
	}
	w.OnChange(func(string) {
		cfg, _, err := config.Load(path, nil)
		if err != nil {
			log.Warn("configuration reload rejected", "error", err)
			return
		}
		logger.SetLevel(cfg.Log.Level)
		log.Info("configuration reloaded", "log_level", cfg.Log.Level)
	})
	go func() {
		if err := w.Run(ctx); err != nil {
			log.Warn("configuration watch stopped", "error", err)
		}
	}()
}
