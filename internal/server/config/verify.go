package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
)

// Verify checks the configuration. Every problem is reported.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifyDatabase(&cfg.Database, cfg.Session.Store),
		verifySession(&cfg.Session),
		verifyLocale(&cfg.Locale),
		verifyLog(&cfg.Log),
	)
}

func verifyServer(s *ServerSection) error {
	var errs []error
	switch s.Mode {
	case ModeEmbedded:
		if _, _, err := net.SplitHostPort(s.HTTP.Addr); err != nil {
			errs = append(errs, fmt.Errorf("server.http.addr %q: %w", s.HTTP.Addr, err))
		}
	case ModeGateway:
	default:
		errs = append(errs, fmt.Errorf("server.mode must be %s or %s, got %q", ModeEmbedded, ModeGateway, s.Mode))
	}
	if (s.HTTP.TLSCertFile == "") != (s.HTTP.TLSKeyFile == "") {
		errs = append(errs, errors.New("server.http.tls_cert_file and tls_key_file must be set together"))
	}
	for _, f := range []string{s.HTTP.TLSCertFile, s.HTTP.TLSKeyFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			errs = append(errs, fmt.Errorf("server.http: %w", err))
		}
	}
	if s.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}
	if s.RateLimit > 0 && s.RateBurst < 1 {
		errs = append(errs, errors.New("server.rate_burst must be at least 1"))
	}
	return errors.Join(errs...)
}

func verifyDatabase(d *DatabaseSection, store string) error {
	var errs []error
	if d.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if !domain.IsIdentifier(d.Schema) {
		errs = append(errs, fmt.Errorf("database.schema %q is not a valid identifier", d.Schema))
	}
	if d.MaxConns < 1 {
		errs = append(errs, errors.New("database.max_conns must be at least 1"))
	}
	if d.TLSCAFile != "" {
		if _, err := os.Stat(d.TLSCAFile); err != nil {
			errs = append(errs, fmt.Errorf("database.tls_ca_file: %w", err))
		}
	}
	return errors.Join(errs...)
}

// minEncryptionKeyLength matches storage.MinSecretLength.
const minEncryptionKeyLength = 16

func verifySession(s *SessionSection) error {
	var errs []error
	if s.CookieName == "" || strings.ContainsAny(s.CookieName, " ;=,\t") {
		errs = append(errs, fmt.Errorf("session.cookie_name %q is not a valid cookie name", s.CookieName))
	}
	switch s.Store {
	case StorePostgres, StoreMemory:
	case StoreBadger:
		if s.DataDir == "" {
			errs = append(errs, errors.New("session.data_dir is required for the badger store"))
		} else if err := os.MkdirAll(s.DataDir, 0o750); err != nil {
			errs = append(errs, fmt.Errorf("session.data_dir: %w", err))
		}
	case StoreRedis:
		if s.RedisURL == "" {
			errs = append(errs, errors.New("session.redis_url is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("session.store must be %s, %s, %s or %s, got %q",
			StorePostgres, StoreBadger, StoreRedis, StoreMemory, s.Store))
	}
	if s.EncryptionKey != "" && len(s.EncryptionKey) < minEncryptionKeyLength {
		errs = append(errs, fmt.Errorf("session.encryption_key must be at least %d bytes", minEncryptionKeyLength))
	}
	if s.TTL < 0 || s.FormTTL < 0 {
		errs = append(errs, errors.New("session.ttl and session.form_ttl must not be negative"))
	}
	return errors.Join(errs...)
}

func verifyLocale(l *LocaleSection) error {
	if l.Default == "" {
		return errors.New("locale.default is required")
	}
	if len(l.Supported) == 0 {
		return nil
	}
	for _, s := range l.Supported {
		if s == l.Default {
			return nil
		}
	}
	return fmt.Errorf("locale.default %q is not in locale.supported", l.Default)
}

func verifyLog(l *LogSection) error {
	var errs []error
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", l.Level))
	}
	switch l.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not json or text", l.Format))
	}
	return errors.Join(errs...)
}
