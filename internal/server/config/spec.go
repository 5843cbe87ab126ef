package config

import "time"

// ServerConfig is the root configuration.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server" json:"server" yaml:"server"`
	Database DatabaseSection `koanf:"database" json:"database" yaml:"database"`
	Session  SessionSection  `koanf:"session" json:"session" yaml:"session"`
	Locale   LocaleSection   `koanf:"locale" json:"locale" yaml:"locale"`
	Log      LogSection      `koanf:"log" json:"log" yaml:"log"`
}

// Server modes.
const (
	ModeEmbedded = "embedded"
	ModeGateway  = "gateway"
)

// ServerSection configures the HTTP surface.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http" json:"http" yaml:"http"`

	// Mode is embedded (long-running HTTP server) or gateway (one CGI
	// request per process).
	Mode string `koanf:"mode" json:"mode" yaml:"mode"`

	// RateLimit is requests per second per client address; 0 disables.
	RateLimit float64 `koanf:"rate_limit" json:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `koanf:"rate_burst" json:"rate_burst" yaml:"rate_burst"`

	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// HTTPConfig configures the listener.
type HTTPConfig struct {
	Addr        string `koanf:"addr" json:"addr" yaml:"addr"`
	TLSCertFile string `koanf:"tls_cert_file" json:"tls_cert_file,omitempty" yaml:"tls_cert_file,omitempty"`
	TLSKeyFile  string `koanf:"tls_key_file" json:"tls_key_file,omitempty" yaml:"tls_key_file,omitempty"`
}

// TLSEnabled reports whether both certificate and key are configured.
func (h HTTPConfig) TLSEnabled() bool {
	return h.TLSCertFile != "" && h.TLSKeyFile != ""
}

// DatabaseSection configures the PostgreSQL connection.
type DatabaseSection struct {
	DSN            string        `koanf:"dsn" json:"dsn" yaml:"dsn"`
	Schema         string        `koanf:"schema" json:"schema" yaml:"schema"`
	MaxConns       int32         `koanf:"max_conns" json:"max_conns" yaml:"max_conns"`
	TLSCAFile      string        `koanf:"tls_ca_file" json:"tls_ca_file,omitempty" yaml:"tls_ca_file,omitempty"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" json:"connect_timeout" yaml:"connect_timeout"`
}

// Session stores.
const (
	StorePostgres = "pg"
	StoreBadger   = "badger"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
)

// SessionSection configures session and form token handling.
type SessionSection struct {
	CookieName string        `koanf:"cookie_name" json:"cookie_name" yaml:"cookie_name"`
	Store      string        `koanf:"store" json:"store" yaml:"store"`
	DataDir    string        `koanf:"data_dir" json:"data_dir" yaml:"data_dir"`
	TTL        time.Duration `koanf:"ttl" json:"ttl" yaml:"ttl"`
	FormTTL    time.Duration `koanf:"form_ttl" json:"form_ttl" yaml:"form_ttl"`
	NoCheck    bool          `koanf:"no_check" json:"no_check" yaml:"no_check"`

	// RedisURL locates the redis store, e.g. redis://:password@cache:6379/0.
	RedisURL string `koanf:"redis_url" json:"redis_url,omitempty" yaml:"redis_url,omitempty"`

	// EncryptionKey is the secret the badger store is encrypted with.
	EncryptionKey string `koanf:"encryption_key" json:"encryption_key,omitempty" yaml:"encryption_key,omitempty"`
}

// LocaleSection configures message languages.
type LocaleSection struct {
	Default   string   `koanf:"default" json:"default" yaml:"default"`
	Supported []string `koanf:"supported" json:"supported" yaml:"supported"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Format string `koanf:"format" json:"format" yaml:"format"`
}
