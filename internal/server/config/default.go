package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:5762"
	DefaultMode            = ModeEmbedded
	DefaultRateBurst       = 20
	DefaultShutdownTimeout = 30 * time.Second

	DefaultSchema         = "public"
	DefaultMaxConns       = 10
	DefaultConnectTimeout = 5 * time.Second

	DefaultCookieName = "LedgerGate"
	DefaultStore      = StorePostgres
	DefaultDataDir    = "/var/lib/ledgergate/sessions"
	DefaultSessionTTL = 90 * time.Minute
	DefaultFormTTL    = 8 * time.Hour

	DefaultLocale = "en"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP:            HTTPConfig{Addr: DefaultHTTPAddr},
			Mode:            DefaultMode,
			RateBurst:       DefaultRateBurst,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Database: DatabaseSection{
			Schema:         DefaultSchema,
			MaxConns:       DefaultMaxConns,
			ConnectTimeout: DefaultConnectTimeout,
		},
		Session: SessionSection{
			CookieName: DefaultCookieName,
			Store:      DefaultStore,
			DataDir:    DefaultDataDir,
			TTL:        DefaultSessionTTL,
			FormTTL:    DefaultFormTTL,
		},
		Locale: LocaleSection{
			Default: DefaultLocale,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
