package config

import (
	"net/url"
	"regexp"
	"strings"
)

// keyword/value DSNs: password=secret or password='sec ret'
var dsnPasswordRe = regexp.MustCompile(`(?i)(password\s*=\s*)('(?:[^'\\]|\\.)*'|\S+)`)

// Sanitize returns a copy of cfg with secrets masked, for logging and
// `config show`.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg
	sanitized.Locale.Supported = append([]string(nil), cfg.Locale.Supported...)
	sanitized.Database.DSN = MaskDSN(cfg.Database.DSN)
	sanitized.Session.RedisURL = MaskDSN(cfg.Session.RedisURL)
	if cfg.Session.EncryptionKey != "" {
		sanitized.Session.EncryptionKey = maskSecret(cfg.Session.EncryptionKey)
	}
	return &sanitized
}

// MaskDSN masks the password of a postgres or redis URL or of a
// keyword/value connection string.
func MaskDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	if isURL(dsn) {
		u, err := url.Parse(dsn)
		if err != nil {
			return maskSecret(dsn)
		}
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "****")
		}
		q := u.Query()
		if q.Has("password") {
			q.Set("password", "****")
			u.RawQuery = q.Encode()
		}
		return u.String()
	}
	return dsnPasswordRe.ReplaceAllString(dsn, "${1}****")
}

func isURL(dsn string) bool {
	for _, scheme := range []string{"postgres://", "postgresql://", "redis://", "rediss://"} {
		if strings.HasPrefix(dsn, scheme) {
			return true
		}
	}
	return false
}

// maskSecret masks all but the ends of a secret.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
