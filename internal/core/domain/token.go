package domain

import (
	"encoding/base64"
	"strings"

	"github.com/yndnr/ledgergate-go/pkg/token"
)

// Token constants.
const (
	// TokenPrefix is the prefix for session tokens.
	TokenPrefix = "lgtk_"

	// TokenHashPrefix is the prefix for stored token hashes.
	TokenHashPrefix = "lgth_"

	// TokenBodyLength is the Base64 RawURL encoded length (32 bytes -> 43 chars).
	TokenBodyLength = 43

	// TokenLength is the total token length (prefix + body).
	TokenLength = 5 + TokenBodyLength
)

// FormToken is an anti-replay identifier issued per rendered form.
type FormToken string

// String implements fmt.Stringer.
func (f FormToken) String() string {
	return string(f)
}

// IsZero reports whether the token is empty.
func (f FormToken) IsZero() bool {
	return f == ""
}

// GenerateToken generates a session token and its hash.
//
// The plaintext goes into the cookie only; stores keep the hash.
func GenerateToken() (plaintext string, hash string, err error) {
	body, err := token.Generate()
	if err != nil {
		return "", "", ErrInternalServer.WithCause(err)
	}
	plaintext = TokenPrefix + body
	return plaintext, HashToken(plaintext), nil
}

// HashToken computes lgth_{hex_sha256} of a token.
func HashToken(plaintext string) string {
	return TokenHashPrefix + token.Hash(plaintext)
}

// VerifyToken compares a plaintext token against a stored hash in
// constant time.
func VerifyToken(plaintext, hash string) bool {
	if !strings.HasPrefix(hash, TokenHashPrefix) {
		return false
	}
	return token.Verify(plaintext, hash[len(TokenHashPrefix):])
}

// ValidateTokenFormat checks if a string has valid session token format.
func ValidateTokenFormat(tok string) bool {
	if len(tok) != TokenLength || !strings.HasPrefix(tok, TokenPrefix) {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(tok[len(TokenPrefix):])
	return err == nil
}

// MaskToken masks a token for safe logging: lgtk_ABC...xyz
func MaskToken(tok string) string {
	if !strings.HasPrefix(tok, TokenPrefix) || len(tok) < 12 {
		return "***REDACTED***"
	}
	body := tok[len(TokenPrefix):]
	return TokenPrefix + body[:3] + "..." + body[len(body)-3:]
}
