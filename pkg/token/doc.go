// Package token provides random token generation and hashing utilities.
//
// Tokens are Base64 RawURL encoded output of crypto/rand. Hashes are
// hex-encoded SHA-256 and are compared in constant time. Callers add their
// own prefixes (session tokens, request IDs).
package token
