package storage

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MinSecretLength is the shortest accepted encryption secret.
const MinSecretLength = 16

const encryptionInfo = "ledgergate badger session store"

// DeriveEncryptionKey derives the 32-byte AES key Badger encrypts its
// tables and value log with. The same secret always yields the same key,
// so a store can be reopened with its configured secret.
func DeriveEncryptionKey(secret string) ([]byte, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("storage: encryption secret must be at least %d bytes", MinSecretLength)
	}
	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte(encryptionInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("storage: derive encryption key: %w", err)
	}
	return key, nil
}
