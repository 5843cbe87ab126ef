package tlsroots

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// KeyPair holds the server certificate and reloads it from disk.
type KeyPair struct {
	certFile string
	keyFile  string
	logger   *slog.Logger
	debounce time.Duration

	mu         sync.RWMutex
	cert       *tls.Certificate
	lastReload time.Time
}

// LoadKeyPair loads the certificate and key once.
func LoadKeyPair(certFile, keyFile string, logger *slog.Logger) (*KeyPair, error) {
	if logger == nil {
		logger = slog.Default()
	}
	kp := &KeyPair{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   logger,
		debounce: 500 * time.Millisecond,
	}
	if err := kp.Reload(); err != nil {
		return nil, err
	}
	return kp, nil
}

// Reload rereads the certificate and key.
func (kp *KeyPair) Reload() error {
	cert, err := tls.LoadX509KeyPair(kp.certFile, kp.keyFile)
	if err != nil {
		return fmt.Errorf("tlsroots: load key pair: %w", err)
	}

	kp.mu.Lock()
	kp.cert = &cert
	kp.lastReload = time.Now()
	kp.mu.Unlock()
	return nil
}

// GetCertificate implements tls.Config.GetCertificate.
func (kp *KeyPair) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	kp.mu.RLock()
	defer kp.mu.RUnlock()
	return kp.cert, nil
}

// ServerConfig returns a server TLS configuration serving this key pair.
func (kp *KeyPair) ServerConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: kp.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
}

// Watch reloads the key pair whenever either file is written, until ctx
// is cancelled. Directories are watched so editor renames are seen.
func (kp *KeyPair) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	defer w.Close()

	dirs := map[string]struct{}{
		filepath.Dir(kp.certFile): {},
		filepath.Dir(kp.keyFile):  {},
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("tlsroots: watch %s: %w", dir, err)
		}
	}

	certBase, keyBase := filepath.Base(kp.certFile), filepath.Base(kp.keyFile)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			base := filepath.Base(event.Name)
			if base != certBase && base != keyBase {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !kp.due() {
				continue
			}
			if err := kp.Reload(); err != nil {
				kp.logger.Error("certificate reload failed", "cert_file", kp.certFile, "error", err)
				continue
			}
			kp.logger.Info("certificate reloaded", "cert_file", kp.certFile)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			kp.logger.Error("certificate watcher error", "error", err)
		}
	}
}

func (kp *KeyPair) due() bool {
	kp.mu.RLock()
	defer kp.mu.RUnlock()
	return time.Since(kp.lastReload) >= kp.debounce
}
