package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/yndnr/ledgergate-go/internal/infra/tlsroots"
)

// Server is the embedded HTTP(S) server.
type Server struct {
	httpServer *http.Server
	keyPair    *tlsroots.KeyPair
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithKeyPair serves TLS with a reloadable certificate.
func WithKeyPair(kp *tlsroots.KeyPair) Option {
	return func(s *Server) {
		s.keyPair = kp
	}
}

// WithLogger sets the logger for server errors.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a server for handler on addr.
func New(addr string, handler http.Handler, opts ...Option) *Server {
	s := &Server{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	if s.keyPair != nil {
		s.httpServer.TLSConfig = s.keyPair.ServerConfig()
	}
	return s
}

// TLS reports whether the server serves TLS.
func (s *Server) TLS() bool {
	return s.keyPair != nil
}

// ListenAndServe listens on the configured address. It returns nil after
// Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	var err error
	if s.keyPair != nil {
		err = s.httpServer.ServeTLS(ln, "", "")
	} else {
		err = s.httpServer.Serve(ln)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for active requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
