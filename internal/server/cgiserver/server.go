package cgiserver

import (
	"log/slog"
	"net/http"
	"net/http/cgi"
	"os"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/server/httpserver"
	"github.com/yndnr/ledgergate-go/internal/server/httpserver/handler"
)

// passthrough lists the gateway variables handed to the request initializer.
var passthrough = []string{
	domain.EnvGatewayInterface,
	domain.EnvScriptName,
	domain.EnvLang,
	domain.EnvNoSessionCheck,
}

// Env captures the gateway variables using lookup, or os.LookupEnv when
// lookup is nil. Unset variables are omitted.
func Env(lookup func(string) (string, bool)) map[string]string {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := make(map[string]string, len(passthrough))
	for _, key := range passthrough {
		if v, ok := lookup(key); ok {
			env[key] = v
		}
	}
	return env
}

// IsGateway reports whether the process was started by a CGI gateway.
func IsGateway() bool {
	return domain.DetectRunMode(Env(nil)) == domain.RunModeGateway
}

// Server runs the handler for the current CGI request.
type Server struct {
	handler http.Handler
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New wraps h with request ID, panic recovery and audit logging.
func New(h *handler.Handler, opts ...Option) *Server {
	s := &Server{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = httpserver.Chain(h,
		httpserver.RequestID(),
		httpserver.Recover(h.Renderer()),
		httpserver.Audit(),
	)
	return s
}

// ServeHTTP runs the wrapped handler chain.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Serve answers the request described by the process environment.
func (s *Server) Serve() error {
	if err := cgi.Serve(s.handler); err != nil {
		s.logger.Error("cgi request failed", slog.Any("error", err))
		return err
	}
	return nil
}

// Request builds the request a gateway would describe with env. It is the
// in-process counterpart of reading os.Environ.
func Request(env map[string]string) (*http.Request, error) {
	return cgi.RequestFromMap(env)
}
