package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/ledgergate-go/internal/server/httpserver/handler"
	"github.com/yndnr/ledgergate-go/internal/telemetry/metric"
)

// RouterConfig wires the router.
type RouterConfig struct {
	Handler *handler.Handler
	Health  *handler.Health

	// Gatherer serves /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Metrics  *metric.Metrics

	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit float64
	RateBurst int

	Audit  bool
	Logger *slog.Logger
}

// NewRouter builds the top-level handler.
func NewRouter(cfg RouterConfig) http.Handler {
	rd := cfg.Handler.Renderer()
	mux := http.NewServeMux()

	if cfg.Health != nil {
		mux.HandleFunc("GET /health", cfg.Health.ServeHealth)
		mux.HandleFunc("GET /ready", cfg.Health.ServeReady)
	}
	if cfg.Gatherer != nil {
		mux.Handle("GET /metrics", metric.Handler(cfg.Gatherer))
	}

	known := func(name string) bool {
		for _, s := range cfg.Handler.Scripts() {
			if s == name {
				return true
			}
		}
		return false
	}

	var scripts []Middleware
	if cfg.RateLimit > 0 {
		scripts = append(scripts, RateLimit(cfg.RateLimit, cfg.RateBurst, rd))
	}
	if cfg.Metrics != nil {
		scripts = append(scripts, Metrics(cfg.Metrics, known))
	}
	mux.Handle("/", Chain(cfg.Handler, scripts...))

	outer := []Middleware{RequestID(), Recover(rd)}
	if cfg.Audit {
		outer = append(outer, Audit())
	}
	return Chain(mux, outer...)
}
