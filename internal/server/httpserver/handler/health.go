package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
)

// Health serves /health and /ready.
type Health struct {
	ready  func(context.Context) error
	render *Renderer
}

// NewHealth creates health endpoints. ready checks dependencies, typically
// a database ping; nil means always ready.
func NewHealth(ready func(context.Context) error, logger *slog.Logger) *Health {
	return &Health{ready: ready, render: NewRenderer(nil, logger)}
}

// ServeHealth reports liveness.
func (h *Health) ServeHealth(w http.ResponseWriter, r *http.Request) {
	h.render.JSON(w, http.StatusOK, NewResponse(w.Header().Get("X-Request-ID"), map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}))
}

// ServeReady reports readiness.
func (h *Health) ServeReady(w http.ResponseWriter, r *http.Request) {
	requestID := w.Header().Get("X-Request-ID")
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			h.render.logger.Warn("readiness check failed", slog.Any("error", err))
			h.render.JSON(w, http.StatusServiceUnavailable,
				NewErrorResponse(requestID, domain.ErrDatabaseUnavailable.Code, "not ready"))
			return
		}
	}
	h.render.JSON(w, http.StatusOK, NewResponse(requestID, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}))
}
