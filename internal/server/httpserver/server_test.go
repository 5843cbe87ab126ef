package httpserver

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/service"
	"github.com/yndnr/ledgergate-go/internal/locale"
	"github.com/yndnr/ledgergate-go/internal/server/httpserver/handler"
	"github.com/yndnr/ledgergate-go/internal/storage/memory"
	"github.com/yndnr/ledgergate-go/internal/storage/pgdb/pgdbtest"
	"github.com/yndnr/ledgergate-go/internal/telemetry/metric"
)

func newTestRouter(t *testing.T, ready func(context.Context) error) (http.Handler, *prometheus.Registry, *metric.Metrics) {
	t.Helper()
	catalog, err := locale.NewCatalog("en", "en", "de")
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	reg := prometheus.NewRegistry()
	m := metric.New(reg)
	procs := service.NewProcedures("public", m)

	h := handler.New(handler.Config{
		Initializer: service.NewInitializer(&pgdbtest.Beginner{Handle: pgdbtest.NewHandle()}, catalog, service.InitializerConfig{}),
		Gate:        service.NewGate(memory.New(), service.NewUserLoader(procs, catalog), m, service.GateConfig{}),
		Procedures:  procs,
		Reporter:    service.NewReporter(m),
		Locales:     catalog,
		Env:         map[string]string{domain.EnvEmbedded: "1"},
	})

	router := NewRouter(RouterConfig{
		Handler:  h,
		Health:   handler.NewHealth(ready, nil),
		Gatherer: reg,
		Metrics:  m,
		Audit:    true,
	})
	return router, reg, m
}

func TestRouter_Endpoints(t *testing.T) {
	router, _, m := newTestRouter(t, nil)

	tests := []struct {
		method     string
		target     string
		wantStatus int
		wantBody   string
	}{
		{http.MethodGet, "/health", http.StatusOK, "healthy"},
		{http.MethodGet, "/ready", http.StatusOK, "ready"},
		{http.MethodGet, "/form.pl", http.StatusUnauthorized, "Session expired or not valid"},
		{http.MethodGet, "/unknown.pl", http.StatusNotFound, "Unknown script"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.target, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body = %s", w.Body.String())
			}
			if w.Header().Get(HeaderRequestID) == "" {
				t.Error("missing request ID")
			}
		})
	}

	if got := testutil.ToFloat64(m.Requests.WithLabelValues("form.pl", "GET", "401")); got != 1 {
		t.Errorf("form.pl 401 count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("other", "GET", "404")); got != 1 {
		t.Errorf("other 404 count = %v, want 1", got)
	}
}

func TestRouter_Metrics(t *testing.T) {
	router, _, m := newTestRouter(t, nil)
	m.SessionCheck("valid")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ledgergate_session_checks_total") {
		t.Errorf("metrics body missing session checks:\n%s", w.Body.String())
	}
}

func TestRouter_NotReady(t *testing.T) {
	router, _, _ := newTestRouter(t, func(context.Context) error { return errors.New("down") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", w.Code)
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	srv := New(ln.Addr().String(), router)
	if srv.TLS() {
		t.Error("TLS() = true without key pair")
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "healthy") {
		t.Errorf("GET /health = %d %s", resp.StatusCode, body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Serve() error = %v, want nil after shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}
