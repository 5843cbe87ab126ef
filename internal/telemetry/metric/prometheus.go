package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ledgergate"

// Metrics holds the application metrics.
type Metrics struct {
	Requests          *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	SessionChecks     *prometheus.CounterVec
	FormTokens        *prometheus.CounterVec
	ProcedureCalls    *prometheus.CounterVec
	ProcedureDuration *prometheus.HistogramVec
	DatabaseErrors    *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests by script, method and status code.",
		}, []string{"script", "method", "code"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request latency by script.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"script"}),

		SessionChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_checks_total",
			Help:      "Session cookie checks by result.",
		}, []string{"result"}),

		FormTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "form_tokens_total",
			Help:      "Form token operations by operation and result.",
		}, []string{"op", "result"}),

		ProcedureCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "procedure_calls_total",
			Help:      "Stored procedure calls by procedure and result.",
		}, []string{"procedure", "result"}),

		ProcedureDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "procedure_duration_seconds",
			Help:      "Stored procedure latency.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"procedure"}),

		DatabaseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_errors_total",
			Help:      "Reported database errors by SQLSTATE.",
		}, []string{"sqlstate"}),
	}

	reg.MustRegister(
		m.Requests,
		m.RequestDuration,
		m.SessionChecks,
		m.FormTokens,
		m.ProcedureCalls,
		m.ProcedureDuration,
		m.DatabaseErrors,
	)
	return m
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(script, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(script, method, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(script).Observe(elapsed.Seconds())
}

// SessionCheck records a session check result: valid, invalid, skipped or
// error.
func (m *Metrics) SessionCheck(result string) {
	if m == nil {
		return
	}
	m.SessionChecks.WithLabelValues(result).Inc()
}

// FormToken records a form token operation.
func (m *Metrics) FormToken(op string, ok bool) {
	if m == nil {
		return
	}
	m.FormTokens.WithLabelValues(op, okLabel(ok)).Inc()
}

// ObserveProcedure records one procedure call.
func (m *Metrics) ObserveProcedure(procedure string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.ProcedureCalls.WithLabelValues(procedure, okLabel(err == nil)).Inc()
	m.ProcedureDuration.WithLabelValues(procedure).Observe(elapsed.Seconds())
}

// DatabaseError records a reported SQLSTATE.
func (m *Metrics) DatabaseError(state string) {
	if m == nil {
		return
	}
	m.DatabaseErrors.WithLabelValues(state).Inc()
}

func okLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
