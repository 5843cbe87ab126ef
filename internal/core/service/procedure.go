package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/request"
	"github.com/yndnr/ledgergate-go/internal/storage/pgdb"
	"github.com/yndnr/ledgergate-go/internal/telemetry/logger"
	"github.com/yndnr/ledgergate-go/internal/telemetry/metric"
)

// Procedures invokes stored procedures.
type Procedures struct {
	schema  string
	metrics *metric.Metrics
}

// NewProcedures creates an invoker. schema is the default schema; m may be
// nil.
func NewProcedures(schema string, m *metric.Metrics) *Procedures {
	if schema == "" {
		schema = domain.DefaultSchema
	}
	return &Procedures{schema: schema, metrics: m}
}

// Schema returns the default schema.
func (p *Procedures) Schema() string {
	return p.schema
}

// Call invokes procedure name on the request's handle with positional
// arguments. Arguments may be plain values or domain.Arg values built with
// domain.Array and domain.Typed.
func (p *Procedures) Call(ctx context.Context, req *request.Request, name string, args ...any) ([]domain.Row, error) {
	if req.Handle == nil {
		return nil, domain.ErrDatabaseUnavailable.WithDetails("request has no database handle")
	}
	call := domain.ProcedureCall{
		Schema: req.Schema,
		Name:   name,
		Args:   domain.Args(args...),
	}
	return p.Invoke(ctx, req.Handle, call)
}

// Invoke runs call on h. The call's schema overrides the default.
func (p *Procedures) Invoke(ctx context.Context, h pgdb.Handle, call domain.ProcedureCall) ([]domain.Row, error) {
	start := time.Now()
	rows, err := pgdb.Invoke(ctx, h, p.schema, call)
	elapsed := time.Since(start)

	p.metrics.ObserveProcedure(call.Name, elapsed, err)
	logger.L(ctx).Debug("procedure called",
		slog.String("procedure", call.Name),
		slog.Int("args", len(call.Args)),
		slog.Int("rows", len(rows)),
		slog.Duration("elapsed", elapsed),
		slog.Bool("ok", err == nil))
	return rows, err
}
