package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/request"
	"github.com/yndnr/ledgergate-go/internal/locale"
	"github.com/yndnr/ledgergate-go/internal/storage/pgdb"
	"github.com/yndnr/ledgergate-go/internal/telemetry/logger"
	"github.com/yndnr/ledgergate-go/internal/telemetry/metric"
)

// sqlStateMessages maps SQLSTATE codes to user-facing message keys.
var sqlStateMessages = map[string]string{
	"42883": locale.MsgInternalDatabaseError, // undefined_function
	"42501": locale.MsgAccessDenied,          // insufficient_privilege
	"42401": locale.MsgAccessDenied,
	"22008": locale.MsgInvalidDateTime,   // datetime_field_overflow
	"22012": locale.MsgDivisionByZero,    // division_by_zero
	"22004": locale.MsgRequiredInput,     // null_value_not_allowed
	"23502": locale.MsgRequiredInput,     // not_null_violation
	"23505": locale.MsgConflict,          // unique_violation
	"P0001": locale.MsgErrorFromFunction, // raise_exception
}

// Reporter converts errors raised while serving a request into aborts.
type Reporter struct {
	metrics *metric.Metrics
}

// NewReporter creates a reporter; m may be nil.
func NewReporter(m *metric.Metrics) *Reporter {
	return &Reporter{metrics: m}
}

// Report logs err and returns the Abort ending the request, or nil for a
// nil err.
//
// Database errors with a known SQLSTATE roll the request back and carry a
// fixed localised message; P0001 appends the database message. Unknown
// states pass through as "<state>:<message>" without rollback. Other
// errors become an internal database error.
func (r *Reporter) Report(ctx context.Context, req *request.Request, err error) *domain.Abort {
	if err == nil {
		return nil
	}
	var abort *domain.Abort
	if errors.As(err, &abort) {
		return abort
	}

	log := logger.L(ctx)
	state, dbMessage, ok := pgdb.SQLState(err)
	if !ok {
		log.Error("request failed", slog.String("script", req.Script), slog.Any("error", err))
		return domain.NewAbort(req.Text(locale.MsgInternalDatabaseError), err)
	}

	r.metrics.DatabaseError(state)
	key, known := sqlStateMessages[state]
	if !known {
		log.Error("database error",
			slog.String("sqlstate", state),
			slog.String("script", req.Script),
			slog.String("message", dbMessage))
		return domain.NewAbort(state+":"+dbMessage, err)
	}

	if rbErr := req.Rollback(ctx); rbErr != nil {
		log.Warn("rollback after database error failed", slog.Any("error", rbErr))
	}

	message := req.Text(key)
	if state == "P0001" {
		message += "\n" + dbMessage
	}
	log.Error("database error",
		slog.String("sqlstate", state),
		slog.String("script", req.Script),
		slog.String("message", dbMessage),
		slog.Bool("rolled_back", true))
	return domain.NewAbort(message, err)
}

// MessageFor returns the message key for a SQLSTATE, if mapped.
func MessageFor(state string) (string, bool) {
	key, ok := sqlStateMessages[state]
	return key, ok
}
