package logger

import (
	"context"
	"log/slog"
)

type contextKey int

const (
	loggerKey contextKey = iota
	requestKey
)

// request is what the context carries for one request.
type request struct {
	id    string
	attrs []slog.Attr
}

func requestFrom(ctx context.Context) request {
	r, _ := ctx.Value(requestKey).(request)
	return r
}

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the context logger, or the default logger.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithRequestID tags ctx with the request ID, logged as request_id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	r := requestFrom(ctx)
	r.id = requestID
	return context.WithValue(ctx, requestKey, r)
}

// RequestIDFromContext returns the request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	return requestFrom(ctx).id
}

// WithAttrs adds attributes logged with every record of the request, such
// as the script or the logged-in user. Empty string values are skipped.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	r := requestFrom(ctx)
	merged := make([]slog.Attr, 0, len(r.attrs)+len(attrs))
	merged = append(merged, r.attrs...)
	for _, a := range attrs {
		if a.Value.Kind() == slog.KindString && a.Value.String() == "" {
			continue
		}
		merged = append(merged, a)
	}
	r.attrs = merged
	return context.WithValue(ctx, requestKey, r)
}

func requestAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	r := requestFrom(ctx)
	if r.id == "" {
		return r.attrs
	}
	return append([]slog.Attr{slog.String("request_id", r.id)}, r.attrs...)
}

// L returns the context logger bound to ctx.
func L(ctx context.Context) Logger {
	return FromContext(ctx).WithContext(ctx)
}
