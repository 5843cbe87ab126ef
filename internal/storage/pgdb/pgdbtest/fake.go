// Package pgdbtest provides an in-memory pgdb.Handle for tests.
package pgdbtest

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yndnr/ledgergate-go/internal/storage/pgdb"
)

// Result is the canned answer for one procedure.
type Result struct {
	Columns []string
	Data    [][]any
	Err     error
}

// Query is one recorded statement.
type Query struct {
	SQL  string
	Args []any
}

// Handle records statements and answers procedure calls from canned
// results keyed by procedure name.
type Handle struct {
	mu         sync.Mutex
	results    map[string]Result
	queries    []Query
	committed  int
	rolledBack int

	CommitErr   error
	RollbackErr error
}

var _ pgdb.Handle = (*Handle)(nil)

// NewHandle creates an empty fake handle.
func NewHandle() *Handle {
	return &Handle{results: make(map[string]Result)}
}

// On registers the result returned for calls to procedure name.
func (h *Handle) On(name string, res Result) *Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results[name] = res
	return h
}

// OnRows registers a successful result.
func (h *Handle) OnRows(name string, columns []string, data ...[]any) *Handle {
	return h.On(name, Result{Columns: columns, Data: data})
}

// OnError registers a failing result.
func (h *Handle) OnError(name string, err error) *Handle {
	return h.On(name, Result{Err: err})
}

// Queries returns the recorded statements.
func (h *Handle) Queries() []Query {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Query(nil), h.queries...)
}

// Committed returns how often Commit was called.
func (h *Handle) Committed() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.committed
}

// RolledBack returns how often Rollback was called.
func (h *Handle) RolledBack() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rolledBack
}

func (h *Handle) lookup(sql string, args []any) Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queries = append(h.queries, Query{SQL: sql, Args: args})
	for name, res := range h.results {
		if strings.Contains(sql, `."`+name+`"(`) || strings.Contains(sql, " "+name+"(") {
			return res
		}
	}
	return Result{}
}

// Exec implements pgdb.Handle.
func (h *Handle) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	res := h.lookup(sql, args)
	if res.Err != nil {
		return pgconn.CommandTag{}, res.Err
	}
	return pgconn.NewCommandTag(fmt.Sprintf("SELECT %d", len(res.Data))), nil
}

// Query implements pgdb.Handle.
func (h *Handle) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	res := h.lookup(sql, args)
	if res.Err != nil {
		return nil, res.Err
	}
	return NewRows(res.Columns, res.Data...), nil
}

// QueryRow implements pgdb.Handle.
func (h *Handle) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	res := h.lookup(sql, args)
	return &row{rows: NewRows(res.Columns, res.Data...), err: res.Err}
}

// Commit implements pgdb.Handle.
func (h *Handle) Commit(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.committed++
	return h.CommitErr
}

// Rollback implements pgdb.Handle.
func (h *Handle) Rollback(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rolledBack++
	return h.RollbackErr
}

// Beginner hands out the same fake handle.
type Beginner struct {
	Handle *Handle
	Err    error
	Begun  int
}

// Begin implements pgdb.Beginner.
func (b *Beginner) Begin(context.Context) (pgdb.Handle, error) {
	if b.Err != nil {
		return nil, b.Err
	}
	b.Begun++
	return b.Handle, nil
}

// Rows is an in-memory pgx.Rows.
type Rows struct {
	columns []string
	data    [][]any
	pos     int
	closed  bool
}

var _ pgx.Rows = (*Rows)(nil)

// NewRows creates rows with the given columns.
func NewRows(columns []string, data ...[]any) *Rows {
	return &Rows{columns: columns, data: data}
}

func (r *Rows) Close() { r.closed = true }
func (r *Rows) Err() error { return nil }
func (r *Rows) RawValues() [][]byte { return nil }
func (r *Rows) Conn() *pgx.Conn { return nil }
func (r *Rows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag(fmt.Sprintf("SELECT %d", len(r.data))) }
func (r *Rows) Values() ([]any, error) { return r.data[r.pos-1], nil }

func (r *Rows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.columns))
	for i, c := range r.columns {
		fds[i] = pgconn.FieldDescription{Name: c}
	}
	return fds
}

func (r *Rows) Next() bool {
	if r.closed || r.pos >= len(r.data) {
		r.closed = true
		return false
	}
	r.pos++
	return true
}

func (r *Rows) Scan(dest ...any) error {
	if len(dest) == 1 {
		if rs, ok := dest[0].(pgx.RowScanner); ok {
			return rs.ScanRow(r)
		}
	}
	values := r.data[r.pos-1]
	if len(dest) != len(values) {
		return fmt.Errorf("pgdbtest: scan %d values into %d destinations", len(values), len(dest))
	}
	for i, d := range dest {
		if err := assign(d, values[i]); err != nil {
			return fmt.Errorf("pgdbtest: column %d: %w", i, err)
		}
	}
	return nil
}

type row struct {
	rows *Rows
	err  error
}

func (r *row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	defer r.rows.Close()
	if !r.rows.Next() {
		return pgx.ErrNoRows
	}
	return r.rows.Scan(dest...)
}

func assign(dest, value any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("destination %T is not a pointer", dest)
	}
	target := dv.Elem()
	if value == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}

	v := reflect.ValueOf(value)
	switch {
	case v.Type().AssignableTo(target.Type()):
		target.Set(v)
	case target.Kind() == reflect.Pointer && v.Type().AssignableTo(target.Type().Elem()):
		p := reflect.New(target.Type().Elem())
		p.Elem().Set(v)
		target.Set(p)
	case v.Type().ConvertibleTo(target.Type()):
		target.Set(v.Convert(target.Type()))
	default:
		return fmt.Errorf("cannot assign %T to %s", value, target.Type())
	}
	return nil
}
