package pgdb

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
)

// BuildQuery renders a procedure call as
//
//	SELECT * FROM "schema"."name"($1, $2::type, ...) ORDER BY "col" DESC
//
// and returns the bound arguments. defaultSchema applies when the call
// names none.
func BuildQuery(defaultSchema string, call domain.ProcedureCall) (string, []any, error) {
	if err := call.Validate(); err != nil {
		return "", nil, err
	}

	schema := call.Schema
	if schema == "" {
		schema = defaultSchema
	}
	if schema == "" {
		schema = domain.DefaultSchema
	}
	if !domain.IsIdentifier(schema) {
		return "", nil, domain.ErrInvalidProcedure.WithDetails("invalid schema " + strconv.Quote(schema))
	}

	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(pgx.Identifier{schema, call.Name}.Sanitize())
	b.WriteByte('(')

	args := make([]any, 0, len(call.Args))
	for i, a := range call.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(i + 1))
		switch a.Kind {
		case domain.ArgTyped:
			b.WriteString("::")
			b.WriteString(a.Type)
		case domain.ArgArray:
			if a.Type != "" {
				b.WriteString("::")
				b.WriteString(a.Type)
				if !strings.HasSuffix(a.Type, "[]") {
					b.WriteString("[]")
				}
			}
		}
		args = append(args, a.Value)
	}
	b.WriteByte(')')

	for i, term := range call.OrderBy {
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(pgx.Identifier{term.Column}.Sanitize())
		if term.Desc {
			b.WriteString(" DESC")
		}
	}

	return b.String(), args, nil
}

// Invoke runs a procedure call on h and collects its rows.
func Invoke(ctx context.Context, h Handle, defaultSchema string, call domain.ProcedureCall) ([]domain.Row, error) {
	sql, args, err := BuildQuery(defaultSchema, call)
	if err != nil {
		return nil, err
	}

	rows, err := h.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return CollectRows(rows)
}

// CollectRows reads every row into a map keyed by lower-cased column name.
func CollectRows(rows pgx.Rows) ([]domain.Row, error) {
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Row, 0, len(maps))
	for _, m := range maps {
		row := make(domain.Row, len(m))
		for k, v := range m {
			row[strings.ToLower(k)] = v
		}
		out = append(out, row)
	}
	return out, nil
}
