package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultSchema is the schema stored procedures live in when none is configured.
const DefaultSchema = "public"

var (
	identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]{0,62}$`)

	// Type casts accept plain and array types with an optional modifier,
	// e.g. numeric, int[], varchar(32), timestamp with time zone.
	typeRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_ ]{0,62}(\([0-9, ]+\))?(\[\])*$`)
)

// Row is one result row keyed by lower-cased column name.
type Row map[string]any

// ArgKind distinguishes how an argument is bound.
type ArgKind int

const (
	// ArgPlain is bound as-is.
	ArgPlain ArgKind = iota
	// ArgArray is bound as a PostgreSQL array.
	ArgArray
	// ArgTyped is bound with an explicit cast.
	ArgTyped
)

// Arg is a single positional procedure argument.
type Arg struct {
	Kind  ArgKind
	Value any
	Type  string // cast for ArgTyped, element type hint for ArgArray
}

// Value wraps a plain value.
func Value(v any) Arg {
	return Arg{Kind: ArgPlain, Value: v}
}

// Array wraps values bound as a single array argument.
func Array[T any](values ...T) Arg {
	if values == nil {
		values = []T{}
	}
	return Arg{Kind: ArgArray, Value: values}
}

// Typed wraps a value with an explicit SQL type.
func Typed(v any, sqlType string) Arg {
	return Arg{Kind: ArgTyped, Value: v, Type: sqlType}
}

// Args converts plain values into arguments. Values that already are Args
// are kept.
func Args(values ...any) []Arg {
	out := make([]Arg, 0, len(values))
	for _, v := range values {
		if a, ok := v.(Arg); ok {
			out = append(out, a)
			continue
		}
		out = append(out, Value(v))
	}
	return out
}

// Validate checks the argument's cast type.
func (a Arg) Validate() error {
	switch a.Kind {
	case ArgTyped:
		if !typeRe.MatchString(a.Type) {
			return ErrInvalidProcedure.WithDetails(fmt.Sprintf("invalid type %q", a.Type))
		}
	case ArgArray:
		if a.Type != "" && !typeRe.MatchString(a.Type) {
			return ErrInvalidProcedure.WithDetails(fmt.Sprintf("invalid array type %q", a.Type))
		}
	}
	return nil
}

// OrderTerm is one ORDER BY column.
type OrderTerm struct {
	Column string
	Desc   bool
}

// ParseOrderBy parses "col [ASC|DESC], col2 ..." into terms.
func ParseOrderBy(s string) ([]OrderTerm, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var terms []OrderTerm
	for _, part := range strings.Split(s, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 || len(fields) > 2 {
			return nil, ErrInvalidProcedure.WithDetails(fmt.Sprintf("invalid order by %q", part))
		}
		term := OrderTerm{Column: fields[0]}
		if !identifierRe.MatchString(term.Column) {
			return nil, ErrInvalidProcedure.WithDetails(fmt.Sprintf("invalid order by column %q", term.Column))
		}
		if len(fields) == 2 {
			switch strings.ToUpper(fields[1]) {
			case "ASC":
			case "DESC":
				term.Desc = true
			default:
				return nil, ErrInvalidProcedure.WithDetails(fmt.Sprintf("invalid order direction %q", fields[1]))
			}
		}
		terms = append(terms, term)
	}
	return terms, nil
}

// ProcedureCall describes one stored procedure invocation.
type ProcedureCall struct {
	Schema  string // empty means the configured default
	Name    string
	Args    []Arg
	OrderBy []OrderTerm
}

// Validate checks identifiers and argument types.
func (c *ProcedureCall) Validate() error {
	if !identifierRe.MatchString(c.Name) {
		return ErrInvalidProcedure.WithDetails(fmt.Sprintf("invalid procedure name %q", c.Name))
	}
	if c.Schema != "" && !identifierRe.MatchString(c.Schema) {
		return ErrInvalidProcedure.WithDetails(fmt.Sprintf("invalid schema %q", c.Schema))
	}
	for i, a := range c.Args {
		if err := a.Validate(); err != nil {
			return ErrInvalidProcedure.WithDetails(fmt.Sprintf("argument %d: %s", i+1, err.(*DomainError).Details))
		}
	}
	return nil
}

// IsIdentifier reports whether s is a plain SQL identifier.
func IsIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}
