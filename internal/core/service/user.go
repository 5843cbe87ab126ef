package service

import (
	"context"
	"fmt"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/request"
	"github.com/yndnr/ledgergate-go/internal/locale"
)

// Procedures returning the user's configuration.
const (
	procUserPreferences = "user__get_preferences"
	procUserRoles       = "user__get_roles"
)

// UserLoader loads the bound user's preferences and roles, then resolves
// the request locale with the user's language first.
type UserLoader struct {
	procs   *Procedures
	locales locale.Provider
}

// NewUserLoader creates a loader. locales may be nil to keep the locale
// chosen at initialization.
func NewUserLoader(procs *Procedures, locales locale.Provider) *UserLoader {
	return &UserLoader{procs: procs, locales: locales}
}

// Load fills req.User and req.Roles for req.Login. Requests without a
// database handle get default preferences and no roles.
func (u *UserLoader) Load(ctx context.Context, req *request.Request) error {
	user := &domain.UserConfig{Login: req.Login}
	req.User = user
	req.Roles = nil

	if req.Handle == nil {
		return nil
	}

	rows, err := u.procs.Call(ctx, req, procUserPreferences, req.Login)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		row := rows[0]
		user.Language = rowString(row, "language")
		user.DateFormat = rowString(row, "dateformat")
		user.NumberFormat = rowString(row, "numberformat")
		user.Timezone = rowString(row, "timezone")
	}

	rows, err = u.procs.Call(ctx, req, procUserRoles, req.Login)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if role := roleName(row); role != "" {
			req.Roles = append(req.Roles, role)
		}
	}

	if u.locales != nil && user.Language != "" {
		loc, err := u.locales.Get(user.Language, req.Env[domain.EnvAcceptLanguage], req.Env[domain.EnvLang])
		if err != nil {
			return err
		}
		req.Locale = loc
	}
	return nil
}

func rowString(row domain.Row, column string) string {
	v, ok := row[column]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// roleName reads the role from a rolname column, or from the single
// column of the row.
func roleName(row domain.Row) string {
	if s := rowString(row, "rolname"); s != "" {
		return s
	}
	if len(row) == 1 {
		for k := range row {
			return rowString(row, k)
		}
	}
	return ""
}
