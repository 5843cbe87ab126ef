package request

import (
	"context"
	"strings"
	"sync"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/locale"
	"github.com/yndnr/ledgergate-go/internal/storage/pgdb"
)

// Request is one initialized request.
type Request struct {
	ID      string
	RunMode domain.RunMode
	Method  string
	Script  string
	Action  string
	Params  Params
	Cookies map[string]string
	Env     map[string]string

	// SessionCookie is the decoded session cookie, zero when absent or
	// malformed.
	SessionCookie domain.SessionCookie

	// Login and Company are bound by a successful session check.
	Login   string
	Company string

	User   *domain.UserConfig
	Roles  []string
	Locale locale.Locale
	Schema string

	// NoSessionCheck disables session and form checks.
	NoSessionCheck bool

	Handle     pgdb.Handle
	ownsHandle bool
	finishOnce sync.Once
	finishErr  error
}

// SetHandle attaches a handle. When owned, Finish commits or rolls it back.
func (r *Request) SetHandle(h pgdb.Handle, owned bool) {
	r.Handle = h
	r.ownsHandle = owned
}

// OwnsHandle reports whether Finish ends the handle's transaction.
func (r *Request) OwnsHandle() bool {
	return r.ownsHandle
}

// Context returns ctx with the request's handle bound for stores that join
// the request transaction.
func (r *Request) Context(ctx context.Context) context.Context {
	if r.Handle == nil {
		return ctx
	}
	return pgdb.WithHandle(ctx, r.Handle)
}

// Finish ends the request: an owned handle is committed when err is nil and
// rolled back otherwise. Only the first call has an effect.
func (r *Request) Finish(ctx context.Context, err error) error {
	r.finishOnce.Do(func() {
		if r.Handle == nil || !r.ownsHandle {
			return
		}
		if err != nil {
			r.finishErr = r.Handle.Rollback(ctx)
			return
		}
		if cerr := r.Handle.Commit(ctx); cerr != nil {
			r.finishErr = domain.ErrDatabase.WithDetails("commit").WithCause(cerr)
		}
	})
	return r.finishErr
}

// Rollback rolls the handle back now, whoever owns it, and turns later
// Finish calls into no-ops.
func (r *Request) Rollback(ctx context.Context) error {
	var err error
	ran := false
	r.finishOnce.Do(func() {
		ran = true
		if r.Handle != nil {
			err = r.Handle.Rollback(ctx)
		}
	})
	if !ran {
		return nil
	}
	return err
}

// IsRunMode reports whether the request runs in mode.
func (r *Request) IsRunMode(mode domain.RunMode) bool {
	return r.RunMode == mode
}

// IsBlank reports whether parameter key is absent or whitespace only.
func (r *Request) IsBlank(key string) bool {
	return r.Params.IsBlank(key)
}

// IsAllowedRole reports whether the user holds any of roles. Role names
// are compared without the company prefix (lsmb_<company>__).
func (r *Request) IsAllowedRole(roles ...string) bool {
	for _, have := range r.Roles {
		short := r.shortRole(have)
		for _, want := range roles {
			if have == want || short == want {
				return true
			}
		}
	}
	return false
}

func (r *Request) shortRole(role string) string {
	if r.Company == "" {
		return role
	}
	return strings.TrimPrefix(role, "lsmb_"+r.Company+"__")
}

// Cookie returns the value of cookie name.
func (r *Request) Cookie(name string) string {
	return r.Cookies[name]
}

// Text translates key with the request locale. Without a locale the key is
// returned unchanged.
func (r *Request) Text(key string, args ...any) string {
	if r.Locale == nil {
		return key
	}
	return r.Locale.Text(key, args...)
}
