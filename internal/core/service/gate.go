package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/request"
	"github.com/yndnr/ledgergate-go/internal/telemetry/logger"
	"github.com/yndnr/ledgergate-go/internal/telemetry/metric"
)

// GateConfig configures a Gate.
type GateConfig struct {
	// NoCheck disables session and form checks for every request.
	NoCheck bool
}

// Gate checks session cookies and form tokens.
//
// Checks are skipped (and succeed) for command-line requests and when
// checking is disabled by configuration or by the request environment.
// Failures return false; callers decide whether to abort.
type Gate struct {
	store   SessionStore
	users   *UserLoader
	metrics *metric.Metrics
	noCheck bool
}

// NewGate creates a gate. users and m may be nil.
func NewGate(store SessionStore, users *UserLoader, m *metric.Metrics, cfg GateConfig) *Gate {
	return &Gate{
		store:   store,
		users:   users,
		metrics: m,
		noCheck: cfg.NoCheck,
	}
}

func (g *Gate) skip(req *request.Request) bool {
	return req.IsRunMode(domain.RunModeCLI) || g.noCheck || req.NoSessionCheck
}

// CheckSession validates the request's session cookie. A valid session
// binds Login and Company and loads the user's configuration.
func (g *Gate) CheckSession(ctx context.Context, req *request.Request) bool {
	if g.skip(req) {
		g.metrics.SessionCheck("skipped")
		return true
	}
	log := logger.L(ctx)

	if req.SessionCookie.IsZero() {
		g.metrics.SessionCheck("invalid")
		log.Debug("session cookie missing", slog.String("script", req.Script))
		return false
	}

	session, err := g.store.Check(req.Context(ctx), req.SessionCookie)
	if err != nil {
		if isAuthFailure(err) {
			g.metrics.SessionCheck("invalid")
			log.Info("session rejected",
				slog.String("session_id", req.SessionCookie.SessionID),
				slog.String("reason", domain.GetErrorCode(err)))
		} else {
			g.metrics.SessionCheck("error")
			log.Error("session check failed", slog.Any("error", err))
		}
		return false
	}

	req.Login = session.Login
	req.Company = session.Company

	if g.users != nil {
		if err := g.users.Load(ctx, req); err != nil {
			g.metrics.SessionCheck("error")
			log.Error("loading user configuration failed",
				slog.String("login", req.Login),
				slog.Any("error", err))
			return false
		}
	}

	g.metrics.SessionCheck("valid")
	return true
}

func isAuthFailure(err error) bool {
	return errors.Is(err, domain.ErrSessionInvalid) ||
		errors.Is(err, domain.ErrSessionExpired) ||
		errors.Is(err, domain.ErrSessionNotFound)
}

// OpenForm issues a form token for the request's session. Requests that
// skip checks get an unstored token.
func (g *Gate) OpenForm(ctx context.Context, req *request.Request) (domain.FormToken, error) {
	if g.skip(req) {
		id, err := domain.GenerateFormID()
		return domain.FormToken(id), err
	}
	if req.SessionCookie.IsZero() {
		g.metrics.FormToken("open", false)
		return "", domain.ErrSessionInvalid
	}

	token, err := g.store.OpenForm(req.Context(ctx), req.SessionCookie.SessionID)
	g.metrics.FormToken("open", err == nil)
	return token, err
}

// CheckForm reports whether token is open for the request's session,
// without consuming it.
func (g *Gate) CheckForm(ctx context.Context, req *request.Request, token domain.FormToken) bool {
	return g.form(ctx, req, token, "check", g.store.CheckForm)
}

// CloseForm consumes token. It returns true only for the first close of an
// open token.
func (g *Gate) CloseForm(ctx context.Context, req *request.Request, token domain.FormToken) bool {
	return g.form(ctx, req, token, "close", g.store.CloseForm)
}

func (g *Gate) form(ctx context.Context, req *request.Request, token domain.FormToken, op string,
	fn func(context.Context, string, domain.FormToken) (bool, error)) bool {
	if g.skip(req) {
		return true
	}
	if token.IsZero() || req.SessionCookie.IsZero() {
		g.metrics.FormToken(op, false)
		return false
	}

	ok, err := fn(req.Context(ctx), req.SessionCookie.SessionID, token)
	if err != nil {
		logger.L(ctx).Error("form token "+op+" failed", slog.Any("error", err))
		ok = false
	}
	g.metrics.FormToken(op, ok)
	return ok
}

// Login creates a session for login in company and returns its cookie.
// Credentials must have been verified by the caller.
func (g *Gate) Login(ctx context.Context, req *request.Request, login, company string) (domain.SessionCookie, error) {
	session, token, err := g.store.Create(req.Context(ctx), login, company)
	if err != nil {
		return domain.SessionCookie{}, err
	}
	req.Login = session.Login
	req.Company = session.Company
	req.SessionCookie = session.Cookie(token)

	logger.L(ctx).Info("session created",
		slog.String("session_id", session.ID),
		slog.String("login", session.Login),
		slog.String("company", session.Company))
	return req.SessionCookie, nil
}

// Logout deletes the request's session.
func (g *Gate) Logout(ctx context.Context, req *request.Request) error {
	if req.SessionCookie.IsZero() {
		return domain.ErrSessionInvalid
	}
	if err := g.store.Delete(req.Context(ctx), req.SessionCookie.SessionID); err != nil {
		return err
	}
	logger.L(ctx).Info("session deleted", slog.String("session_id", req.SessionCookie.SessionID))
	req.SessionCookie = domain.SessionCookie{}
	return nil
}
