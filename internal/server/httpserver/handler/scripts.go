package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/request"
	"github.com/yndnr/ledgergate-go/internal/locale"
)

func badRequest(req *request.Request, key string, cause error) *domain.Abort {
	return &domain.Abort{
		Status:  http.StatusBadRequest,
		Message: req.Text(key),
		Cause:   cause,
	}
}

// form.pl?action=open|check|close&form_id=...
func (h *Handler) formScript() *Script {
	formID := func(req *request.Request) (domain.FormToken, error) {
		if req.IsBlank("form_id") {
			return "", badRequest(req, locale.MsgRequiredInput, domain.ErrFormTokenMissing)
		}
		return domain.FormToken(req.Params.GetString("form_id")), nil
	}

	return &Script{
		Session: true,
		Default: "open",
		Actions: map[string]Action{
			"open": func(ctx context.Context, req *request.Request) (*Result, error) {
				tok, err := h.gate.OpenForm(ctx, req)
				if err != nil {
					return nil, err
				}
				return &Result{Data: FormResponse{FormID: tok.String(), Valid: true}}, nil
			},
			"check": func(ctx context.Context, req *request.Request) (*Result, error) {
				tok, err := formID(req)
				if err != nil {
					return nil, err
				}
				return &Result{Data: FormResponse{FormID: tok.String(), Valid: h.gate.CheckForm(ctx, req, tok)}}, nil
			},
			"close": func(ctx context.Context, req *request.Request) (*Result, error) {
				tok, err := formID(req)
				if err != nil {
					return nil, err
				}
				if !h.gate.CloseForm(ctx, req, tok) {
					return nil, &domain.Abort{
						Status:  http.StatusConflict,
						Message: req.Text(locale.MsgFormInvalid),
						Cause:   domain.ErrFormTokenInvalid.WithDetails(tok.String()),
					}
				}
				return &Result{Data: FormResponse{FormID: tok.String(), Valid: true}}, nil
			},
		},
	}
}

// procedure.pl?action=call&procedure=...&arg=...&arg=...&order_by=...
func (h *Handler) procedureScript() *Script {
	return &Script{
		Session: true,
		Default: "call",
		Actions: map[string]Action{
			"call": func(ctx context.Context, req *request.Request) (*Result, error) {
				if req.IsBlank("procedure") {
					return nil, badRequest(req, locale.MsgRequiredInput, domain.ErrMissingArgument.WithDetails("procedure"))
				}
				order, err := domain.ParseOrderBy(req.Params.GetString("order_by"))
				if err != nil {
					return nil, badRequest(req, locale.MsgError, err)
				}

				var args []any
				for _, a := range req.Params.GetStrings("arg") {
					args = append(args, a)
				}
				call := domain.ProcedureCall{
					Schema:  req.Schema,
					Name:    req.Params.GetString("procedure"),
					Args:    domain.Args(args...),
					OrderBy: order,
				}
				if err := call.Validate(); err != nil {
					return nil, badRequest(req, locale.MsgError, err)
				}
				if req.Handle == nil {
					return nil, domain.ErrDatabaseUnavailable
				}

				rows, err := h.procs.Invoke(req.Context(ctx), req.Handle, call)
				if err != nil {
					return nil, err
				}
				if rows == nil {
					rows = []domain.Row{}
				}
				return &Result{Data: ProcedureResponse{Procedure: call.Name, Count: len(rows), Rows: rows}}, nil
			},
		},
	}
}

// session.pl?action=info|logout
func (h *Handler) sessionScript() *Script {
	return &Script{
		Session: true,
		Default: "info",
		Actions: map[string]Action{
			"info": func(_ context.Context, req *request.Request) (*Result, error) {
				info := SessionInfo{
					SessionID: req.SessionCookie.SessionID,
					Login:     req.Login,
					Company:   req.Company,
					RunMode:   req.RunMode.String(),
					Roles:     req.Roles,
					User:      req.User,
				}
				if info.Roles == nil {
					info.Roles = []string{}
				}
				if req.Locale != nil {
					info.Language = req.Locale.Tag().String()
				}
				return &Result{Data: info}, nil
			},
			"logout": func(ctx context.Context, req *request.Request) (*Result, error) {
				if err := h.gate.Logout(ctx, req); err != nil && !errors.Is(err, domain.ErrSessionInvalid) {
					return nil, err
				}
				expired := &http.Cookie{
					Name:     h.init.CookieName(),
					Value:    "",
					Path:     "/",
					Expires:  time.Unix(0, 0),
					MaxAge:   -1,
					HttpOnly: true,
					SameSite: http.SameSiteStrictMode,
				}
				return &Result{Data: map[string]bool{"logged_out": true}, Cookies: []*http.Cookie{expired}}, nil
			},
		},
	}
}
