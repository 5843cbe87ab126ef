package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/request"
	"github.com/yndnr/ledgergate-go/internal/core/service"
	"github.com/yndnr/ledgergate-go/internal/locale"
	"github.com/yndnr/ledgergate-go/internal/telemetry/logger"
)

// Action handles one script action.
type Action func(ctx context.Context, req *request.Request) (*Result, error)

// Script is a named set of actions.
type Script struct {
	// Session requires a valid session cookie before any action runs.
	Session bool

	// Default is the action used when the request names none.
	Default string

	Actions map[string]Action
}

// Result is what an action hands back for rendering. It is written only
// after the request's transaction has been finished.
type Result struct {
	Status  int
	Data    any
	Cookies []*http.Cookie
}

// Config wires a Handler.
type Config struct {
	Initializer *service.Initializer
	Gate        *service.Gate
	Procedures  *service.Procedures
	Reporter    *service.Reporter
	Locales     locale.Provider

	// Env is added to every request's environment, e.g. the embedded
	// run-mode flag or the gateway's CGI variables.
	Env map[string]string

	Logger *slog.Logger
}

// Handler dispatches /{script} requests.
type Handler struct {
	init     *service.Initializer
	gate     *service.Gate
	procs    *service.Procedures
	reporter *service.Reporter
	render   *Renderer
	env      map[string]string
	logger   *slog.Logger

	mu      sync.RWMutex
	scripts map[string]*Script
}

// New creates a handler with the built-in scripts registered.
func New(cfg Config) *Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		init:     cfg.Initializer,
		gate:     cfg.Gate,
		procs:    cfg.Procedures,
		reporter: cfg.Reporter,
		render:   NewRenderer(cfg.Locales, log),
		env:      cfg.Env,
		logger:   log,
		scripts:  make(map[string]*Script),
	}
	h.Register("form.pl", h.formScript())
	h.Register("procedure.pl", h.procedureScript())
	h.Register("session.pl", h.sessionScript())
	return h
}

// Register adds or replaces a script.
func (h *Handler) Register(name string, s *Script) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scripts[name] = s
}

// Scripts lists the registered script names.
func (h *Handler) Scripts() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.scripts))
	for name := range h.scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Renderer returns the error renderer.
func (h *Handler) Renderer() *Renderer {
	return h.render
}

func (h *Handler) script(name string) (*Script, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.scripts[name]
	return s, ok
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := h.init.FromHTTP(ctx, r, service.WithEnv(h.env))
	if err != nil {
		h.render.Error(w, r, nil, err)
		return
	}
	ctx = logger.WithAttrs(ctx, slog.String("script", req.Script), slog.String("run_mode", req.RunMode.String()))

	res, err := h.run(ctx, req)
	if err != nil {
		h.render.Error(w, r, req.Locale, err)
		return
	}

	for _, c := range res.Cookies {
		http.SetCookie(w, c)
	}
	status := res.Status
	if status == 0 {
		status = http.StatusOK
	}
	if r.Method == http.MethodHead {
		w.WriteHeader(status)
		return
	}
	h.render.JSON(w, status, NewResponse(w.Header().Get("X-Request-ID"), res.Data))
}

// run dispatches req and finishes its transaction. A panic rolls back
// before propagating to the recover middleware.
func (h *Handler) run(ctx context.Context, req *request.Request) (res *Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			_ = req.Finish(ctx, fmt.Errorf("panic: %v", p))
			panic(p)
		}
	}()

	res, err = h.dispatch(ctx, req)
	if err != nil {
		// Report rolls back known SQLSTATEs itself; Finish releases the rest.
		err = h.reporter.Report(ctx, req, err)
		_ = req.Finish(ctx, err)
		return nil, err
	}
	if ferr := req.Finish(ctx, nil); ferr != nil {
		logger.L(ctx).Error("commit failed", slog.Any("error", ferr))
		return nil, h.reporter.Report(ctx, req, ferr)
	}
	if res == nil {
		res = &Result{}
	}
	return res, nil
}

func (h *Handler) dispatch(ctx context.Context, req *request.Request) (*Result, error) {
	s, ok := h.script(req.Script)
	if !ok {
		return nil, &domain.Abort{
			Status:  http.StatusNotFound,
			Message: req.Text(locale.MsgUnknownScript),
			Cause:   domain.ErrUnknownScript.WithDetails(req.Script),
		}
	}

	if s.Session && !h.gate.CheckSession(ctx, req) {
		return nil, &domain.Abort{
			Status:  http.StatusUnauthorized,
			Message: req.Text(locale.MsgSessionInvalid),
			Cause:   domain.ErrSessionInvalid,
		}
	}
	if s.Session {
		ctx = logger.WithAttrs(ctx, slog.String("login", req.Login), slog.String("company", req.Company))
	}

	name := req.Action
	if name == "" {
		name = s.Default
	}
	action, ok := s.Actions[name]
	if !ok {
		return nil, &domain.Abort{
			Status:  http.StatusBadRequest,
			Message: req.Text(locale.MsgUnknownAction),
			Cause:   domain.ErrUnknownAction.WithDetails(req.Script + "?action=" + name),
		}
	}

	logger.L(ctx).Debug("dispatching", slog.String("action", name))
	return action(ctx, req)
}
