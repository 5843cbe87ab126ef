package service

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/request"
	"github.com/yndnr/ledgergate-go/internal/locale"
	"github.com/yndnr/ledgergate-go/internal/storage/pgdb"
	"github.com/yndnr/ledgergate-go/internal/telemetry/logger"
)

// maxMultipartMemory bounds the in-memory part of multipart bodies.
const maxMultipartMemory = 32 << 20

// InitializerConfig configures an Initializer.
type InitializerConfig struct {
	CookieName     string
	Schema         string
	NoSessionCheck bool
}

// Initializer builds requests.
type Initializer struct {
	db      pgdb.Beginner
	locales locale.Provider
	cfg     InitializerConfig
}

// NewInitializer creates an initializer. db may be nil, in which case
// requests get no handle unless one is supplied with WithHandle.
func NewInitializer(db pgdb.Beginner, locales locale.Provider, cfg InitializerConfig) *Initializer {
	if cfg.CookieName == "" {
		cfg.CookieName = domain.DefaultCookieName
	}
	if cfg.Schema == "" {
		cfg.Schema = domain.DefaultSchema
	}
	return &Initializer{db: db, locales: locales, cfg: cfg}
}

// CookieName returns the session cookie name.
func (in *Initializer) CookieName() string {
	return in.cfg.CookieName
}

type initOptions struct {
	handle pgdb.Handle
	env    map[string]string
}

// InitOption customizes one initialization.
type InitOption func(*initOptions)

// WithHandle supplies an existing handle. The request does not end its
// transaction.
func WithHandle(h pgdb.Handle) InitOption {
	return func(o *initOptions) {
		o.handle = h
	}
}

// WithEnv adds environment variables, e.g. the gateway environment or the
// embedded server's run mode flag.
func WithEnv(env map[string]string) InitOption {
	return func(o *initOptions) {
		if o.env == nil {
			o.env = make(map[string]string, len(env))
		}
		for k, v := range env {
			o.env[k] = v
		}
	}
}

// input is the run-mode independent view of an incoming request.
type input struct {
	method     string
	scriptPath string
	params     request.Params
	cookies    map[string]string
	env        map[string]string
}

// FromHTTP initializes a request from an HTTP request served by the
// embedded server or a gateway. Errors are *domain.Abort.
func (in *Initializer) FromHTTP(ctx context.Context, r *http.Request, opts ...InitOption) (*request.Request, error) {
	o := applyOptions(opts)

	env := map[string]string{
		domain.EnvRequestMethod:  r.Method,
		domain.EnvScriptName:     r.URL.Path,
		domain.EnvHTTPCookie:     r.Header.Get("Cookie"),
		domain.EnvAcceptLanguage: r.Header.Get("Accept-Language"),
	}
	for k, v := range o.env {
		if k == domain.EnvScriptName && v == "" {
			continue
		}
		env[k] = v
	}

	if err := parseBody(r); err != nil {
		return nil, domain.NewAbort(locale.MsgError, domain.ErrMalformedParams.WithCause(err))
	}

	cookies := make(map[string]string)
	for _, c := range r.Cookies() {
		cookies[c.Name] = c.Value
	}

	return in.build(ctx, o, input{
		method:     r.Method,
		scriptPath: env[domain.EnvScriptName],
		params:     request.FromValues(r.Form),
		cookies:    cookies,
		env:        env,
	})
}

// FromQuery initializes a command-line (or other non-HTTP) request from a
// raw query string and an environment. Errors are *domain.Abort.
func (in *Initializer) FromQuery(ctx context.Context, query string, env map[string]string, opts ...InitOption) (*request.Request, error) {
	o := applyOptions(append([]InitOption{WithEnv(env)}, opts...))

	params, err := request.ParseQuery(query)
	if err != nil {
		return nil, domain.NewAbort(locale.MsgError, domain.ErrMalformedParams.WithCause(err))
	}

	return in.build(ctx, o, input{
		method:     o.env[domain.EnvRequestMethod],
		scriptPath: o.env[domain.EnvScriptName],
		params:     params,
		cookies:    parseCookieHeader(o.env[domain.EnvHTTPCookie]),
		env:        o.env,
	})
}

func applyOptions(opts []InitOption) *initOptions {
	o := &initOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.env == nil {
		o.env = map[string]string{}
	}
	return o
}

func (in *Initializer) build(ctx context.Context, o *initOptions, src input) (*request.Request, error) {
	req := &request.Request{
		ID:             requestID(ctx),
		RunMode:        domain.DetectRunMode(src.env),
		Method:         src.method,
		Params:         src.params,
		Cookies:        src.cookies,
		Env:            src.env,
		Schema:         in.cfg.Schema,
		NoSessionCheck: in.cfg.NoSessionCheck || domain.NoSessionCheck(src.env),
	}
	if req.Params == nil {
		req.Params = request.Params{}
	}
	log := logger.L(ctx)

	if in.locales == nil {
		return nil, domain.NewAbort(locale.MsgError, domain.ErrLocaleNotFound.WithDetails("no locale provider"))
	}
	loc, err := in.locales.Get(src.env[domain.EnvAcceptLanguage], src.env[domain.EnvLang])
	if err != nil || loc == nil {
		if err == nil {
			err = domain.ErrLocaleNotFound
		}
		log.Error("locale resolution failed", slog.Any("error", err))
		return nil, domain.NewAbort(locale.MsgError, err)
	}
	req.Locale = loc

	if req.RunMode.IsNetwork() || req.Method != "" {
		if err := request.ValidateMethod(req.Method); err != nil {
			log.Warn("request method rejected", slog.String("method", req.Method))
			return nil, domain.NewAbort(loc.Text(locale.MsgMethodNotAllowed), err)
		}
	}

	if req.RunMode.IsNetwork() || src.scriptPath != "" {
		script, err := request.ScriptFromScriptPath(src.scriptPath)
		if err != nil {
			log.Warn("script name rejected", slog.String("script_name", src.scriptPath))
			return nil, domain.NewAbort(loc.Text(locale.MsgInvalidScript), err)
		}
		req.Script = script
	}

	req.Action = request.SanitizeAction(req.Params.GetString("action"))
	if req.Action != "" {
		req.Params["action"] = req.Action
	}

	if raw, ok := req.Cookies[in.cfg.CookieName]; ok {
		cookie, err := domain.ParseSessionCookie(raw)
		if err != nil {
			log.Info("session cookie malformed", slog.String("script", req.Script))
		} else {
			req.SessionCookie = cookie
			req.Company = cookie.Company
		}
	}

	switch {
	case o.handle != nil:
		req.SetHandle(o.handle, false)
	case in.db != nil:
		h, err := in.db.Begin(ctx)
		if err != nil {
			log.Error("opening database handle failed", slog.Any("error", err))
			return nil, domain.NewAbort(loc.Text(locale.MsgInternalDatabaseError), err)
		}
		req.SetHandle(h, true)
	}

	return req, nil
}

func parseBody(r *http.Request) error {
	if r.Method != http.MethodPost {
		return r.ParseForm()
	}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		err := r.ParseMultipartForm(maxMultipartMemory)
		if errors.Is(err, http.ErrNotMultipart) {
			return r.ParseForm()
		}
		return err
	}
	return r.ParseForm()
}

func parseCookieHeader(header string) map[string]string {
	cookies := make(map[string]string)
	if strings.TrimSpace(header) == "" {
		return cookies
	}
	r := &http.Request{Header: http.Header{"Cookie": {header}}}
	for _, c := range r.Cookies() {
		cookies[c.Name] = c.Value
	}
	return cookies
}

func requestID(ctx context.Context) string {
	if id := logger.RequestIDFromContext(ctx); id != "" {
		return id
	}
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String())
}
