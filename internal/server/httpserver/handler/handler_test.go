package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/request"
	"github.com/yndnr/ledgergate-go/internal/core/service"
	"github.com/yndnr/ledgergate-go/internal/locale"
	"github.com/yndnr/ledgergate-go/internal/server/httpserver/handler"
	"github.com/yndnr/ledgergate-go/internal/storage/memory"
	"github.com/yndnr/ledgergate-go/internal/storage/pgdb/pgdbtest"
)

type fixture struct {
	handler *handler.Handler
	store   *memory.Store
	db      *pgdbtest.Handle
	cookie  *http.Cookie
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog, err := locale.NewCatalog("en", "en", "de")
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	db := pgdbtest.NewHandle()
	store := memory.New()
	procs := service.NewProcedures("public", nil)

	h := handler.New(handler.Config{
		Initializer: service.NewInitializer(&pgdbtest.Beginner{Handle: db}, catalog, service.InitializerConfig{}),
		Gate:        service.NewGate(store, service.NewUserLoader(procs, catalog), nil, service.GateConfig{}),
		Procedures:  procs,
		Reporter:    service.NewReporter(nil),
		Locales:     catalog,
		Env:         map[string]string{domain.EnvEmbedded: "1"},
	})

	session, token, err := store.Create(context.Background(), "alice", "acme")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return &fixture{
		handler: h,
		store:   store,
		db:      db,
		cookie:  &http.Cookie{Name: domain.DefaultCookieName, Value: session.Cookie(token).String()},
	}
}

func (f *fixture) do(method, target string, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, nil)
	for _, opt := range opts {
		opt(r)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func (f *fixture) withCookie(r *http.Request) {
	r.AddCookie(f.cookie)
}

func acceptJSON(r *http.Request) {
	r.Header.Set("Accept", "application/json")
}

type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	if data != nil {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data %q: %v", env.Data, err)
		}
	}
	return env
}

func TestHandler_Scripts(t *testing.T) {
	f := newFixture(t)
	want := []string{"form.pl", "procedure.pl", "session.pl"}
	got := f.handler.Scripts()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Scripts() = %v, want %v", got, want)
	}
}

func TestHandler_UnknownScript(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/erp/nothing.pl")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "Unknown script") {
		t.Errorf("body = %s", w.Body.String())
	}
	if f.db.RolledBack() != 1 {
		t.Errorf("RolledBack() = %d, want 1", f.db.RolledBack())
	}
}

func TestHandler_MethodRejected(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPut, "/form.pl")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Request method not allowed") {
		t.Errorf("body = %s", w.Body.String())
	}

	w = f.do(http.MethodDelete, "/form.pl", func(r *http.Request) {
		r.Header.Set("Accept-Language", "de")
	})
	body := w.Body.String()
	if !strings.Contains(body, "Anfragemethode nicht erlaubt") || !strings.Contains(body, `lang="de"`) {
		t.Errorf("body = %s", body)
	}
}

func TestHandler_SessionRequired(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/form.pl?action=open", acceptJSON)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	env := decode(t, w, nil)
	if env.Code != domain.ErrSessionInvalid.Code || env.Message != "Session expired or not valid" {
		t.Errorf("envelope = %+v", env)
	}
	if w.Header().Get("X-Error-Code") != domain.ErrSessionInvalid.Code {
		t.Errorf("X-Error-Code = %q", w.Header().Get("X-Error-Code"))
	}
}

func TestHandler_FormLifecycle(t *testing.T) {
	f := newFixture(t)

	var opened handler.FormResponse
	w := f.do(http.MethodPost, "/form.pl?action=open", f.withCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("open status = %d body = %s", w.Code, w.Body.String())
	}
	decode(t, w, &opened)
	if opened.FormID == "" {
		t.Fatal("no form_id")
	}
	if f.db.Committed() != 1 {
		t.Errorf("Committed() = %d, want 1", f.db.Committed())
	}

	q := "form_id=" + url.QueryEscape(opened.FormID)

	var checked handler.FormResponse
	decode(t, f.do(http.MethodGet, "/form.pl?action=check&"+q, f.withCookie), &checked)
	if !checked.Valid {
		t.Error("check: valid = false")
	}

	w = f.do(http.MethodPost, "/form.pl?action=close&"+q, f.withCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("close status = %d", w.Code)
	}

	w = f.do(http.MethodPost, "/form.pl?action=close&"+q, f.withCookie)
	if w.Code != http.StatusConflict {
		t.Errorf("second close status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "already been submitted") {
		t.Errorf("body = %s", w.Body.String())
	}

	w = f.do(http.MethodGet, "/form.pl?action=check", f.withCookie, acceptJSON)
	if w.Code != http.StatusBadRequest {
		t.Errorf("check without form_id status = %d", w.Code)
	}
}

func TestHandler_UnknownAction(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/form.pl?action=destroy", f.withCookie)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "Unknown action") {
		t.Errorf("status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestHandler_ProcedureCall(t *testing.T) {
	f := newFixture(t)
	f.db.OnRows("account__get", []string{"accno", "description"}, []any{"1000", "Cash"})

	var res handler.ProcedureResponse
	w := f.do(http.MethodGet, "/procedure.pl?action=call&procedure=account__get&arg=1000&arg=A&order_by=accno+desc", f.withCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	decode(t, w, &res)
	if res.Count != 1 || res.Rows[0]["description"] != "Cash" {
		t.Errorf("response = %+v", res)
	}

	var sql string
	for _, q := range f.db.Queries() {
		if strings.Contains(q.SQL, "account__get") {
			sql = q.SQL
			if len(q.Args) != 2 {
				t.Errorf("args = %v", q.Args)
			}
		}
	}
	if !strings.Contains(sql, `"public"."account__get"($1, $2) ORDER BY "accno" DESC`) {
		t.Errorf("SQL = %q", sql)
	}
}

func TestHandler_ProcedureValidation(t *testing.T) {
	f := newFixture(t)

	tests := []string{
		"/procedure.pl?action=call",
		"/procedure.pl?action=call&procedure=drop+table",
		"/procedure.pl?action=call&procedure=x&order_by=1+drop",
	}
	for _, target := range tests {
		w := f.do(http.MethodGet, target, f.withCookie)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", target, w.Code)
		}
	}
}

func TestHandler_DatabaseErrors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantMessage string
	}{
		{"unique violation", &pgconn.PgError{Code: "23505", Message: "duplicate key"}, "Conflict with Existing Data"},
		{"raise exception", &pgconn.PgError{Code: "P0001", Message: "period closed"}, "Error from Function:\nperiod closed"},
		{"unknown state", &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}, "40P01:deadlock detected"},
		{"connection lost", errors.New("conn closed"), "Internal Database Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.db.OnError("gl__post", tt.err)

			w := f.do(http.MethodPost, "/procedure.pl?action=call&procedure=gl__post", f.withCookie, acceptJSON)
			if w.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d", w.Code)
			}
			env := decode(t, w, nil)
			if env.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", env.Message, tt.wantMessage)
			}
			if f.db.RolledBack() != 1 {
				t.Errorf("RolledBack() = %d, want 1", f.db.RolledBack())
			}
			if f.db.Committed() != 0 {
				t.Error("committed after error")
			}
		})
	}
}

func TestHandler_SessionInfoAndLogout(t *testing.T) {
	f := newFixture(t)

	var info handler.SessionInfo
	w := f.do(http.MethodGet, "/session.pl", f.withCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("info status = %d", w.Code)
	}
	decode(t, w, &info)
	if info.Login != "alice" || info.Company != "acme" || info.RunMode != "embedded" || info.Language != "en" {
		t.Errorf("info = %+v", info)
	}

	w = f.do(http.MethodPost, "/session.pl?action=logout", f.withCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("logout status = %d", w.Code)
	}
	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == domain.DefaultCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("session cookie not cleared")
	}
	if f.store.Len() != 0 {
		t.Errorf("store Len() = %d", f.store.Len())
	}

	if w := f.do(http.MethodGet, "/session.pl", f.withCookie); w.Code != http.StatusUnauthorized {
		t.Errorf("status after logout = %d", w.Code)
	}
}

func TestHandler_Head(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodHead, "/session.pl", f.withCookie)
	if w.Code != http.StatusOK || w.Body.Len() != 0 {
		t.Errorf("status = %d body = %q", w.Code, w.Body.String())
	}
}

func TestHandler_PanicRollsBack(t *testing.T) {
	f := newFixture(t)
	f.handler.Register("boom.pl", &handler.Script{
		Default: "run",
		Actions: map[string]handler.Action{
			"run": func(context.Context, *request.Request) (*handler.Result, error) {
				panic("boom")
			},
		},
	})

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic not propagated")
			}
		}()
		f.do(http.MethodGet, "/boom.pl")
	}()
	if f.db.RolledBack() != 1 {
		t.Errorf("RolledBack() = %d, want 1", f.db.RolledBack())
	}
}

func TestHandler_CustomScriptWithoutSession(t *testing.T) {
	f := newFixture(t)
	f.handler.Register("ping.pl", &handler.Script{
		Default: "ping",
		Actions: map[string]handler.Action{
			"ping": func(_ context.Context, req *request.Request) (*handler.Result, error) {
				return &handler.Result{Status: http.StatusAccepted, Data: req.Params.GetString("x")}, nil
			},
		},
	})

	w := f.do(http.MethodGet, "/ping.pl?x=pong")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	var data string
	decode(t, w, &data)
	if data != "pong" {
		t.Errorf("data = %q", data)
	}
}

func TestHealth(t *testing.T) {
	h := handler.NewHealth(nil, nil)
	w := httptest.NewRecorder()
	h.ServeHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "healthy") {
		t.Errorf("health = %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.ServeReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusOK {
		t.Errorf("ready = %d", w.Code)
	}

	down := handler.NewHealth(func(context.Context) error { return errors.New("db down") }, nil)
	w = httptest.NewRecorder()
	down.ServeReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), domain.ErrDatabaseUnavailable.Code) {
		t.Errorf("ready (down) = %d %s", w.Code, w.Body.String())
	}
}
