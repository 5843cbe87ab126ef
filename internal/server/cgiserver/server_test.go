package cgiserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/service"
	"github.com/yndnr/ledgergate-go/internal/locale"
	"github.com/yndnr/ledgergate-go/internal/server/httpserver/handler"
	"github.com/yndnr/ledgergate-go/internal/storage/memory"
	"github.com/yndnr/ledgergate-go/internal/storage/pgdb/pgdbtest"
)

func TestEnv(t *testing.T) {
	t.Setenv(domain.EnvGatewayInterface, "CGI/1.1")
	t.Setenv(domain.EnvScriptName, "/cgi-bin/erp/form.pl")
	t.Setenv(domain.EnvLang, "de_DE.UTF-8")
	t.Setenv("PATH_INFO", "/ignored")

	env := Env(nil)
	want := map[string]string{
		domain.EnvGatewayInterface: "CGI/1.1",
		domain.EnvScriptName:       "/cgi-bin/erp/form.pl",
		domain.EnvLang:             "de_DE.UTF-8",
	}
	for k, v := range want {
		if env[k] != v {
			t.Errorf("env[%s] = %q, want %q", k, env[k], v)
		}
	}
	if _, ok := env["PATH_INFO"]; ok {
		t.Error("PATH_INFO should not be captured")
	}
	if !IsGateway() {
		t.Error("IsGateway() = false")
	}
}

func TestEnv_Lookup(t *testing.T) {
	env := Env(mapLookup(map[string]string{domain.EnvNoSessionCheck: "1"}))
	if len(env) != 1 || env[domain.EnvNoSessionCheck] != "1" {
		t.Errorf("Env() = %v", env)
	}
}

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

type gateway struct {
	server *Server
	db     *pgdbtest.Handle
	cookie string
}

func newGateway(t *testing.T, env map[string]string) *gateway {
	t.Helper()
	catalog, err := locale.NewCatalog("en", "en", "de")
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	db := pgdbtest.NewHandle()
	store := memory.New()
	procs := service.NewProcedures("", nil)

	h := handler.New(handler.Config{
		Initializer: service.NewInitializer(&pgdbtest.Beginner{Handle: db}, catalog, service.InitializerConfig{}),
		Gate:        service.NewGate(store, service.NewUserLoader(procs, catalog), nil, service.GateConfig{}),
		Procedures:  procs,
		Reporter:    service.NewReporter(nil),
		Locales:     catalog,
		Env:         Env(mapLookup(env)),
	})

	session, token, err := store.Create(context.Background(), "bob", "acme")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return &gateway{
		server: New(h),
		db:     db,
		cookie: domain.DefaultCookieName + "=" + session.Cookie(token).String(),
	}
}

func cgiEnv(script, query string) map[string]string {
	return map[string]string{
		"GATEWAY_INTERFACE": "CGI/1.1",
		"SERVER_PROTOCOL":   "HTTP/1.1",
		"REQUEST_METHOD":    "GET",
		"SCRIPT_NAME":       script,
		"QUERY_STRING":      query,
		"REMOTE_ADDR":       "192.0.2.10",
	}
}

func (g *gateway) serve(t *testing.T, env map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	r, err := Request(env)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	w := httptest.NewRecorder()
	g.server.ServeHTTP(w, r)
	return w
}

func TestServer_SessionInfo(t *testing.T) {
	env := cgiEnv("/cgi-bin/erp/session.pl", "action=info")
	g := newGateway(t, env)
	env["HTTP_COOKIE"] = g.cookie
	env["HTTP_ACCEPT_LANGUAGE"] = "de-DE,de;q=0.9"

	w := g.serve(t, env)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing request ID")
	}

	var resp struct {
		Data handler.SessionInfo `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.RunMode != "gateway" || resp.Data.Login != "bob" || resp.Data.Language != "de" {
		t.Errorf("info = %+v", resp.Data)
	}
	if g.db.Committed() != 1 {
		t.Errorf("Committed() = %d, want 1", g.db.Committed())
	}
}

func TestServer_SessionRequired(t *testing.T) {
	env := cgiEnv("/cgi-bin/erp/form.pl", "action=open")
	g := newGateway(t, env)

	w := g.serve(t, env)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Session expired or not valid") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestServer_NoSessionCheck(t *testing.T) {
	env := cgiEnv("/cgi-bin/erp/form.pl", "action=open")
	env[domain.EnvNoSessionCheck] = "1"
	g := newGateway(t, env)

	w := g.serve(t, env)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestServer_RejectsScriptPath(t *testing.T) {
	env := cgiEnv("/cgi-bin/../admin/form.pl", "")
	g := newGateway(t, env)

	w := g.serve(t, env)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid script name") {
		t.Errorf("body = %s", w.Body.String())
	}
}
