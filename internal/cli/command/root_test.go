package command

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
)

func TestApp(t *testing.T) {
	app := App()
	if app.Name != "ledgergate-cli" {
		t.Errorf("Name = %q", app.Name)
	}

	commands := make(map[string]bool)
	for _, cmd := range app.Commands {
		commands[cmd.Name] = true
	}
	for _, name := range []string{"call", "params", "form", "session", "config", "version"} {
		if !commands[name] {
			t.Errorf("missing command: %s", name)
		}
	}

	flags := make(map[string]bool)
	for _, f := range app.Flags {
		flags[f.Names()[0]] = true
	}
	for _, name := range []string{"config", "dsn", "schema", "store", "lang", "timeout", "output", "wide", "verbose"} {
		if !flags[name] {
			t.Errorf("missing flag: %s", name)
		}
	}
}

func TestGlobalFlags_Overrides(t *testing.T) {
	f := &GlobalFlags{DSN: "postgres://x", Store: "badger", Verbose: true}
	o := f.Overrides()

	if o["database.dsn"] != "postgres://x" || o["session.store"] != "badger" || o["log.level"] != "debug" {
		t.Errorf("Overrides() = %v", o)
	}
	if _, ok := o["database.schema"]; ok {
		t.Error("unset schema should not override")
	}
}

func TestMessage(t *testing.T) {
	abort := domain.NewAbort("Access Denied", domain.ErrDatabase)
	if got := Message(abort); got != "Access Denied" {
		t.Errorf("Message(abort) = %q", got)
	}
	if got := Message(errors.New("plain")); got != "plain" {
		t.Errorf("Message(plain) = %q", got)
	}
}

func TestRuntime_Defaults(t *testing.T) {
	rt := NewRuntime(&GlobalFlags{Lang: "de_DE.UTF-8"}, io.Discard)

	if env := rt.Env(); env[domain.EnvLang] != "de_DE.UTF-8" {
		t.Errorf("Env() = %v", env)
	}

	locales, err := rt.Locales()
	if err != nil {
		t.Fatalf("Locales() error = %v", err)
	}
	loc, err := locales.Get("fr")
	if err != nil || loc.Tag().String() != "fr" {
		t.Errorf("Get(fr) = %v, %v", loc, err)
	}

	initer, err := rt.Initializer(nil)
	if err != nil {
		t.Fatalf("Initializer() error = %v", err)
	}
	if initer.CookieName() != domain.DefaultCookieName {
		t.Errorf("CookieName() = %q", initer.CookieName())
	}
	if err := rt.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	e := newTestEnv(t)
	out, err := e.run(t, "-o", "json", "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(out, `"version"`) || !strings.Contains(out, `"go_version"`) {
		t.Errorf("output = %s", out)
	}
}

func TestConfigShow(t *testing.T) {
	e := newTestEnv(t)
	out, err := e.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if strings.Contains(out, "secret") {
		t.Errorf("password not masked:\n%s", out)
	}
	for _, want := range []string{"schema: acme", "store: memory", "db.example.com"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestBadOutputFormat(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.run(t, "-o", "xml", "version"); err == nil {
		t.Error("expected error for unknown output format")
	}
}
