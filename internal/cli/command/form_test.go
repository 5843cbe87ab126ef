package command

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func decodeForm(t *testing.T, out string) FormResult {
	t.Helper()
	var r FormResult
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	return r
}

func TestForm_Lifecycle(t *testing.T) {
	e := newTestEnv(t)
	s, _, err := e.store.Create(context.Background(), "alice", "acme")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	out, err := e.run(t, "-o", "json", "form", "open", "--session", s.ID)
	if err != nil {
		t.Fatalf("open error = %v", err)
	}
	opened := decodeForm(t, out)
	if opened.FormID == "" || !opened.Valid || opened.SessionID != s.ID {
		t.Fatalf("open = %+v", opened)
	}

	out, err = e.run(t, "-o", "json", "form", "check", "-s", s.ID, opened.FormID)
	if err != nil {
		t.Fatalf("check error = %v", err)
	}
	if !decodeForm(t, out).Valid {
		t.Error("check reported closed form")
	}

	if _, err := e.run(t, "form", "close", "-s", s.ID, opened.FormID); err != nil {
		t.Fatalf("close error = %v", err)
	}

	out, err = e.run(t, "-o", "json", "form", "close", "-s", s.ID, opened.FormID)
	if !errors.Is(err, errFormNotOpen) {
		t.Fatalf("second close error = %v, want errFormNotOpen", err)
	}
	if decodeForm(t, out).Valid {
		t.Error("second close reported valid")
	}
}

func TestForm_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"open without session", []string{"form", "open"}},
		{"check without form", []string{"form", "check", "-s", "abc"}},
		{"close without form", []string{"form", "close", "-s", "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			if _, err := e.run(t, tt.args...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
