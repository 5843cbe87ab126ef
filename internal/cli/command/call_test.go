package command

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func lastSQL(e *testEnv, procedure string) string {
	var sql string
	for _, q := range e.db.Queries() {
		if strings.Contains(q.SQL, procedure) {
			sql = q.SQL
		}
	}
	return sql
}

func TestCall(t *testing.T) {
	e := newTestEnv(t)
	e.db.OnRows("account__list", []string{"accno", "description"},
		[]any{"1000", "Cash"},
		[]any{"1100", "Bank"},
	)

	out, err := e.run(t, "-o", "json", "call", "--order-by", "accno desc", "account__list", "A")
	if err != nil {
		t.Fatalf("call error = %v", err)
	}

	var rows []map[string]any
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(rows) != 2 || rows[1]["description"] != "Bank" {
		t.Errorf("rows = %v", rows)
	}

	want := `SELECT * FROM "acme"."account__list"($1) ORDER BY "accno" DESC`
	if got := lastSQL(e, "account__list"); got != want {
		t.Errorf("SQL = %q, want %q", got, want)
	}
	if e.db.Committed() != 1 || e.db.RolledBack() != 0 {
		t.Errorf("committed = %d, rolled back = %d", e.db.Committed(), e.db.RolledBack())
	}
}

func TestCall_Table(t *testing.T) {
	e := newTestEnv(t)
	e.db.OnRows("account__list", []string{"accno", "description"}, []any{"1000", "Cash"})

	out, err := e.run(t, "call", "account__list")
	if err != nil {
		t.Fatalf("call error = %v", err)
	}
	if !strings.Contains(out, "ACCNO") || !strings.Contains(out, "Cash") {
		t.Errorf("output = %s", out)
	}
}

func TestCall_DryRun(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.run(t, "call", "--dry-run", "gl__post", "42"); err != nil {
		t.Fatalf("call error = %v", err)
	}
	if e.db.Committed() != 0 || e.db.RolledBack() != 1 {
		t.Errorf("committed = %d, rolled back = %d", e.db.Committed(), e.db.RolledBack())
	}
}

func TestCall_Array(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.run(t, "call", "--array", "int", "invoice__void", "1", "2", "3"); err != nil {
		t.Fatalf("call error = %v", err)
	}

	var args []any
	for _, q := range e.db.Queries() {
		if strings.Contains(q.SQL, "invoice__void") {
			if !strings.Contains(q.SQL, `"invoice__void"($1::int[])`) {
				t.Errorf("SQL = %q", q.SQL)
			}
			args = q.Args
		}
	}
	if len(args) != 1 {
		t.Errorf("args = %v, want one array argument", args)
	}
}

func TestCall_DatabaseError(t *testing.T) {
	tests := []struct {
		name string
		lang string
		want string
	}{
		{"english", "", "Error from Function:\nperiod closed"},
		{"german", "de_DE.UTF-8", "Fehler aus Funktion:\nperiod closed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			e.rt.flags.Lang = tt.lang
			e.db.OnError("gl__post", &pgconn.PgError{Code: "P0001", Message: "period closed"})

			_, err := e.run(t, "call", "gl__post")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := Message(err); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
			if e.db.RolledBack() != 1 || e.db.Committed() != 0 {
				t.Errorf("committed = %d, rolled back = %d", e.db.Committed(), e.db.RolledBack())
			}
		})
	}
}

func TestCall_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing name", []string{"call"}},
		{"bad name", []string{"call", "drop table"}},
		{"bad order", []string{"call", "--order-by", "accno sideways", "account__list"}},
		{"bad array type", []string{"call", "--array", "int; drop", "x", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			if _, err := e.run(t, tt.args...); err == nil {
				t.Fatal("expected error")
			}
			for _, q := range e.db.Queries() {
				t.Errorf("unexpected query %q", q.SQL)
			}
			if e.db.Committed() != 0 {
				t.Error("committed after invalid call")
			}
		})
	}
}

func TestParams(t *testing.T) {
	e := newTestEnv(t)

	out, err := e.run(t, "-o", "json", "params", "id=1&id=2&action=open+form&name=acme")
	if err != nil {
		t.Fatalf("params error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got["action"] != "open_form" || got["name"] != "acme" {
		t.Errorf("params = %v", got)
	}
	if ids, ok := got["id"].([]any); !ok || len(ids) != 2 {
		t.Errorf("id = %v", got["id"])
	}
}

func TestParams_MergeWithIndex(t *testing.T) {
	e := newTestEnv(t)

	out, err := e.run(t, "-o", "json", "params", "--index", "3", "--keys", "qty", "--keys", "missing", "qty=5&price=9")
	if err != nil {
		t.Fatalf("params error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(got) != 1 || got["qty_3"] != "5" {
		t.Errorf("params = %v", got)
	}
}

func TestParams_Malformed(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.run(t, "params", "a=1;b=2"); err == nil {
		t.Error("expected error for semicolon separator")
	}
}
