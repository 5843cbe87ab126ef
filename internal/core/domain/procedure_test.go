package domain

import "testing"

func TestArgs(t *testing.T) {
	args := Args("a", 1, Typed("2.50", "numeric"), Array(1, 2, 3))
	if len(args) != 4 {
		t.Fatalf("len(args) = %d, want 4", len(args))
	}
	if args[0].Kind != ArgPlain || args[0].Value != "a" {
		t.Errorf("args[0] = %+v", args[0])
	}
	if args[2].Kind != ArgTyped || args[2].Type != "numeric" {
		t.Errorf("args[2] = %+v", args[2])
	}
	if args[3].Kind != ArgArray {
		t.Errorf("args[3] = %+v", args[3])
	}
	if vs, ok := args[3].Value.([]int); !ok || len(vs) != 3 {
		t.Errorf("array value = %#v", args[3].Value)
	}
}

func TestArray_NilBecomesEmpty(t *testing.T) {
	a := Array[string]()
	vs, ok := a.Value.([]string)
	if !ok || vs == nil {
		t.Errorf("Array() value = %#v, want empty non-nil slice", a.Value)
	}
}

func TestProcedureCall_Validate(t *testing.T) {
	tests := []struct {
		name    string
		call    ProcedureCall
		wantErr bool
	}{
		{"simple", ProcedureCall{Name: "account__list"}, false},
		{"with schema", ProcedureCall{Schema: "lsmb", Name: "form_open"}, false},
		{"typed args", ProcedureCall{Name: "f", Args: []Arg{Typed(1, "int[]"), Typed("x", "varchar(32)"), Typed(nil, "timestamp with time zone")}}, false},
		{"injection in name", ProcedureCall{Name: "f(); drop table x; --"}, true},
		{"quoted schema", ProcedureCall{Schema: `"lsmb"`, Name: "f"}, true},
		{"bad type", ProcedureCall{Name: "f", Args: []Arg{Typed(1, "int); --")}}, true},
		{"empty name", ProcedureCall{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsDomainError(err, "LG-DB-4000") {
				t.Errorf("error code = %q, want LG-DB-4000", GetErrorCode(err))
			}
		})
	}
}

func TestParseOrderBy(t *testing.T) {
	terms, err := ParseOrderBy(" transdate DESC, id ,amount asc")
	if err != nil {
		t.Fatalf("ParseOrderBy() error = %v", err)
	}
	want := []OrderTerm{{"transdate", true}, {"id", false}, {"amount", false}}
	if len(terms) != len(want) {
		t.Fatalf("terms = %+v", terms)
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Errorf("terms[%d] = %+v, want %+v", i, terms[i], want[i])
		}
	}

	if terms, err := ParseOrderBy(""); err != nil || terms != nil {
		t.Errorf("empty order by = %v, %v", terms, err)
	}

	for _, bad := range []string{"id; drop", "id sideways", "a b c", "1abc", ","} {
		if _, err := ParseOrderBy(bad); err == nil {
			t.Errorf("ParseOrderBy(%q) should fail", bad)
		}
	}
}
