package workflow

import (
	"errors"
	"strings"
	"testing"
)

func TestParse_Valid(t *testing.T) {
	const src = `{
		"stages": [
			{"name": "a", "cmd": "true", "cwd": "", "needs": [], "resources": {"mem": 1}, "timeframe": -1},
			{"name": "b", "cmd": "true", "cwd": "", "needs": ["a"], "resources": {"mem": 1}, "timeframe": -1}
		]
	}`

	doc, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Stages) != 2 {
		t.Fatalf("got %d stages, want 2", len(doc.Stages))
	}
	if doc.Stages[1].Needs[0] != "a" {
		t.Fatalf("got needs %v, want [a]", doc.Stages[1].Needs)
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"stages": [`))
	if !errors.Is(err, ErrParse) {
		t.Fatalf("got %v, want ErrParse", err)
	}
}

func TestParse_MissingStages(t *testing.T) {
	_, err := Parse(strings.NewReader(`{}`))
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("got %v, want ErrSchema", err)
	}
}

func TestParse_MissingName(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"stages": [{"cmd": "true"}]}`))
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want *SchemaError", err)
	}
	if se.Field != "stages[0].name" {
		t.Fatalf("got field %q, want stages[0].name", se.Field)
	}
}

func TestParse_DuplicateName(t *testing.T) {
	const src = `{"stages": [
		{"name": "a", "cmd": "true"},
		{"name": "a", "cmd": "true"}
	]}`
	_, err := Parse(strings.NewReader(src))
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("got %v, want ErrSchema (duplicate name)", err)
	}
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"stages": [], "bogus": true}`))
	if !errors.Is(err, ErrParse) {
		t.Fatalf("got %v, want ErrParse for unknown field", err)
	}
}
