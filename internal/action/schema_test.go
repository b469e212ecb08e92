package action

import (
	"strings"
	"testing"
)

// --- Validation ---

func TestSchema_ValidParams(t *testing.T) {
	s := NewSchema(
		Field{Name: "name", Type: TypeString, Required: true},
		Field{Name: "amount", Type: TypeNumber},
		Field{Name: "days", Type: TypeInteger},
		Field{Name: "done", Type: TypeBoolean},
	)
	err := s.Validate(map[string]any{
		"name":   "Acme renewal",
		"amount": 1200.50,
		"days":   float64(3), // JSON decoding produces float64.
		"done":   true,
	})
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
}

func TestSchema_CollectsAllErrors(t *testing.T) {
	s := NewSchema(
		Field{Name: "name", Type: TypeString, Required: true},
		Field{Name: "amount", Type: TypeNumber},
	)
	err := s.Validate(map[string]any{
		"amount": "not a number",
		"extra":  "nope",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(verr.Fields) != 3 {
		t.Fatalf("expected 3 field errors, got %d: %v", len(verr.Fields), verr)
	}
	msg := verr.Error()
	for _, want := range []string{"name", "amount", "extra", "required parameter is missing", "unknown parameter"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message missing %q: %s", want, msg)
		}
	}
}

func TestSchema_RequiredStringMustNotBeBlank(t *testing.T) {
	s := NewSchema(Field{Name: "title", Type: TypeString, Required: true})
	if err := s.Validate(map[string]any{"title": "   "}); err == nil {
		t.Fatal("expected error for blank required string")
	}
}

func TestSchema_Enum(t *testing.T) {
	s := NewSchema(Field{Name: "stage", Type: TypeString, Enum: []string{"lead", "won", "lost"}})

	if err := s.Validate(map[string]any{"stage": "won"}); err != nil {
		t.Fatalf("Validate(won) error: %v", err)
	}
	err := s.Validate(map[string]any{"stage": "maybe"})
	if err == nil {
		t.Fatal("expected error for value outside enum")
	}
	if !strings.Contains(err.Error(), "must be one of: lead, won, lost") {
		t.Errorf("unexpected enum error: %v", err)
	}
}

func TestSchema_MaxLen(t *testing.T) {
	s := NewSchema(Field{Name: "message", Type: TypeString, MaxLen: 10})
	if err := s.Validate(map[string]any{"message": strings.Repeat("x", 11)}); err == nil {
		t.Fatal("expected error for over-length string")
	}
}

func TestSchema_IntegerRejectsFraction(t *testing.T) {
	s := NewSchema(Field{Name: "days", Type: TypeInteger})

	if err := s.Validate(map[string]any{"days": 2.0}); err != nil {
		t.Fatalf("Validate(2.0) error: %v", err)
	}
	if err := s.Validate(map[string]any{"days": 2.5}); err == nil {
		t.Fatal("expected error for fractional integer")
	}
}

func TestSchema_OptionalNilIsAbsent(t *testing.T) {
	s := NewSchema(Field{Name: "notes", Type: TypeString})
	if err := s.Validate(map[string]any{"notes": nil}); err != nil {
		t.Fatalf("Validate(nil optional) error: %v", err)
	}
}

func TestSchema_NeverPanicsOnGarbage(t *testing.T) {
	s := NewSchema(
		Field{Name: "name", Type: TypeString, Required: true},
		Field{Name: "count", Type: TypeInteger},
	)
	// Arbitrary shapes must produce errors, not panics.
	inputs := []map[string]any{
		{"name": 42, "count": []any{1, 2}},
		{"name": map[string]any{"nested": true}},
		{"count": "NaN"},
		nil,
	}
	for _, in := range inputs {
		if err := s.Validate(in); err == nil {
			t.Errorf("expected validation error for %v", in)
		}
	}
}

// --- JSON Schema rendering ---

func TestSchema_JSONSchema(t *testing.T) {
	s := NewSchema(
		Field{Name: "stage", Type: TypeString, Required: true, Enum: []string{"lead", "won"}},
		Field{Name: "amount", Type: TypeNumber},
	)
	js := s.JSONSchema()

	if js["type"] != "object" {
		t.Errorf("type = %v, want object", js["type"])
	}
	props, ok := js["properties"].(map[string]any)
	if !ok || len(props) != 2 {
		t.Fatalf("unexpected properties: %v", js["properties"])
	}
	stage := props["stage"].(map[string]any)
	if enum, ok := stage["enum"].([]any); !ok || len(enum) != 2 {
		t.Errorf("stage enum not rendered: %v", stage)
	}
	required, ok := js["required"].([]string)
	if !ok || len(required) != 1 || required[0] != "stage" {
		t.Errorf("required = %v, want [stage]", js["required"])
	}
}

// --- Typed accessors ---

func TestTypedAccessors(t *testing.T) {
	params := map[string]any{
		"name":   "  Jane Doe  ",
		"amount": 99.5,
		"days":   float64(7),
		"done":   true,
	}
	if got := String(params, "name"); got != "Jane Doe" {
		t.Errorf("String = %q", got)
	}
	if got := Number(params, "amount"); got != 99.5 {
		t.Errorf("Number = %v", got)
	}
	if got := Integer(params, "days"); got != 7 {
		t.Errorf("Integer = %v", got)
	}
	if !Boolean(params, "done", false) {
		t.Error("Boolean(done) = false")
	}
	if !Boolean(params, "missing", true) {
		t.Error("Boolean default not applied")
	}
	if got := String(params, "missing"); got != "" {
		t.Errorf("String(missing) = %q", got)
	}
}
