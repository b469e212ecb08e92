package action

import (
	"fmt"
	"math"
	"strings"
)

// FieldType is the expected JSON type of a schema field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeInteger FieldType = "integer"
	TypeBoolean FieldType = "boolean"
)

// Field declares one parameter in an action's schema.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool
	Enum        []string // String fields only; empty = unconstrained.
	MaxLen      int      // String fields only; 0 = unconstrained.
}

// Schema is a declarative object schema for an action's parameters.
// Validation collects every failing field, not just the first, so the
// upstream model gets one actionable message per bad call.
type Schema struct {
	fields []Field
}

// NewSchema builds a schema from the given field declarations.
func NewSchema(fields ...Field) *Schema {
	return &Schema{fields: fields}
}

// FieldError describes a single failing field path and reason.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError carries every failing field from one validation pass.
type ValidationError struct {
	Fields []FieldError
}

// Error renders all field errors as "<field>: <reason>; ...".
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Reason
	}
	return strings.Join(parts, "; ")
}

// Validate checks raw params against the schema. It returns nil on success
// or a *ValidationError listing every failing field. It never panics on
// malformed input — the whole point is converting untrusted data safely.
func (s *Schema) Validate(params map[string]any) error {
	var fields []FieldError

	for _, f := range s.fields {
		v, present := params[f.Name]
		if !present || v == nil {
			if f.Required {
				fields = append(fields, FieldError{Field: f.Name, Reason: "required parameter is missing"})
			}
			continue
		}
		if reason := checkType(f, v); reason != "" {
			fields = append(fields, FieldError{Field: f.Name, Reason: reason})
		}
	}

	// Unknown parameters are rejected: a misspelled field silently dropped
	// is worse than an explicit failure back to the model.
	known := make(map[string]bool, len(s.fields))
	for _, f := range s.fields {
		known[f.Name] = true
	}
	for name := range params {
		if !known[name] {
			fields = append(fields, FieldError{Field: name, Reason: "unknown parameter"})
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func checkType(f Field, v any) string {
	switch f.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return fmt.Sprintf("expected string, got %T", v)
		}
		if f.Required && strings.TrimSpace(s) == "" {
			return "must not be empty"
		}
		if f.MaxLen > 0 && len(s) > f.MaxLen {
			return fmt.Sprintf("must be %d characters or fewer", f.MaxLen)
		}
		if len(f.Enum) > 0 {
			for _, e := range f.Enum {
				if s == e {
					return ""
				}
			}
			return fmt.Sprintf("must be one of: %s", strings.Join(f.Enum, ", "))
		}
	case TypeNumber:
		if _, ok := toFloat(v); !ok {
			return fmt.Sprintf("expected number, got %T", v)
		}
	case TypeInteger:
		n, ok := toFloat(v)
		if !ok || n != math.Trunc(n) {
			return fmt.Sprintf("expected integer, got %v", v)
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Sprintf("expected boolean, got %T", v)
		}
	}
	return ""
}

// JSONSchema renders the schema as a JSON Schema object for the catalog and
// the MCP tool surface.
func (s *Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.fields))
	var required []string
	for _, f := range s.fields {
		p := map[string]any{
			"type":        string(f.Type),
			"description": f.Description,
		}
		if len(f.Enum) > 0 {
			enum := make([]any, len(f.Enum))
			for i, e := range f.Enum {
				enum[i] = e
			}
			p["enum"] = enum
		}
		props[f.Name] = p
		if f.Required {
			required = append(required, f.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Fields returns the declared fields in order.
func (s *Schema) Fields() []Field {
	return s.fields
}

// --- Typed accessors for validated params ---

// String returns the string value for key, or "" when absent.
func String(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return strings.TrimSpace(s)
}

// Number returns the numeric value for key, or 0 when absent.
func Number(params map[string]any, key string) float64 {
	n, _ := toFloat(params[key])
	return n
}

// Integer returns the integer value for key, or 0 when absent.
func Integer(params map[string]any, key string) int {
	n, _ := toFloat(params[key])
	return int(n)
}

// Boolean returns the bool value for key, with a default when absent.
func Boolean(params map[string]any, key string, def bool) bool {
	if b, ok := params[key].(bool); ok {
		return b
	}
	return def
}

// toFloat accepts the numeric shapes JSON decoding can produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
