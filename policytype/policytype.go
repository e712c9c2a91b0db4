// Package policytype implements the schema DSL described by the core:
// parsing and rendering `type Name { field: kind @ strategy = default, ... }`
// declarations, validating actions against them, and minting the stable
// per-field opaque identifiers the prompt assembler substitutes for field
// names so the LLM never sees them.
package policytype

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/policyai/core/action"
)

// PolicyType is a named, ordered collection of uniquely-named fields.
// Declaration order is significant: it determines the order action
// fields are rendered in prompts.
type PolicyType struct {
	Name   string
	Fields []Field

	byName map[string]int // field name -> index into Fields
}

// New constructs a PolicyType from an ordered field list, validating
// each field and name uniqueness and minting a stable opaque identifier
// for every field.
func New(name string, fields []Field) (*PolicyType, error) {
	if name == "" {
		return nil, newSchemaError(TypeMismatch, "", "type name must not be empty")
	}

	byName := make(map[string]int, len(fields))
	out := make([]Field, len(fields))
	for i, f := range fields {
		if _, dup := byName[f.Name]; dup {
			return nil, newSchemaError(DuplicateField, f.Name, "field declared more than once")
		}
		if err := validateField(f); err != nil {
			return nil, err
		}
		f.id = uuid.NewString()
		byName[f.Name] = i
		out[i] = f
	}

	return &PolicyType{Name: name, Fields: out, byName: byName}, nil
}

// FieldByName returns the field with the given name and true, or the zero
// Field and false if no such field is declared.
func (t *PolicyType) FieldByName(name string) (Field, bool) {
	idx, ok := t.byName[name]
	if !ok {
		return Field{}, false
	}
	return t.Fields[idx], true
}

// FieldByIdentifier returns the field whose opaque identifier is id.
func (t *PolicyType) FieldByIdentifier(id string) (Field, bool) {
	for _, f := range t.Fields {
		if f.id == id {
			return f, true
		}
	}
	return Field{}, false
}

// Identifiers returns the field-name-to-opaque-identifier mapping used by
// the prompt assembler and the merge engine to translate LLM output keys
// back to field names.
func (t *PolicyType) Identifiers() map[string]string {
	out := make(map[string]string, len(t.Fields))
	for _, f := range t.Fields {
		out[f.Name] = f.id
	}
	return out
}

// ValidateAction checks that every entry in a names a declared field and
// carries a Go value consistent with that field's kind (and, for enums,
// membership in the declared values). It does not require every field to
// be present: Action is inherently partial.
func (t *PolicyType) ValidateAction(a action.Action) error {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f, ok := t.FieldByName(name)
		if !ok {
			return newSchemaError(UnknownField, name, fmt.Sprintf("type %q has no field %q", t.Name, name))
		}
		if err := f.validateValue(a[name]); err != nil {
			return err
		}
	}
	return nil
}

// validateValue checks a single contribution against the field's kind.
func (f Field) validateValue(v any) error {
	switch f.Kind {
	case KindBool:
		if _, ok := v.(bool); !ok {
			return newSchemaError(TypeMismatch, f.Name, "expected bool")
		}
	case KindNumber:
		if !isNumber(v) {
			return newSchemaError(TypeMismatch, f.Name, "expected number")
		}
	case KindString:
		if _, ok := v.(string); !ok {
			return newSchemaError(TypeMismatch, f.Name, "expected string")
		}
	case KindStringEnum:
		s, ok := v.(string)
		if !ok {
			return newSchemaError(TypeMismatch, f.Name, "expected string")
		}
		if _, ok := f.EnumRank(s); !ok {
			return newSchemaError(EnumValueNotDeclared, f.Name, fmt.Sprintf("%q is not a declared value", s))
		}
	case KindStringArray:
		if _, ok := v.([]string); !ok {
			return newSchemaError(TypeMismatch, f.Name, "expected []string")
		}
	case KindNumberArray:
		if _, ok := v.([]float64); !ok {
			return newSchemaError(TypeMismatch, f.Name, "expected []float64")
		}
	}
	return nil
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int32, int64:
		return true
	}
	return false
}

// Defaults returns the declared defaults for every field that has one,
// as an action.Action, suitable as the fallback merge result when a field
// has no matching contributions.
func (t *PolicyType) Defaults() action.Action {
	out := make(action.Action)
	for _, f := range t.Fields {
		if f.HasDefault() {
			out[f.Name] = f.Default
		}
	}
	return out
}
