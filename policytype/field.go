package policytype

import "fmt"

// FieldKind identifies which of the DSL's field variants a Field is.
type FieldKind string

const (
	KindBool        FieldKind = "bool"
	KindNumber      FieldKind = "number"
	KindString      FieldKind = "string"
	KindStringEnum  FieldKind = "string_enum"
	KindStringArray FieldKind = "string_array"
	KindNumberArray FieldKind = "number_array"
)

// IsArray reports whether the kind is one of the array variants, which
// always use set-union merge and never carry an OnConflict strategy.
func (k FieldKind) IsArray() bool {
	return k == KindStringArray || k == KindNumberArray
}

// OnConflict names the merge strategy applied to a scalar field's
// contributions when a policy's apply produces more than one.
type OnConflict string

const (
	// Agreement requires every contribution to be equal; a mismatch is
	// recorded as a conflict and the field falls back to its default.
	Agreement OnConflict = "agreement"
	// LargestValue resolves to the greatest contribution by the field
	// kind's natural ordering.
	LargestValue OnConflict = "largest_value"
	// Default resolves to the contribution from the highest-numbered
	// matched rule (last writer wins).
	Default OnConflict = "default"
)

// Field is one declared member of a PolicyType: a name, a kind, and
// (for scalar kinds) a conflict strategy and optional default.
type Field struct {
	Name       string
	Kind       FieldKind
	OnConflict OnConflict // zero value for array kinds
	Default    any        // bool, float64, or string; nil if the field has no default
	Values     []string   // declared enum members in order; only set for KindStringEnum

	// id is the stable opaque identifier the prompt assembler substitutes
	// for Name so the LLM never sees field names. Assigned once, at
	// PolicyType construction.
	id string
}

// HasDefault reports whether the field declares a default value.
func (f Field) HasDefault() bool {
	return f.Default != nil
}

// ID returns the field's stable opaque identifier.
func (f Field) ID() string {
	return f.id
}

// NewBool declares a boolean field.
func NewBool(name string, onConflict OnConflict, defaultValue *bool) (Field, error) {
	f := Field{Name: name, Kind: KindBool, OnConflict: normalizeStrategy(onConflict)}
	if defaultValue != nil {
		f.Default = *defaultValue
	}
	return f, validateField(f)
}

// NewNumber declares a numeric field.
func NewNumber(name string, onConflict OnConflict, defaultValue *float64) (Field, error) {
	f := Field{Name: name, Kind: KindNumber, OnConflict: normalizeStrategy(onConflict)}
	if defaultValue != nil {
		f.Default = *defaultValue
	}
	return f, validateField(f)
}

// NewString declares a free-text string field.
func NewString(name string, onConflict OnConflict, defaultValue *string) (Field, error) {
	f := Field{Name: name, Kind: KindString, OnConflict: normalizeStrategy(onConflict)}
	if defaultValue != nil {
		f.Default = *defaultValue
	}
	return f, validateField(f)
}

// NewStringEnum declares a field restricted to a closed, ordered set of
// string values. values must be unique; their declaration order is the
// LargestValue ordering.
func NewStringEnum(name string, values []string, onConflict OnConflict, defaultValue *string) (Field, error) {
	f := Field{
		Name:       name,
		Kind:       KindStringEnum,
		OnConflict: normalizeStrategy(onConflict),
		Values:     append([]string(nil), values...),
	}
	if defaultValue != nil {
		f.Default = *defaultValue
	}
	return f, validateField(f)
}

// NewStringArray declares a field that always merges by set-union.
func NewStringArray(name string) (Field, error) {
	f := Field{Name: name, Kind: KindStringArray}
	return f, validateField(f)
}

// NewNumberArray declares a numeric-array field. Like StringArray, it
// always merges by set-union (deduplicated, first-occurrence order); the
// original Rust source has no analog, this is a spec addition.
func NewNumberArray(name string) (Field, error) {
	f := Field{Name: name, Kind: KindNumberArray}
	return f, validateField(f)
}

func normalizeStrategy(s OnConflict) OnConflict {
	if s == "" {
		return Default
	}
	return s
}

func validateField(f Field) error {
	if f.Name == "" {
		return newSchemaError(TypeMismatch, "", "field name must not be empty")
	}

	if f.Kind.IsArray() {
		if f.OnConflict != "" {
			return newSchemaError(StrategyOnArray, f.Name, "array fields ignore on_conflict")
		}
		if f.Default != nil {
			return newSchemaError(DefaultTypeMismatch, f.Name, "array fields cannot declare a default")
		}
		return nil
	}

	switch f.OnConflict {
	case Agreement, LargestValue, Default:
	default:
		return newSchemaError(TypeMismatch, f.Name, fmt.Sprintf("unknown conflict strategy %q", f.OnConflict))
	}

	if f.Kind == KindStringEnum {
		if len(f.Values) == 0 {
			return newSchemaError(EmptyEnumValues, f.Name, "string enum must declare at least one value")
		}
		seen := make(map[string]struct{}, len(f.Values))
		for _, v := range f.Values {
			if _, dup := seen[v]; dup {
				return newSchemaError(DuplicateEnumValue, f.Name, fmt.Sprintf("duplicate enum value %q", v))
			}
			seen[v] = struct{}{}
		}
	}

	if f.Default == nil {
		return nil
	}

	switch f.Kind {
	case KindBool:
		if _, ok := f.Default.(bool); !ok {
			return newSchemaError(DefaultTypeMismatch, f.Name, "default must be a bool")
		}
	case KindNumber:
		if _, ok := f.Default.(float64); !ok {
			return newSchemaError(DefaultTypeMismatch, f.Name, "default must be a number")
		}
	case KindString:
		if _, ok := f.Default.(string); !ok {
			return newSchemaError(DefaultTypeMismatch, f.Name, "default must be a string")
		}
	case KindStringEnum:
		s, ok := f.Default.(string)
		if !ok {
			return newSchemaError(DefaultTypeMismatch, f.Name, "default must be a string")
		}
		found := false
		for _, v := range f.Values {
			if v == s {
				found = true
				break
			}
		}
		if !found {
			return newSchemaError(InvalidEnumDefault, f.Name, fmt.Sprintf("default %q is not a declared enum value", s))
		}
	}

	return nil
}

// Validate checks a single candidate value against the field's kind and,
// for enums, membership in the declared values. The merge engine uses
// this to drop malformed LLM contributions without going through a full
// Action.
func (f Field) Validate(v any) error {
	return f.validateValue(v)
}

// EnumRank returns the position of value in the field's declared Values,
// used by LargestValue to order enum contributions. ok is false if value
// isn't a declared member.
func (f Field) EnumRank(value string) (rank int, ok bool) {
	for i, v := range f.Values {
		if v == value {
			return i, true
		}
	}
	return -1, false
}
