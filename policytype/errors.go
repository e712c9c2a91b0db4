package policytype

import "fmt"

// SchemaErrorKind classifies why a type declaration or action was rejected.
type SchemaErrorKind string

const (
	// DuplicateField means two fields in the same type share a name.
	DuplicateField SchemaErrorKind = "duplicate_field"
	// StrategyOnArray means an @strategy annotation was given for an array field.
	StrategyOnArray SchemaErrorKind = "strategy_on_array"
	// DefaultTypeMismatch means a default literal's type doesn't match the field kind.
	DefaultTypeMismatch SchemaErrorKind = "default_type_mismatch"
	// InvalidEnumDefault means an enum default isn't one of the declared values.
	InvalidEnumDefault SchemaErrorKind = "invalid_enum_default"
	// EmptyEnumValues means a string enum declared zero values.
	EmptyEnumValues SchemaErrorKind = "empty_enum_values"
	// DuplicateEnumValue means a string enum declared the same value twice.
	DuplicateEnumValue SchemaErrorKind = "duplicate_enum_value"
	// ParseFailure means the DSL text could not be tokenized or parsed at all.
	ParseFailure SchemaErrorKind = "parse_failure"
	// UnknownField means an action or reference named a field the type doesn't declare.
	UnknownField SchemaErrorKind = "unknown_field"
	// TypeMismatch means a value's Go type doesn't fit the field's declared kind.
	TypeMismatch SchemaErrorKind = "type_mismatch"
	// EnumValueNotDeclared means a string value isn't a member of the enum's values.
	EnumValueNotDeclared SchemaErrorKind = "enum_value_not_declared"
)

// SchemaError reports a rejected type declaration, action, or field
// reference (InvalidSchema in the wire vocabulary).
type SchemaError struct {
	Kind    SchemaErrorKind
	Field   string // empty if not field-specific
	Type    string // policy type name, when known
	Message string
}

func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid schema: %s (field %q): %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("invalid schema: %s: %s", e.Kind, e.Message)
}

func newSchemaError(kind SchemaErrorKind, field, message string) *SchemaError {
	return &SchemaError{Kind: kind, Field: field, Message: message}
}
