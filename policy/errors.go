package policy

import "fmt"

// ApplyErrorKind classifies why Manager.Apply returned a hard failure
// rather than a Report.
type ApplyErrorKind string

const (
	// SchemaViolation means the merge would be empty for a field with no
	// default after filtering malformed contributions.
	SchemaViolation ApplyErrorKind = "schema_violation"
	// Conflict means an Agreement field's contributions disagreed and the
	// caller set ApplyOptions.FailOnConflict.
	Conflict ApplyErrorKind = "conflict"
	// NoPoliciesForType means the Manager has no policies over the
	// requested PolicyType.
	NoPoliciesForType ApplyErrorKind = "no_policies_for_type"
)

// ApplyError reports why Manager.Apply failed outright instead of
// returning a Report (ApplyError in the wire vocabulary).
type ApplyError struct {
	Kind    ApplyErrorKind
	Field   string // set for SchemaViolation/Conflict
	Message string
}

func (e *ApplyError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("apply error: %s (field %q): %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("apply error: %s: %s", e.Kind, e.Message)
}

func newApplyError(kind ApplyErrorKind, field, message string) *ApplyError {
	return &ApplyError{Kind: kind, Field: field, Message: message}
}
