// Package merge implements the conflict-resolution engine: given a
// PolicyType and the per-rule field claims
// reconciled from a completion, it resolves each field by its declared
// strategy and emits exactly one Report.
package merge

import "github.com/policyai/core/action"

// MalformedContribution records a contribution the engine dropped
// because it failed to validate against the field's declared kind —
// typically an enum value the model emitted outside the declared set.
type MalformedContribution struct {
	RuleIndex int
	Field     string
	Value     any
	Reason    string
}

// Conflict records an Agreement field whose matched contributions
// disagreed. The field falls back to its declared default (or is
// omitted) in Report.Value; the raw contributions are preserved here.
type Conflict struct {
	Field         string `json:"field"`
	Contributions []any  `json:"contributions"`
}

// Report is the merged outcome of one Manager.Apply call.
type Report struct {
	Value         action.Action `json:"value"`
	MatchedRules  []int         `json:"matched_rules"`
	Conflicts     []Conflict    `json:"conflicts"`
	Justification string        `json:"justification"`

	// Malformed is diagnostic only; the core's Report schema has no slot
	// for it, so it never serializes, but callers logging apply outcomes
	// can inspect it.
	Malformed []MalformedContribution `json:"-"`
}
