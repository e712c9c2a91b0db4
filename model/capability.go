// Package model provides capability-based endpoint selection for completion
// requests. Instead of hardcoding model names, callers specify a semantic
// capability ("apply", "generate", "fast") and the registry resolves it to
// an available endpoint with a fallback chain and per-endpoint circuit
// breaking.
package model

// Capability represents a semantic capability for endpoint selection.
type Capability string

const (
	// CapabilityApply is used for Manager.Apply completions: matching
	// policies against an input and emitting the rule-matched JSON object.
	CapabilityApply Capability = "apply"

	// CapabilityGenerate is used for with_semantic_injection completions:
	// deriving an Action from a semantic injection.
	CapabilityGenerate Capability = "generate"

	// CapabilityFast is the fallback capability for callers that don't
	// distinguish apply from generation.
	CapabilityFast Capability = "fast"
)

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityApply, CapabilityGenerate, CapabilityFast:
		return true
	}
	return false
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for invalid values.
func ParseCapability(s string) Capability {
	cap := Capability(s)
	if cap.IsValid() {
		return cap
	}
	return ""
}
