package policy

import (
	"context"
	"fmt"
	"sync"

	"github.com/policyai/core/llm"
	"github.com/policyai/core/merge"
	"github.com/policyai/core/policytype"
	"github.com/policyai/core/prompt"
)

// ApplyOptions configures a single Manager.Apply call.
type ApplyOptions struct {
	// FailOnConflict converts an Agreement-strategy disagreement from an
	// in-band Report.Conflicts entry into a hard ApplyError.
	FailOnConflict bool
	// Capability selects which LLM capability Apply requests completions
	// under. Defaults to "apply".
	Capability string
	// Examples, if set, are included as few-shot demonstrations in every
	// prompt this Manager assembles. Their identifiers must not
	// collide with the live PolicyType's field identifiers.
	Examples []prompt.Example
}

// Manager holds an ordered, concurrency-safe collection of Policy values
// bound to one PolicyType and drives Apply against an LLM.
//
// Add and Apply follow a snapshot-per-call discipline: an ongoing Apply
// sees the policy set as of call entry, and additions from concurrent
// Add calls are visible only to later Apply calls. This is realized with
// copy-on-write: Add replaces the backing slice under a mutex; Apply
// reads the slice once, releases the mutex, and never touches it again
// during the (slow) completion call.
type Manager struct {
	mu       sync.Mutex
	typeRef  *policytype.PolicyType
	policies []Policy
}

// NewManager creates an empty Manager over typeRef.
func NewManager(typeRef *policytype.PolicyType) *Manager {
	return &Manager{typeRef: typeRef}
}

// TypeRef returns the PolicyType this Manager's policies are declared
// against.
func (m *Manager) TypeRef() *policytype.PolicyType {
	return m.typeRef
}

// Add appends p to the policy set. p must be declared over the
// Manager's PolicyType.
func (m *Manager) Add(p Policy) error {
	if p.TypeRef != m.typeRef {
		return fmt.Errorf("policy: policy's type does not match manager's type %q", m.typeRef.Name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	next := make([]Policy, len(m.policies)+1)
	copy(next, m.policies)
	next[len(m.policies)] = p
	m.policies = next
	return nil
}

// Len reports the number of policies currently held.
func (m *Manager) Len() int {
	return len(m.snapshot())
}

// snapshot returns the policy set as of the call, without holding the
// lock past this call — the property that lets Apply's slow completion
// call run outside the critical section.
func (m *Manager) snapshot() []Policy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.policies
}

// Apply issues one completion against client (plus one re-prompt via
// llm.CompleteJSON if the reply isn't valid JSON), reconciles the response
// against the policy snapshot taken at call entry, and returns the
// merged Report. Cancelling ctx discards partial work with no
// side effects: the Manager's policy list is never touched by Apply.
func (m *Manager) Apply(ctx context.Context, client llm.Completer, input string, opts ApplyOptions) (*merge.Report, error) {
	snapshot := m.snapshot()
	if len(snapshot) == 0 {
		return &merge.Report{
			Value:        m.typeRef.Defaults(),
			MatchedRules: []int{},
			Conflicts:    []merge.Conflict{},
		}, nil
	}

	capability := opts.Capability
	if capability == "" {
		capability = "apply"
	}

	rules := make([]prompt.Rule, len(snapshot))
	for i, p := range snapshot {
		rules[i] = prompt.Rule{Prompt: p.Prompt, Action: p.Action}
	}
	system, user := prompt.Assemble(m.typeRef, rules, opts.Examples, input)

	result, err := llm.CompleteJSON(ctx, client, llm.Request{
		Capability: capability,
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return nil, err
	}

	claims := reconcileClaims(m.typeRef, snapshot, result.Rules)
	report := merge.Merge(m.typeRef, claims)
	report.Justification = result.Justification

	if len(report.Value) == 0 && len(m.typeRef.Defaults()) == 0 && len(result.Rules) > 0 {
		return nil, newApplyError(SchemaViolation, "", "no contribution validated against the declared schema and no defaults are declared")
	}

	if opts.FailOnConflict && len(report.Conflicts) > 0 {
		c := report.Conflicts[0]
		return nil, newApplyError(Conflict, c.Field, "agreement contributions disagreed")
	}

	return report, nil
}

// reconcileClaims translates the completion's per-rule identifier-keyed
// action objects back into one merge.Claim per policy in snapshot,
// restricted to the fields that policy declares. A rule absent from the
// response, or whose sub-object mentions none of that policy's fields,
// naturally yields an empty Claim and contributes nothing. A value that
// fails to coerce to the field's Go representation is passed through
// unchanged so merge.Merge's per-field Validate records it as a
// MalformedContribution rather than silently dropping it here.
func reconcileClaims(pt *policytype.PolicyType, policies []Policy, rules map[int]map[string]any) []merge.Claim {
	claims := make([]merge.Claim, len(policies))
	for i, p := range policies {
		ruleIndex := i + 1
		values := make(map[string]any, len(p.Action))
		sub := rules[ruleIndex]
		for name := range p.Action {
			f, ok := pt.FieldByName(name)
			if !ok {
				continue
			}
			raw, present := sub[f.ID()]
			if !present {
				continue
			}
			if coerced, ok := coerceValue(f.Kind, raw); ok {
				values[name] = coerced
			} else {
				values[name] = raw
			}
		}
		claims[i] = merge.Claim{RuleIndex: ruleIndex, Values: values}
	}
	return claims
}

// coerceValue adapts encoding/json's generic decoding (interface{}
// slices, float64 numbers) to the concrete Go types policytype.Field
// validates against.
func coerceValue(kind policytype.FieldKind, v any) (any, bool) {
	switch kind {
	case policytype.KindStringArray:
		arr, ok := v.([]any)
		if !ok {
			return v, false
		}
		out := make([]string, 0, len(arr))
		for _, e := range arr {
			s, ok := e.(string)
			if !ok {
				return v, false
			}
			out = append(out, s)
		}
		return out, true
	case policytype.KindNumberArray:
		arr, ok := v.([]any)
		if !ok {
			return v, false
		}
		out := make([]float64, 0, len(arr))
		for _, e := range arr {
			f, ok := e.(float64)
			if !ok {
				return v, false
			}
			out = append(out, f)
		}
		return out, true
	default:
		return v, true
	}
}
