// Package policy implements the Manager described by the core: an
// ordered, concurrency-safe collection of policies over a PolicyType,
// with snapshot-per-call apply semantics.
package policy

import (
	"encoding/json"
	"fmt"

	"github.com/policyai/core/action"
	"github.com/policyai/core/policytype"
)

// Policy pairs a semantic injection's condition (Prompt) with the Action
// to apply when that condition holds, against a fixed PolicyType.
type Policy struct {
	TypeRef *policytype.PolicyType
	Prompt  string
	Action  action.Action
}

// New constructs a Policy, validating that Action fits TypeRef.
func New(typeRef *policytype.PolicyType, prompt string, act action.Action) (Policy, error) {
	if typeRef == nil {
		return Policy{}, fmt.Errorf("policy: type reference is required")
	}
	if prompt == "" {
		return Policy{}, fmt.Errorf("policy: prompt (semantic injection) must not be empty")
	}
	if err := typeRef.ValidateAction(act); err != nil {
		return Policy{}, err
	}
	return Policy{TypeRef: typeRef, Prompt: prompt, Action: action.Clone(act)}, nil
}

type policyJSON struct {
	Type   *policytype.PolicyType `json:"type"`
	Prompt string                 `json:"prompt"`
	Action action.Action          `json:"action"`
}

// MarshalJSON serializes the policy per the core's Policy wire schema.
func (p Policy) MarshalJSON() ([]byte, error) {
	return json.Marshal(policyJSON{Type: p.TypeRef, Prompt: p.Prompt, Action: p.Action})
}

// UnmarshalJSON reconstructs a Policy. The embedded PolicyType is
// reconstructed with fresh field identifiers, per policytype.PolicyType's
// own UnmarshalJSON.
func (p *Policy) UnmarshalJSON(data []byte) error {
	var raw policyJSON
	raw.Type = &policytype.PolicyType{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := raw.Type.ValidateAction(raw.Action); err != nil {
		return err
	}
	p.TypeRef = raw.Type
	p.Prompt = raw.Prompt
	p.Action = raw.Action
	return nil
}
