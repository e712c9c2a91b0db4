// Package generation implements with_semantic_injection: eliciting
// the Action a semantic injection asserts by describing the target
// PolicyType to the model in DSL form and asking it to emit only the
// fields the injection affects, using user-facing field names (the
// opaque identifier substitution in prompt/ applies only at merge time,
// not here).
package generation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/policyai/core/action"
	"github.com/policyai/core/llm"
	"github.com/policyai/core/policy"
	"github.com/policyai/core/policytype"
)

// ErrorKind classifies why WithSemanticInjection failed to mint a
// Policy.
type ErrorKind string

const (
	Unparseable       ErrorKind = "unparseable"
	SchemaViolation   ErrorKind = "schema_violation"
	NoFieldsMentioned ErrorKind = "no_fields_mentioned"
)

// GenerationError reports why generation failed.
type GenerationError struct {
	Kind    ErrorKind
	Message string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation error: %s: %s", e.Kind, e.Message)
}

func newGenerationError(kind ErrorKind, message string) *GenerationError {
	return &GenerationError{Kind: kind, Message: message}
}

const instructionTemplate = `You are extracting the structured effect of a policy statement.

The target policy type, in schema form:

%s

The following statement is asserted to be true of some hypothetical input:

"%s"

Respond with a single JSON object and nothing else: no prose, no markdown fences. Use only the field names declared above (not synthetic identifiers). Include only the fields this statement actually determines; omit every field it says nothing about. Do not include __rule_numbers__ or __justification__.`

// WithSemanticInjection elicits the Action a semantic injection asserts
// and pairs it with the injection text to form a Policy bound to typeRef.
func WithSemanticInjection(ctx context.Context, client llm.Completer, typeRef *policytype.PolicyType, injectionText string) (policy.Policy, error) {
	prompt := fmt.Sprintf(instructionTemplate, typeRef.String(), injectionText)

	resp, err := client.Complete(ctx, llm.Request{
		Capability: "generate",
		Messages:   []llm.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return policy.Policy{}, err
	}

	raw := llm.ExtractJSON(resp.Content)
	if raw == "" {
		return policy.Policy{}, newGenerationError(Unparseable, "completion did not contain a JSON object")
	}

	var byName map[string]any
	if err := json.Unmarshal([]byte(raw), &byName); err != nil {
		return policy.Policy{}, newGenerationError(Unparseable, err.Error())
	}
	if len(byName) == 0 {
		return policy.Policy{}, newGenerationError(NoFieldsMentioned, "the statement did not determine any declared field")
	}

	act, err := coerceAction(typeRef, byName)
	if err != nil {
		return policy.Policy{}, newGenerationError(SchemaViolation, err.Error())
	}
	if len(act) == 0 {
		return policy.Policy{}, newGenerationError(NoFieldsMentioned, "no field in the completion validated against the declared schema")
	}

	p, err := policy.New(typeRef, injectionText, act)
	if err != nil {
		return policy.Policy{}, newGenerationError(SchemaViolation, err.Error())
	}
	return p, nil
}

// coerceAction adapts encoding/json's generic decoding to the concrete
// Go types the PolicyType validates against, dropping fields the type
// doesn't declare rather than failing the whole call — a single stray
// key from the model shouldn't sink an otherwise-valid generation.
func coerceAction(typeRef *policytype.PolicyType, byName map[string]any) (action.Action, error) {
	out := make(action.Action, len(byName))
	for name, raw := range byName {
		f, ok := typeRef.FieldByName(name)
		if !ok {
			continue
		}
		switch f.Kind {
		case policytype.KindStringArray:
			arr, ok := raw.([]any)
			if !ok {
				return nil, fmt.Errorf("field %q: expected an array of strings", name)
			}
			vals := make([]string, 0, len(arr))
			for _, e := range arr {
				s, ok := e.(string)
				if !ok {
					return nil, fmt.Errorf("field %q: expected an array of strings", name)
				}
				vals = append(vals, s)
			}
			out[name] = vals
		case policytype.KindNumberArray:
			arr, ok := raw.([]any)
			if !ok {
				return nil, fmt.Errorf("field %q: expected an array of numbers", name)
			}
			vals := make([]float64, 0, len(arr))
			for _, e := range arr {
				f64, ok := e.(float64)
				if !ok {
					return nil, fmt.Errorf("field %q: expected an array of numbers", name)
				}
				vals = append(vals, f64)
			}
			out[name] = vals
		default:
			out[name] = raw
		}
	}
	if err := typeRef.ValidateAction(out); err != nil {
		return nil, err
	}
	return out, nil
}
