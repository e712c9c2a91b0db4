package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// maxReprompts bounds the malformed-JSON re-prompt loop: one
// terse correction turn before the call fails as Unparseable.
const maxReprompts = 1

// CompletionResult is a validated JSON completion for one Apply call.
// The model's response carries one top-level key per rule it
// judged matching — the rule's 1-based index, as a JSON string — whose
// value is that rule's echoed action object (identifier keys). This is
// what lets two different rules disagree about the same field within a
// single response, which the merge engine's Agreement/LargestValue
// strategies depend on.
type CompletionResult struct {
	// Rules maps rule index to that rule's identifier-keyed action
	// object, for every top-level key that parsed as an integer.
	Rules map[int]map[string]any

	// RuleNumbers is the model's claimed matching rule set. It is
	// advisory: the merge engine trusts action content over it.
	RuleNumbers []int

	Justification string
}

// CompleteJSON drives c to produce a validated JSON object, appending a
// terse correction turn and retrying once if the completion isn't valid
// JSON. After maxReprompts+1 failed attempts it returns an UnparseableError.
func CompleteJSON(ctx context.Context, c Completer, req Request) (*CompletionResult, error) {
	messages := append([]Message(nil), req.Messages...)

	var lastErr error
	for attempt := 0; attempt <= maxReprompts; attempt++ {
		req.Messages = messages
		resp, err := c.Complete(ctx, req)
		if err != nil {
			return nil, err
		}

		result, err := parseCompletion(resp.Content)
		if err == nil {
			return result, nil
		}
		lastErr = err

		messages = append(messages,
			Message{Role: "assistant", Content: resp.Content},
			Message{Role: "user", Content: "Your previous response was not valid JSON. Respond with a single JSON object and nothing else."},
		)
	}

	return nil, NewUnparseableError(fmt.Errorf("completion did not return valid JSON after %d attempt(s): %w", maxReprompts+1, lastErr))
}

func parseCompletion(content string) (*CompletionResult, error) {
	raw := ExtractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object found in completion")
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	result := &CompletionResult{Rules: make(map[int]map[string]any)}
	for k, v := range obj {
		switch k {
		case "__rule_numbers__":
			result.RuleNumbers = toIntSlice(v)
		case "__justification__":
			if s, ok := v.(string); ok {
				result.Justification = s
			}
		default:
			// Non-integer keys are skipped without being reported, as
			// is a rule index whose value isn't a JSON object; neither
			// fails the parse. Identifier keys inside a rule object are
			// not checked here.
			idx, err := strconv.Atoi(k)
			if err != nil {
				continue
			}
			sub, ok := v.(map[string]any)
			if !ok {
				continue
			}
			result.Rules[idx] = sub
		}
	}
	return result, nil
}

func toIntSlice(v any) []int {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(arr))
	for _, e := range arr {
		if f, ok := e.(float64); ok {
			out = append(out, int(f))
		}
	}
	return out
}
