// Package prompt assembles the system/user message pair Manager.Apply
// sends to the LLM: a static instruction header, a defaults
// section, a numbered rules block with fields rewritten to their opaque
// identifiers, and the user's input wrapped in <text>.
//
// It stays a leaf package (only action and policytype) so policy.Manager
// can depend on it without an import cycle.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/policyai/core/action"
	"github.com/policyai/core/policytype"
)

// Rule is one policy's contribution to a prompt: its semantic injection
// condition and the action it asserts when that condition holds.
type Rule struct {
	Prompt string
	Action action.Action
}

// Example is a canonical few-shot demonstration. Its
// identifiers must be unrelated to the live call's field identifiers,
// so callers build Examples against a throwaway PolicyType.
type Example struct {
	Match  string
	Action map[string]any // identifier -> value
	Note   string
}

const instructionHeader = `Respond with a single JSON object and nothing else: no prose, no markdown fences.
Include "__rule_numbers__": an array of the indices of every rule below whose <match> condition holds for the input in <text>.
Include "__justification__": a short string explaining your decision.
For every rule whose <match> condition holds, add a top-level key equal to that rule's index (as a JSON string, e.g. "1") whose value is the action object shown in that rule, copying its identifier/value pairs verbatim.
Omit the key entirely for rules that do not match. Do not merge multiple rules' actions into one object: each matching rule gets its own top-level key.`

// Assemble builds the system and user messages for one Apply call.
// rules must be in Manager::add order; their rendered index is 1-based.
func Assemble(pt *policytype.PolicyType, rules []Rule, examples []Example, input string) (system, user string) {
	ids := pt.Identifiers()

	var sys strings.Builder
	sys.WriteString(instructionHeader)
	for _, ex := range examples {
		sys.WriteString("\n\n")
		sys.WriteString(renderExample(ex))
	}

	var usr strings.Builder
	if defaults := renderDefaults(pt, ids); defaults != "" {
		usr.WriteString(defaults)
		usr.WriteString("\n\n")
	}
	for i, r := range rules {
		usr.WriteString(renderRule(pt, ids, i+1, r))
		usr.WriteString("\n")
	}
	fmt.Fprintf(&usr, "<text>%s</text>", input)

	return sys.String(), usr.String()
}

func renderDefaults(pt *policytype.PolicyType, ids map[string]string) string {
	pairs := make([]string, 0, len(pt.Fields))
	for _, f := range pt.Fields {
		if !f.HasDefault() {
			continue
		}
		v, _ := json.Marshal(f.Default)
		pairs = append(pairs, fmt.Sprintf("%q:%s", ids[f.Name], v))
	}
	if len(pairs) == 0 {
		return ""
	}
	return "Defaults: {" + strings.Join(pairs, ",") + "}"
}

func renderRule(pt *policytype.PolicyType, ids map[string]string, index int, r Rule) string {
	return fmt.Sprintf(
		"<rule index=%q><match>%s</match>\n<action>When this rule matches, output JSON %s.</action></rule>",
		fmt.Sprint(index), r.Prompt, orderedActionJSON(pt, ids, r.Action),
	)
}

// orderedActionJSON renders act as a JSON object with keys rewritten to
// identifiers, in the policy type's declaration order rather than the
// action's map order, so the model sees a stable field ordering.
func orderedActionJSON(pt *policytype.PolicyType, ids map[string]string, act action.Action) string {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	for _, f := range pt.Fields {
		v, ok := act[f.Name]
		if !ok {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		encoded, _ := json.Marshal(v)
		fmt.Fprintf(&b, "%q:%s", ids[f.Name], encoded)
	}
	b.WriteByte('}')
	return b.String()
}

func renderExample(ex Example) string {
	data, _ := json.Marshal(ex.Action)
	return fmt.Sprintf("Example. Input: %s\nExpected JSON: %s\n(%s)", ex.Match, data, ex.Note)
}
