package prompt_test

import (
	"strings"
	"testing"

	"github.com/policyai/core/action"
	"github.com/policyai/core/policytype"
	"github.com/policyai/core/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emailPolicyType(t *testing.T) *policytype.PolicyType {
	t.Helper()
	unreadDefault := true
	pt, err := policytype.New("EmailPolicy", []policytype.Field{
		mustField(policytype.NewBool("unread", "", &unreadDefault)),
		mustField(policytype.NewStringEnum("priority", []string{"low", "medium", "high"}, policytype.LargestValue, nil)),
		mustField(policytype.NewStringArray("labels")),
	})
	require.NoError(t, err)
	return pt
}

func mustField(f policytype.Field, err error) policytype.Field {
	if err != nil {
		panic(err)
	}
	return f
}

func TestAssembleIncludesTextWrapper(t *testing.T) {
	pt := emailPolicyType(t)
	_, user := prompt.Assemble(pt, nil, nil, "Weather report")
	assert.Contains(t, user, "<text>Weather report</text>")
}

func TestAssembleHidesFieldNames(t *testing.T) {
	pt := emailPolicyType(t)
	rules := []prompt.Rule{
		{Prompt: "about football", Action: action.Action{"unread": false, "priority": "low"}},
	}
	_, user := prompt.Assemble(pt, rules, nil, "irrelevant")

	assert.NotContains(t, user, "\"unread\"")
	assert.NotContains(t, user, "\"priority\"")

	unread, _ := pt.FieldByName("unread")
	priority, _ := pt.FieldByName("priority")
	assert.Contains(t, user, unread.ID())
	assert.Contains(t, user, priority.ID())
}

func TestAssembleFieldOrderFollowsDeclarationNotActionOrder(t *testing.T) {
	pt := emailPolicyType(t)
	unread, _ := pt.FieldByName("unread")
	priority, _ := pt.FieldByName("priority")

	rules := []prompt.Rule{
		// Action supplied in reverse-declaration order.
		{Prompt: "cond", Action: action.Action{"priority": "high", "unread": false}},
	}
	_, user := prompt.Assemble(pt, rules, nil, "x")

	assert.Less(t, strings.Index(user, unread.ID()), strings.Index(user, priority.ID()))
}

func TestAssembleRulesOrderedByAddOrderNotContent(t *testing.T) {
	pt := emailPolicyType(t)
	rules := []prompt.Rule{
		{Prompt: "first rule", Action: action.Action{"unread": true}},
		{Prompt: "second rule", Action: action.Action{"unread": false}},
	}
	_, user := prompt.Assemble(pt, rules, nil, "x")

	assert.Less(t, strings.Index(user, "first rule"), strings.Index(user, "second rule"))
	assert.Contains(t, user, `index="1"`)
	assert.Contains(t, user, `index="2"`)
}

func TestAssembleDefaultsSectionListsIdentifiers(t *testing.T) {
	pt := emailPolicyType(t)
	unread, _ := pt.FieldByName("unread")
	_, user := prompt.Assemble(pt, nil, nil, "x")
	assert.Contains(t, user, "Defaults:")
	assert.Contains(t, user, unread.ID())
}

func TestAssembleIncludesFewShotExamples(t *testing.T) {
	pt := emailPolicyType(t)
	examples := []prompt.Example{
		{Match: "some unrelated match", Action: map[string]any{"11111111-1111-1111-1111-111111111111": true}, Note: "demonstrates a positive match"},
	}
	system, _ := prompt.Assemble(pt, nil, examples, "x")
	assert.Contains(t, system, "some unrelated match")
	assert.Contains(t, system, "11111111-1111-1111-1111-111111111111")
}

func TestAssembleInstructionHeaderMentionsRuleNumbersAndJustification(t *testing.T) {
	pt := emailPolicyType(t)
	system, _ := prompt.Assemble(pt, nil, nil, "x")
	assert.Contains(t, system, "__rule_numbers__")
	assert.Contains(t, system, "__justification__")
}
