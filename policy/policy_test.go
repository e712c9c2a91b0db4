package policy_test

import (
	"encoding/json"
	"testing"

	"github.com/policyai/core/action"
	"github.com/policyai/core/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNilType(t *testing.T) {
	_, err := policy.New(nil, "some condition", action.Action{})
	require.Error(t, err)
}

func TestNewRejectsEmptyPrompt(t *testing.T) {
	pt := emailPolicyType(t)
	_, err := policy.New(pt, "", action.Action{"unread": true})
	require.Error(t, err)
}

func TestNewRejectsActionViolatingSchema(t *testing.T) {
	pt := emailPolicyType(t)
	_, err := policy.New(pt, "some condition", action.Action{"nonexistent": true})
	require.Error(t, err)
}

func TestNewClonesAction(t *testing.T) {
	pt := emailPolicyType(t)
	labels := []string{"Family"}
	p, err := policy.New(pt, "from mom", action.Action{"labels": labels})
	require.NoError(t, err)

	labels[0] = "mutated"
	assert.Equal(t, "Family", p.Action["labels"].([]string)[0])
}

func TestPolicyJSONRoundtrip(t *testing.T) {
	pt := emailPolicyType(t)
	p, err := policy.New(pt, "about football", action.Action{"unread": false, "priority": "low"})
	require.NoError(t, err)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"prompt":"about football"`)

	var restored policy.Policy
	require.NoError(t, json.Unmarshal(data, &restored))

	assert.Equal(t, p.Prompt, restored.Prompt)
	assert.Equal(t, p.Action["unread"], restored.Action["unread"])
	assert.Equal(t, p.Action["priority"], restored.Action["priority"])
	assert.Equal(t, pt.Name, restored.TypeRef.Name)
}

func TestApplyErrorMessageIncludesField(t *testing.T) {
	err := &policy.ApplyError{Kind: policy.Conflict, Field: "category", Message: "disagreed"}
	assert.Contains(t, err.Error(), "category")
	assert.Contains(t, err.Error(), "conflict")
}
