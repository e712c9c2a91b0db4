package policy_test

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/policyai/core/action"
	"github.com/policyai/core/llm"
	"github.com/policyai/core/llm/testutil"
	"github.com/policyai/core/policy"
	"github.com/policyai/core/policytype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emailPolicyType(t *testing.T) *policytype.PolicyType {
	t.Helper()
	unreadDefault := true
	categoryDefault := "other"
	pt, err := policytype.New("EmailPolicy", []policytype.Field{
		mustField(policytype.NewBool("unread", "", &unreadDefault)),
		mustField(policytype.NewStringEnum("priority", []string{"low", "medium", "high"}, policytype.LargestValue, nil)),
		mustField(policytype.NewStringEnum("category", []string{"ai", "distributed systems", "other"}, policytype.Agreement, &categoryDefault)),
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

// completionJSON builds a per-rule completion body: byRule maps 1-based
// rule index to that rule's field-name-keyed action, translated here to
// identifier keys the way a real model response would carry them.
func completionJSON(t *testing.T, pt *policytype.PolicyType, byRule map[int]map[string]any) string {
	t.Helper()
	ids := pt.Identifiers()
	obj := make(map[string]any, len(byRule)+2)
	for rule, byName := range byRule {
		sub := make(map[string]any, len(byName))
		for name, v := range byName {
			sub[ids[name]] = v
		}
		obj[strconv.Itoa(rule)] = sub
	}
	obj["__rule_numbers__"] = []int{}
	obj["__justification__"] = "test"
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return string(data)
}

func newEmailManager(t *testing.T) (*policy.Manager, *policytype.PolicyType) {
	t.Helper()
	pt := emailPolicyType(t)
	m := policy.NewManager(pt)

	p0, err := policy.New(pt, "about football", action.Action{"unread": false, "priority": "low"})
	require.NoError(t, err)
	p1, err := policy.New(pt, "from mom@example.org", action.Action{"priority": "high", "labels": []string{"Family"}})
	require.NoError(t, err)
	p2, err := policy.New(pt, "about shopping", action.Action{"labels": []string{"Shopping"}})
	require.NoError(t, err)

	require.NoError(t, m.Add(p0))
	require.NoError(t, m.Add(p1))
	require.NoError(t, m.Add(p2))

	return m, pt
}

// Scenario 1 from the end-to-end EmailPolicy walkthrough, driven through
// Manager.Apply against a mock completer.
func TestManagerApplyAllPoliciesMatch(t *testing.T) {
	m, pt := newEmailManager(t)

	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{
			{Content: completionJSON(t, pt, map[int]map[string]any{
				1: {"unread": false, "priority": "low"},
				2: {"priority": "high", "labels": []string{"Family"}},
				3: {"labels": []string{"Shopping"}},
			})},
		},
	}

	report, err := m.Apply(context.Background(), mock, "From: mom@example.org\nSubject: Shopping for football gear", policy.ApplyOptions{})
	require.NoError(t, err)

	assert.Equal(t, false, report.Value["unread"])
	assert.Equal(t, "high", report.Value["priority"])
	assert.Equal(t, "other", report.Value["category"])
	assert.Equal(t, []string{"Family", "Shopping"}, report.Value["labels"])
	assert.Empty(t, report.Conflicts)
}

// Scenario 3: only the football rule fires.
func TestManagerApplySinglePolicyMatches(t *testing.T) {
	m, pt := newEmailManager(t)

	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{
			{Content: completionJSON(t, pt, map[int]map[string]any{
				1: {"unread": false, "priority": "low"},
			})},
		},
	}

	report, err := m.Apply(context.Background(), mock, "Football game tonight", policy.ApplyOptions{})
	require.NoError(t, err)

	assert.Equal(t, false, report.Value["unread"])
	assert.Equal(t, "low", report.Value["priority"])
	assert.Equal(t, "other", report.Value["category"])
	assert.Equal(t, []int{1}, report.MatchedRules)
}

func TestManagerApplyNoMatchesReturnsDefaults(t *testing.T) {
	m, pt := newEmailManager(t)

	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{{Content: completionJSON(t, pt, map[int]map[string]any{})}},
	}

	report, err := m.Apply(context.Background(), mock, "Weather report", policy.ApplyOptions{})
	require.NoError(t, err)

	assert.Equal(t, true, report.Value["unread"])
	assert.Equal(t, "other", report.Value["category"])
	_, hasPriority := report.Value["priority"]
	assert.False(t, hasPriority)
}

func TestManagerApplyEmptyPolicySetReturnsDefaultsWithoutCallingLLM(t *testing.T) {
	pt := emailPolicyType(t)
	m := policy.NewManager(pt)
	mock := &testutil.MockLLMClient{}

	report, err := m.Apply(context.Background(), mock, "anything", policy.ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, m.TypeRef().Defaults(), report.Value)
	assert.Equal(t, 0, mock.GetCallCount())
}

// Scenario 4: two policies disagree over an Agreement field.
func TestManagerApplyFailOnConflictConvertsToError(t *testing.T) {
	pt := emailPolicyType(t)
	m := policy.NewManager(pt)

	pAi, err := policy.New(pt, "about AI", action.Action{"category": "ai"})
	require.NoError(t, err)
	pDs, err := policy.New(pt, "about distributed systems", action.Action{"category": "distributed systems"})
	require.NoError(t, err)
	require.NoError(t, m.Add(pAi))
	require.NoError(t, m.Add(pDs))

	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{{Content: completionJSON(t, pt, map[int]map[string]any{
			1: {"category": "ai"},
			2: {"category": "distributed systems"},
		})}},
	}

	report, err := m.Apply(context.Background(), mock, "text", policy.ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, "other", report.Value["category"])
	require.Len(t, report.Conflicts, 1)

	_, err = m.Apply(context.Background(), &testutil.MockLLMClient{
		Responses: []*llm.Response{{Content: completionJSON(t, pt, map[int]map[string]any{
			1: {"category": "ai"},
			2: {"category": "distributed systems"},
		})}},
	}, "text", policy.ApplyOptions{FailOnConflict: true})
	require.Error(t, err)
	var applyErr *policy.ApplyError
	require.ErrorAs(t, err, &applyErr)
	assert.Equal(t, policy.Conflict, applyErr.Kind)
}

// Snapshot-per-call: a policy added while an Apply is in flight must not
// influence that Apply's result.
type addDuringApply struct {
	inner *testutil.MockLLMClient
	m     *policy.Manager
	extra policy.Policy
}

func (a *addDuringApply) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	_ = a.m.Add(a.extra)
	return a.inner.Complete(ctx, req)
}

func TestManagerApplySnapshotExcludesConcurrentAdd(t *testing.T) {
	pt := emailPolicyType(t)
	m := policy.NewManager(pt)

	p0, err := policy.New(pt, "about football", action.Action{"unread": false})
	require.NoError(t, err)
	require.NoError(t, m.Add(p0))

	extra, err := policy.New(pt, "about basketball", action.Action{"unread": true})
	require.NoError(t, err)

	inner := &testutil.MockLLMClient{
		Responses: []*llm.Response{{Content: completionJSON(t, pt, map[int]map[string]any{
			1: {"unread": false},
		})}},
	}
	completer := &addDuringApply{inner: inner, m: m, extra: extra}

	report, err := m.Apply(context.Background(), completer, "football game", policy.ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, report.MatchedRules)
	assert.Equal(t, false, report.Value["unread"])

	// The addition is now visible to a later Apply.
	assert.Equal(t, 2, m.Len())
}
