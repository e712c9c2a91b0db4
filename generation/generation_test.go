package generation_test

import (
	"context"
	"testing"

	"github.com/policyai/core/generation"
	"github.com/policyai/core/llm"
	"github.com/policyai/core/llm/testutil"
	"github.com/policyai/core/policytype"
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

func TestWithSemanticInjectionSuccess(t *testing.T) {
	pt := emailPolicyType(t)
	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{{Content: `{"priority":"high","labels":["Family"]}`}},
	}

	p, err := generation.WithSemanticInjection(context.Background(), mock, pt, "from mom@example.org")
	require.NoError(t, err)
	assert.Equal(t, "from mom@example.org", p.Prompt)
	assert.Equal(t, "high", p.Action["priority"])
	assert.Equal(t, []string{"Family"}, p.Action["labels"])
}

func TestWithSemanticInjectionUnparseable(t *testing.T) {
	pt := emailPolicyType(t)
	mock := &testutil.MockLLMClient{Responses: []*llm.Response{{Content: "not json"}}}

	_, err := generation.WithSemanticInjection(context.Background(), mock, pt, "some condition")
	require.Error(t, err)
	var genErr *generation.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, generation.Unparseable, genErr.Kind)
}

func TestWithSemanticInjectionEmptyActionIsNoFieldsMentioned(t *testing.T) {
	pt := emailPolicyType(t)
	mock := &testutil.MockLLMClient{Responses: []*llm.Response{{Content: `{}`}}}

	_, err := generation.WithSemanticInjection(context.Background(), mock, pt, "some condition")
	require.Error(t, err)
	var genErr *generation.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, generation.NoFieldsMentioned, genErr.Kind)
}

func TestWithSemanticInjectionSchemaViolation(t *testing.T) {
	pt := emailPolicyType(t)
	mock := &testutil.MockLLMClient{Responses: []*llm.Response{{Content: `{"priority":"urgent"}`}}}

	_, err := generation.WithSemanticInjection(context.Background(), mock, pt, "some condition")
	require.Error(t, err)
	var genErr *generation.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, generation.SchemaViolation, genErr.Kind)
}

func TestWithSemanticInjectionDropsUnknownFields(t *testing.T) {
	pt := emailPolicyType(t)
	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{{Content: `{"priority":"low","nonexistent":true}`}},
	}

	p, err := generation.WithSemanticInjection(context.Background(), mock, pt, "some condition")
	require.NoError(t, err)
	assert.Equal(t, "low", p.Action["priority"])
	_, has := p.Action["nonexistent"]
	assert.False(t, has)
}
