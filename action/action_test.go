package action_test

import (
	"testing"

	"github.com/policyai/core/action"
	"github.com/stretchr/testify/assert"
)

func TestCloneIndependentSlices(t *testing.T) {
	orig := action.Action{
		"labels": []string{"a", "b"},
		"score":  []float64{1, 2},
		"flag":   true,
	}

	cloned := action.Clone(orig)
	cloned["labels"].([]string)[0] = "z"
	cloned["score"].([]float64)[0] = 99

	assert.Equal(t, "a", orig["labels"].([]string)[0])
	assert.Equal(t, float64(1), orig["score"].([]float64)[0])
	assert.Equal(t, true, cloned["flag"])
}

func TestCloneNil(t *testing.T) {
	assert.Nil(t, action.Clone(nil))
}

func TestFields(t *testing.T) {
	a := action.Action{"x": 1, "y": 2}
	names := action.Fields(a)
	assert.ElementsMatch(t, []string{"x", "y"}, names)
}

func TestMergeOverlayWins(t *testing.T) {
	base := action.Action{"priority": "low", "unread": true}
	overlay := action.Action{"priority": "high"}

	merged := action.Merge(base, overlay)

	assert.Equal(t, "high", merged["priority"])
	assert.Equal(t, true, merged["unread"])
	assert.Equal(t, "low", base["priority"], "base must not be mutated")
}

func TestMergeNilBase(t *testing.T) {
	merged := action.Merge(nil, action.Action{"a": 1})
	assert.Equal(t, action.Action{"a": 1}, merged)
}
