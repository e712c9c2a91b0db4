package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/policyai/core/policy"
	"github.com/policyai/core/policytype"
	"github.com/policyai/core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emailPolicyType(t *testing.T) *policytype.PolicyType {
	t.Helper()
	unreadDefault := true
	pt, err := policytype.New("EmailPolicy", []policytype.Field{
		mustField(policytype.NewBool("unread", "", &unreadDefault)),
		mustField(policytype.NewStringEnum("priority", []string{"low", "medium", "high"}, policytype.LargestValue, nil)),
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

func TestStoreLoadReadsJSONLFiles(t *testing.T) {
	dir := t.TempDir()
	content := `{"type":{"name":"EmailPolicy","fields":[]},"prompt":"about football","action":{"unread":false}}
{"type":{"name":"EmailPolicy","fields":[]},"prompt":"from mom","action":{"priority":"high"}}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "email.jsonl"), []byte(content), 0o644))

	pt := emailPolicyType(t)
	m := policy.NewManager(pt)
	s := store.New(dir, "*.jsonl", pt, m, nil)

	n, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, m.Len())
}

func TestStoreLoadSkipsMalformedLinesButKeepsGoing(t *testing.T) {
	dir := t.TempDir()
	content := "not json at all\n" + `{"type":{"name":"EmailPolicy","fields":[]},"prompt":"about football","action":{"unread":false}}` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "email.jsonl"), []byte(content), 0o644))

	pt := emailPolicyType(t)
	m := policy.NewManager(pt)
	s := store.New(dir, "*.jsonl", pt, m, nil)

	n, err := s.Load()
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, m.Len())
}

func TestStoreLoadRecursiveGlob(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	content := `{"type":{"name":"EmailPolicy","fields":[]},"prompt":"about football","action":{"unread":false}}` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(sub, "email.jsonl"), []byte(content), 0o644))

	pt := emailPolicyType(t)
	m := policy.NewManager(pt)
	s := store.New(dir, "**/*.jsonl", pt, m, nil)

	n, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
