package store

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/policyai/core/policy"
	"github.com/policyai/core/policytype"
)

func testEmailPolicyType(t *testing.T) *policytype.PolicyType {
	t.Helper()
	unreadDefault := true
	pt, err := policytype.New("EmailPolicy", []policytype.Field{
		{Name: "unread", Kind: policytype.KindBool, OnConflict: policytype.Default, Default: unreadDefault},
	})
	if err != nil {
		t.Fatal(err)
	}
	return pt
}

func TestNewWatcher(t *testing.T) {
	pt := testEmailPolicyType(t)
	s := New(t.TempDir(), "*.jsonl", pt, policy.NewManager(pt), nil)

	w, err := NewWatcher(s, DefaultWatcherConfig(), nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v, want nil", err)
	}
	if w.watcher == nil {
		t.Error("watcher.watcher is nil")
	}
	defer func() { _ = w.Stop() }()
}

func TestWatcherReloadsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	pt := testEmailPolicyType(t)
	manager := policy.NewManager(pt)
	s := New(dir, "*.jsonl", pt, manager, nil)

	config := DefaultWatcherConfig()
	config.DebounceInterval = 50 * time.Millisecond
	w, err := NewWatcher(s, config, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = w.Stop() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = w.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	line := `{"type":{"name":"EmailPolicy","fields":[]},"prompt":"about football","action":{"unread":false}}` + "\n"
	if err := os.WriteFile(filepath.Join(dir, "email.jsonl"), []byte(line), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		if manager.Len() > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("policy was never loaded after file creation")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestWatcherIgnoresNonMatchingExtensions(t *testing.T) {
	dir := t.TempDir()
	pt := testEmailPolicyType(t)
	manager := policy.NewManager(pt)
	s := New(dir, "*.jsonl", pt, manager, nil)

	config := DefaultWatcherConfig()
	config.DebounceInterval = 20 * time.Millisecond
	w, err := NewWatcher(s, config, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = w.Stop() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Watch(ctx) }()
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if manager.Len() != 0 {
		t.Errorf("manager.Len() = %d, want 0 (non-.jsonl write should not trigger a reload)", manager.Len())
	}
}

func TestDebouncerCollapsesBurstsIntoOneCallback(t *testing.T) {
	d := newDebouncer(30 * time.Millisecond)
	defer d.stop()

	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.trigger(func() { calls.Add(1) })
	}

	time.Sleep(100 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}
