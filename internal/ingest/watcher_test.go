package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nextlevelbuilder/hackhero/internal/store"
)

// TestRulesWatcherReloads verifies that writing the rules file re-seeds the
// shared context slot, including the case where the file is created fresh.
func TestRulesWatcherReloads(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, stores, _ := newTestService(t, nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "hackathon_rules.md")

	w := NewRulesWatcher(path, svc, nil)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watch a moment to attach before the first write.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("rule v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitForSeed(t, stores.Context, "rule v1")

	if err := os.WriteFile(path, []byte("rule v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitForSeed(t, stores.Context, "rule v2")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func waitForSeed(t *testing.T, contexts store.ContextStore, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rows, err := contexts.ListActive(context.Background(), "")
		if err == nil && len(rows) == 1 && rows[0].Content == want {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("shared slot never reached content %q", want)
}
