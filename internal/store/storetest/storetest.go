// Package storetest opens throwaway SQLite-backed stores for tests.
package storetest

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/hackhero/internal/store"
	"github.com/nextlevelbuilder/hackhero/internal/store/sqlite"
)

// Open creates a fresh SQLite database under the test temp dir with the full
// schema applied and returns stores backed by it.
func Open(t *testing.T) *store.Stores {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for _, stmt := range migrationSQL(t) {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("apply migration: %v", err)
		}
	}
	return sqlite.NewStores(db)
}

// migrationSQL loads the sqlite up migrations in version order.
func migrationSQL(t *testing.T) []string {
	t.Helper()

	_, self, _, _ := runtime.Caller(0)
	dir := filepath.Join(filepath.Dir(self), "..", "..", "..", "migrations", "sqlite")

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	stmts := make([]string, 0, len(names))
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read migration %s: %v", name, err)
		}
		stmts = append(stmts, string(b))
	}
	return stmts
}
