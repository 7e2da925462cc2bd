package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/hackhero/internal/store"
)

// Open opens (creating if needed) the SQLite database at path and applies the
// pragmas the store relies on. The pool is capped at one connection so all
// writes serialize through a single writer.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return db, nil
}

// NewStores creates all stores backed by the given SQLite handle.
func NewStores(db *sql.DB) *store.Stores {
	return &store.Stores{
		Sessions:  &SessionStore{db: db},
		Messages:  &MessageStore{db: db},
		Todos:     &TodoStore{db: db},
		Artifacts: &ArtifactStore{db: db},
		Context:   &ContextStore{db: db},
		Settings:  &SettingStore{db: db},
	}
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func marshalMeta(meta map[string]any) (sql.NullString, error) {
	if len(meta) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal metadata: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalMeta(raw sql.NullString) map[string]any {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(raw.String), &meta); err != nil {
		return nil
	}
	return meta
}

// nullStr maps an empty string to SQL NULL. Used for optional session ids so
// shared rows are queryable as IS NULL.
func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
