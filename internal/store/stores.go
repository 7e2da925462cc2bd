package store

import "context"

// Stores is the top-level container for all storage backends.
// Both the SQLite (standalone) and Postgres backends populate every field.
type Stores struct {
	Sessions  SessionStore
	Messages  MessageStore
	Todos     TodoStore
	Artifacts ArtifactStore
	Context   ContextStore
	Settings  SettingStore
}

// SessionStore manages chat sessions.
type SessionStore interface {
	// Upsert creates the session if it does not exist and returns it.
	Upsert(ctx context.Context, sessionID string) (*Session, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	// List returns sessions newest-first with message counts.
	List(ctx context.Context, limit, offset int) ([]Session, error)
	UpdateTitle(ctx context.Context, sessionID, title string) error
	// Delete removes the session and everything scoped to it
	// (messages, todos, artifacts, context rows).
	Delete(ctx context.Context, sessionID string) error
}

// MessageStore manages the append-only message log.
type MessageStore interface {
	// Append writes a message, creating the session on first write.
	Append(ctx context.Context, sessionID, role, content string, metadata map[string]any) (*Message, error)
	// List returns messages ordered by created_at then id. limit <= 0 means all.
	List(ctx context.Context, sessionID string, limit, offset int) ([]Message, error)
	Count(ctx context.Context, sessionID string) (int, error)
}

// TodoStore manages task items.
type TodoStore interface {
	// List returns todos for the session ordered by sort_order then id.
	// An empty sessionID returns only rows without a session.
	List(ctx context.Context, sessionID string) ([]Todo, error)
	Add(ctx context.Context, sessionID, item string) (*Todo, error)
	Update(ctx context.Context, id int64, upd TodoUpdate) error
	// Delete removes one todo; a non-empty sessionID scopes the delete.
	Delete(ctx context.Context, id int64, sessionID string) error
	// Clear removes all todos for the session and reports how many.
	Clear(ctx context.Context, sessionID string) (int64, error)
}

// ArtifactStore manages derived project artifacts with upsert semantics.
type ArtifactStore interface {
	Get(ctx context.Context, sessionID, artifactType string) (*Artifact, error)
	// List returns the session's artifacts, optionally filtered to the given
	// types, in canonical type order.
	List(ctx context.Context, sessionID string, types ...string) ([]Artifact, error)
	Put(ctx context.Context, sessionID, artifactType, content string, metadata map[string]any) (*Artifact, error)
}

// ContextStore manages ingested rule/context rows.
type ContextStore interface {
	Insert(ctx context.Context, sessionID, source, filename, content string) (*ContextRow, error)
	// ListActive returns active rows in insertion order. An empty sessionID
	// returns only the shared (no-session) rows.
	ListActive(ctx context.Context, sessionID string) ([]ContextRow, error)
	Deactivate(ctx context.Context, id int64) error
	// DeactivateBySource deactivates all active rows with the given source in
	// the given scope. Used when re-ingesting the seed rules file.
	DeactivateBySource(ctx context.Context, sessionID, source string) error
}

// SettingStore is a flat key/value table for runtime settings
// (current model, provider selection).
type SettingStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
}
