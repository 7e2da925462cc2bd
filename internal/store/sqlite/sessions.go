package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nextlevelbuilder/hackhero/internal/store"
)

// SessionStore implements store.SessionStore on SQLite.
type SessionStore struct {
	db *sql.DB
}

func (s *SessionStore) Upsert(ctx context.Context, sessionID string) (*store.Session, error) {
	if sessionID == "" {
		return nil, store.Validationf("empty session id")
	}
	now := nowUTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (session_id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (session_id) DO NOTHING`,
		sessionID, now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert session: %w", err)
	}
	return s.Get(ctx, sessionID)
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*store.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, COALESCE(title, ''), created_at, updated_at
		 FROM chat_sessions WHERE session_id = ?`, sessionID)

	var sess store.Session
	err := row.Scan(&sess.ID, &sess.SessionID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFoundf("session %s", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

func (s *SessionStore) List(ctx context.Context, limit, offset int) ([]store.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.session_id, COALESCE(s.title, ''), s.created_at, s.updated_at, COUNT(m.id)
		 FROM chat_sessions s
		 LEFT JOIN chat_messages m ON m.session_id = s.session_id
		 GROUP BY s.id
		 ORDER BY s.updated_at DESC, s.id DESC
		 LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []store.Session
	for rows.Next() {
		var sess store.Session
		if err := rows.Scan(&sess.ID, &sess.SessionID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt, &sess.MessageCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SessionStore) UpdateTitle(ctx context.Context, sessionID, title string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET title = ?, updated_at = ? WHERE session_id = ?`,
		title, nowUTC(), sessionID)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.NotFoundf("session %s", sessionID)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.NotFoundf("session %s", sessionID)
	}

	// Messages go via the FK cascade; these tables have no FK because their
	// session_id is nullable.
	for _, q := range []string{
		`DELETE FROM todos WHERE session_id = ?`,
		`DELETE FROM project_artifacts WHERE session_id = ?`,
		`DELETE FROM rule_context WHERE session_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, sessionID); err != nil {
			return fmt.Errorf("delete session rows: %w", err)
		}
	}
	return tx.Commit()
}

// MessageStore implements store.MessageStore on SQLite.
type MessageStore struct {
	db *sql.DB
}

func (s *MessageStore) Append(ctx context.Context, sessionID, role, content string, metadata map[string]any) (*store.Message, error) {
	if sessionID == "" {
		return nil, store.Validationf("empty session id")
	}
	if !store.ValidRole(role) {
		return nil, store.Validationf("invalid role %q", role)
	}
	meta, err := marshalMeta(metadata)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	now := nowUTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chat_sessions (session_id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (session_id) DO NOTHING`, sessionID, now, now); err != nil {
		return nil, fmt.Errorf("ensure session: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO chat_messages (session_id, role, content, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?)`, sessionID, role, content, meta, now)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("message id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = ? WHERE session_id = ?`, now, sessionID); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit append: %w", err)
	}

	return &store.Message{
		ID:        id,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: now,
	}, nil
}

func (s *MessageStore) List(ctx context.Context, sessionID string, limit, offset int) ([]store.Message, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, metadata, created_at
		 FROM chat_messages WHERE session_id = ?
		 ORDER BY created_at ASC, id ASC
		 LIMIT ? OFFSET ?`, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []store.Message
	for rows.Next() {
		var m store.Message
		var meta sql.NullString
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &meta, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Metadata = unmarshalMeta(meta)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *MessageStore) Count(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_messages WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}
