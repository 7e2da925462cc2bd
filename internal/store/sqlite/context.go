package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/hackhero/internal/store"
)

// ContextStore implements store.ContextStore on SQLite.
type ContextStore struct {
	db *sql.DB
}

func (s *ContextStore) Insert(ctx context.Context, sessionID, source, filename, content string) (*store.ContextRow, error) {
	if !store.ValidSource(source) {
		return nil, store.Validationf("invalid context source %q", source)
	}
	if strings.TrimSpace(content) == "" {
		return nil, store.Validationf("empty context content")
	}
	now := nowUTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert context: %w", err)
	}
	defer tx.Rollback()

	if sessionID != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chat_sessions (session_id, created_at, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT (session_id) DO NOTHING`, sessionID, now, now); err != nil {
			return nil, fmt.Errorf("ensure session: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO rule_context (session_id, source, filename, content, active, created_at)
		 VALUES (?, ?, ?, ?, 1, ?)`,
		nullStr(sessionID), source, nullStr(filename), content, now)
	if err != nil {
		return nil, fmt.Errorf("insert context: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("context id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert context: %w", err)
	}

	return &store.ContextRow{
		ID:        id,
		SessionID: sessionID,
		Source:    source,
		Filename:  filename,
		Content:   content,
		Active:    true,
		CreatedAt: now,
	}, nil
}

func (s *ContextStore) ListActive(ctx context.Context, sessionID string) ([]store.ContextRow, error) {
	query := `SELECT id, session_id, source, filename, content, active, created_at
		 FROM rule_context WHERE active = 1 AND session_id IS NULL ORDER BY id ASC`
	args := []any{}
	if sessionID != "" {
		query = `SELECT id, session_id, source, filename, content, active, created_at
		 FROM rule_context WHERE active = 1 AND session_id = ? ORDER BY id ASC`
		args = append(args, sessionID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list context: %w", err)
	}
	defer rows.Close()

	var out []store.ContextRow
	for rows.Next() {
		var r store.ContextRow
		var sid, fname sql.NullString
		if err := rows.Scan(&r.ID, &sid, &r.Source, &fname, &r.Content, &r.Active, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan context row: %w", err)
		}
		r.SessionID = sid.String
		r.Filename = fname.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *ContextStore) Deactivate(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE rule_context SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate context: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.NotFoundf("context row %d", id)
	}
	return nil
}

func (s *ContextStore) DeactivateBySource(ctx context.Context, sessionID, source string) error {
	query := `UPDATE rule_context SET active = 0 WHERE source = ? AND session_id IS NULL`
	args := []any{source}
	if sessionID != "" {
		query = `UPDATE rule_context SET active = 0 WHERE source = ? AND session_id = ?`
		args = append(args, sessionID)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deactivate by source: %w", err)
	}
	return nil
}
