package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/hackhero/internal/store"
)

// TodoStore implements store.TodoStore backed by Postgres.
type TodoStore struct {
	db *sql.DB
}

func (s *TodoStore) List(ctx context.Context, sessionID string) ([]store.Todo, error) {
	query := `SELECT id, session_id, item, status, priority, sort_order, created_at, updated_at, completed_at
		 FROM todos WHERE session_id IS NULL ORDER BY sort_order ASC, id ASC`
	args := []any{}
	if sessionID != "" {
		query = `SELECT id, session_id, item, status, priority, sort_order, created_at, updated_at, completed_at
		 FROM todos WHERE session_id = $1 ORDER BY sort_order ASC, id ASC`
		args = append(args, sessionID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	var out []store.Todo
	for rows.Next() {
		var t store.Todo
		var sid, completed sql.NullString
		if err := rows.Scan(&t.ID, &sid, &t.Item, &t.Status, &t.Priority, &t.SortOrder, &t.CreatedAt, &t.UpdatedAt, &completed); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		t.SessionID = sid.String
		if completed.Valid {
			t.CompletedAt = &completed.String
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *TodoStore) Add(ctx context.Context, sessionID, item string) (*store.Todo, error) {
	item = strings.TrimSpace(item)
	if item == "" {
		return nil, store.Validationf("empty todo item")
	}
	now := nowUTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add todo: %w", err)
	}
	defer tx.Rollback()

	if sessionID != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chat_sessions (session_id, created_at, updated_at) VALUES ($1, $2, $3)
			 ON CONFLICT (session_id) DO NOTHING`, sessionID, now, now); err != nil {
			return nil, fmt.Errorf("ensure session: %w", err)
		}
	}

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort_order), -1) + 1 FROM todos
		 WHERE ($1 = '' AND session_id IS NULL) OR session_id = $1`, sessionID).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("next sort order: %w", err)
	}

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO todos (session_id, item, status, priority, sort_order, created_at, updated_at)
		 VALUES ($1, $2, $3, 3, $4, $5, $6) RETURNING id`,
		nullStr(sessionID), item, store.StatusPending, next, now, now).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert todo: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add todo: %w", err)
	}

	return &store.Todo{
		ID:        id,
		SessionID: sessionID,
		Item:      item,
		Status:    store.StatusPending,
		Priority:  3,
		SortOrder: next,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *TodoStore) Update(ctx context.Context, id int64, upd store.TodoUpdate) error {
	if upd.IsEmpty() {
		return store.Validationf("no fields to update")
	}
	if upd.Status != nil && !store.ValidStatus(*upd.Status) {
		return store.Validationf("invalid status %q", *upd.Status)
	}
	if upd.Priority != nil && (*upd.Priority < 1 || *upd.Priority > 5) {
		return store.Validationf("priority out of range: %d", *upd.Priority)
	}
	if upd.Item != nil && strings.TrimSpace(*upd.Item) == "" {
		return store.Validationf("empty todo item")
	}

	sets := []string{"updated_at = $1"}
	args := []any{nowUTC()}
	n := 1
	add := func(expr string, v any) {
		n++
		sets = append(sets, fmt.Sprintf(expr, n))
		args = append(args, v)
	}
	if upd.Item != nil {
		add("item = $%d", strings.TrimSpace(*upd.Item))
	}
	if upd.Status != nil {
		add("status = $%d", *upd.Status)
		if *upd.Status == store.StatusDone {
			add("completed_at = $%d", nowUTC())
		} else {
			sets = append(sets, "completed_at = NULL")
		}
	}
	if upd.Priority != nil {
		add("priority = $%d", *upd.Priority)
	}
	if upd.SortOrder != nil {
		add("sort_order = $%d", *upd.SortOrder)
	}

	n++
	query := "UPDATE todos SET " + strings.Join(sets, ", ") + fmt.Sprintf(" WHERE id = $%d", n)
	args = append(args, id)
	if upd.SessionID != nil && *upd.SessionID != "" {
		n++
		query += fmt.Sprintf(" AND session_id = $%d", n)
		args = append(args, *upd.SessionID)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.NotFoundf("todo %d", id)
	}
	return nil
}

func (s *TodoStore) Delete(ctx context.Context, id int64, sessionID string) error {
	query := `DELETE FROM todos WHERE id = $1`
	args := []any{id}
	if sessionID != "" {
		query += ` AND session_id = $2`
		args = append(args, sessionID)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.NotFoundf("todo %d", id)
	}
	return nil
}

func (s *TodoStore) Clear(ctx context.Context, sessionID string) (int64, error) {
	if sessionID == "" {
		return 0, store.Validationf("clear requires a session id")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("clear todos: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
