package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/hackhero/internal/store"
)

// ArtifactStore implements store.ArtifactStore on SQLite.
type ArtifactStore struct {
	db *sql.DB
}

func (s *ArtifactStore) Get(ctx context.Context, sessionID, artifactType string) (*store.Artifact, error) {
	if !store.ValidArtifactType(artifactType) {
		return nil, store.Validationf("invalid artifact type %q", artifactType)
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, artifact_type, content, metadata, created_at, updated_at
		 FROM project_artifacts WHERE session_id = ? AND artifact_type = ?`,
		sessionID, artifactType)
	return scanArtifact(row, sessionID, artifactType)
}

func scanArtifact(row *sql.Row, sessionID, artifactType string) (*store.Artifact, error) {
	var a store.Artifact
	var meta sql.NullString
	err := row.Scan(&a.ID, &a.SessionID, &a.Type, &a.Content, &meta, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFoundf("artifact %s/%s", sessionID, artifactType)
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	a.Metadata = unmarshalMeta(meta)
	return &a, nil
}

func (s *ArtifactStore) List(ctx context.Context, sessionID string, types ...string) ([]store.Artifact, error) {
	if len(types) == 0 {
		types = store.ArtifactTypes
	}
	for _, t := range types {
		if !store.ValidArtifactType(t) {
			return nil, store.Validationf("invalid artifact type %q", t)
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(types)), ",")
	args := make([]any, 0, len(types)+1)
	args = append(args, sessionID)
	for _, t := range types {
		args = append(args, t)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, artifact_type, content, metadata, created_at, updated_at
		 FROM project_artifacts
		 WHERE session_id = ? AND artifact_type IN (`+placeholders+`)
		 ORDER BY CASE artifact_type
			WHEN 'project_idea' THEN 0
			WHEN 'tech_stack' THEN 1
			ELSE 2 END`, args...)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []store.Artifact
	for rows.Next() {
		var a store.Artifact
		var meta sql.NullString
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Type, &a.Content, &meta, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.Metadata = unmarshalMeta(meta)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *ArtifactStore) Put(ctx context.Context, sessionID, artifactType, content string, metadata map[string]any) (*store.Artifact, error) {
	if sessionID == "" {
		return nil, store.Validationf("empty session id")
	}
	if !store.ValidArtifactType(artifactType) {
		return nil, store.Validationf("invalid artifact type %q", artifactType)
	}
	meta, err := marshalMeta(metadata)
	if err != nil {
		return nil, err
	}
	now := nowUTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO project_artifacts (session_id, artifact_type, content, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (session_id, artifact_type)
		 DO UPDATE SET content = excluded.content, metadata = excluded.metadata, updated_at = excluded.updated_at`,
		sessionID, artifactType, content, meta, now, now)
	if err != nil {
		return nil, fmt.Errorf("put artifact: %w", err)
	}
	return s.Get(ctx, sessionID, artifactType)
}
