// Package export assembles the downloadable submission pack for a session.
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/hackhero/internal/providers"
	"github.com/nextlevelbuilder/hackhero/internal/store"
)

// Stub texts used when an artifact was never generated.
const (
	ideaStub    = "No project idea generated yet. Use the dashboard to generate one."
	stackStub   = "No tech stack generated yet. Use the dashboard to generate one."
	summaryStub = "No submission summary generated yet. Use the dashboard to generate one."
	rulesStub   = "No rules/context available."
)

// ErrNoArtifacts is returned when the session has no non-empty artifact at
// all; exporting a pack of nothing but stubs is refused.
var ErrNoArtifacts = store.NotFoundf("no artifacts generated yet for this session")

// Service builds submission packs.
type Service struct {
	stores   *store.Stores
	provider *providers.Manager
}

func NewService(st *store.Stores, provider *providers.Manager) *Service {
	return &Service{stores: st, provider: provider}
}

// Filename returns the download name for a session's pack.
func Filename(sessionID string) string {
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("submission_pack_%s.zip", short)
}

type packEntry struct {
	name string
	data []byte
}

type todoEntry struct {
	ID          int64   `json:"id"`
	Item        string  `json:"item"`
	Status      string  `json:"status"`
	Priority    int     `json:"priority"`
	SortOrder   int     `json:"sort_order"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
	CompletedAt *string `json:"completed_at"`
}

type sessionMetadata struct {
	SessionID    string  `json:"session_id"`
	Title        *string `json:"title"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
	MessageCount int     `json:"message_count"`
	ModelID      string  `json:"model_id"`
	ExportedAt   string  `json:"exported_at"`
}

// Pack builds the archive. Identical session state yields byte-identical
// output: fixed entry order, zeroed timestamps, and exported_at derived from
// the session's updated_at rather than the wall clock.
func (s *Service) Pack(ctx context.Context, sessionID string) ([]byte, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, store.Validationf("session_id is required")
	}
	session, err := s.stores.Sessions.Upsert(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	arts, err := s.stores.Artifacts.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	byType := make(map[string]string, len(arts))
	for _, a := range arts {
		byType[a.Type] = strings.TrimSpace(a.Content)
	}
	if byType[store.ArtifactProjectIdea] == "" &&
		byType[store.ArtifactTechStack] == "" &&
		byType[store.ArtifactSubmissionSummary] == "" {
		return nil, ErrNoArtifacts
	}

	todos, err := s.stores.Todos.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rules, err := s.stores.Context.ListActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	messageCount, err := s.stores.Messages.Count(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	todoEntries := make([]todoEntry, 0, len(todos))
	for _, t := range todos {
		todoEntries = append(todoEntries, todoEntry{
			ID:          t.ID,
			Item:        t.Item,
			Status:      t.Status,
			Priority:    t.Priority,
			SortOrder:   t.SortOrder,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
			CompletedAt: t.CompletedAt,
		})
	}
	todosJSON, err := json.MarshalIndent(todoEntries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode todos: %w", err)
	}

	var title *string
	if session.Title != "" {
		title = &session.Title
	}
	metaJSON, err := json.MarshalIndent(sessionMetadata{
		SessionID:    session.SessionID,
		Title:        title,
		CreatedAt:    session.CreatedAt,
		UpdatedAt:    session.UpdatedAt,
		MessageCount: messageCount,
		ModelID:      s.provider.Model(),
		ExportedAt:   session.UpdatedAt,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	entries := []packEntry{
		{"idea.md", mdBytes(orStub(byType[store.ArtifactProjectIdea], ideaStub))},
		{"tech_stack.md", mdBytes(orStub(byType[store.ArtifactTechStack], stackStub))},
		{"summary.md", mdBytes(orStub(byType[store.ArtifactSubmissionSummary], summaryStub))},
		{"todos.json", todosJSON},
		{"rules_ingested.txt", []byte(rulesText(rules))},
		{"session_metadata.json", metaJSON},
	}
	return writeZip(entries)
}

func orStub(content, stub string) string {
	if content == "" {
		return stub
	}
	return content
}

func mdBytes(text string) []byte {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return []byte(text)
}

// rulesText joins the session's active context rows, two blank lines apart.
func rulesText(rows []store.ContextRow) string {
	if len(rows) == 0 {
		return rulesStub
	}
	parts := make([]string, 0, len(rows))
	for _, r := range rows {
		parts = append(parts, strings.TrimSpace(r.Content))
	}
	return strings.Join(parts, "\n\n\n")
}

func writeZip(entries []packEntry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		// Modified stays the zero time so no timestamp reaches the archive.
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, fmt.Errorf("write %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
