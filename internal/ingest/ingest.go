// Package ingest converts pasted text, uploaded files, and fetched URLs
// into active context rows and keeps the retrieval index in sync.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nextlevelbuilder/hackhero/internal/store"
)

// Rebuilder receives invalidation notices after the active context set
// changes.
type Rebuilder interface {
	RequestRebuild(sessionID string)
}

// Service is the single entry point for adding context. Every successful
// write triggers an index rebuild for the affected session slot; failures
// leave the store untouched.
type Service struct {
	contexts  store.ContextStore
	sessions  store.SessionStore
	fetcher   *Fetcher
	extractor Extractor
	index     Rebuilder
	maxUpload int64
	log       *slog.Logger
}

func NewService(st *store.Stores, fetcher *Fetcher, extractor Extractor, index Rebuilder, maxUpload int64, log *slog.Logger) *Service {
	if extractor == nil {
		extractor = PlainTextExtractor{}
	}
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		contexts:  st.Context,
		sessions:  st.Sessions,
		fetcher:   fetcher,
		extractor: extractor,
		index:     index,
		maxUpload: maxUpload,
		log:       log,
	}
}

// AddText stores pasted text as an active context row. Text that starts
// with an http(s) scheme is treated as a URL and fetched instead.
func (s *Service) AddText(ctx context.Context, sessionID, text string) (*store.ContextRow, error) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return nil, store.Validationf("empty text")
	}
	if strings.HasPrefix(cleaned, "http://") || strings.HasPrefix(cleaned, "https://") {
		return s.AddURL(ctx, sessionID, cleaned)
	}
	return s.insert(ctx, sessionID, store.SourceText, "", cleaned)
}

// AddURL fetches the URL under the hardening rules and stores the wrapped
// body. Nothing is written when the fetch fails.
func (s *Service) AddURL(ctx context.Context, sessionID, rawURL string) (*store.ContextRow, error) {
	text, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		s.log.Warn("url ingest rejected", "url", rawURL, "kind", Kind(err), "error", err)
		return nil, err
	}
	block := fmt.Sprintf("[URL:%s]\n%s\n[/URL]", rawURL, strings.TrimSpace(text))
	return s.insert(ctx, sessionID, store.SourceURL, rawURL, block)
}

// AddFile extracts text from an uploaded file and stores it with the
// filename preserved.
func (s *Service) AddFile(ctx context.Context, sessionID, filename string, data []byte) (*store.ContextRow, error) {
	if int64(len(data)) > s.maxUpload {
		return nil, Oversizef("file %s: %d bytes exceeds %d byte cap", filename, len(data), s.maxUpload)
	}
	text, err := s.extractor.Extract(filename, data)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, store.Validationf("file %s: no text content", filename)
	}
	return s.insert(ctx, sessionID, store.SourceFile, filename, text)
}

// SeedRules loads the rules file into the shared (no-session) context slot,
// replacing any prior seed rows. A missing or empty file is skipped so a
// fresh checkout starts clean.
func (s *Service) SeedRules(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Info("rules file absent, skipping seed", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read rules file: %w", err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		s.log.Info("rules file empty, skipping seed", "path", path)
		return nil
	}
	if err := s.contexts.DeactivateBySource(ctx, "", store.SourceInitial); err != nil {
		return fmt.Errorf("deactivate prior seed rows: %w", err)
	}
	if _, err := s.contexts.Insert(ctx, "", store.SourceInitial, filepath.Base(path), content); err != nil {
		return fmt.Errorf("insert seed row: %w", err)
	}
	s.index.RequestRebuild("")
	s.log.Info("rules file seeded", "path", path, "bytes", len(content))
	return nil
}

func (s *Service) insert(ctx context.Context, sessionID, source, filename, content string) (*store.ContextRow, error) {
	if sessionID != "" {
		if _, err := s.sessions.Upsert(ctx, sessionID); err != nil {
			return nil, err
		}
	}
	row, err := s.contexts.Insert(ctx, sessionID, source, filename, content)
	if err != nil {
		return nil, err
	}
	s.index.RequestRebuild(sessionID)
	s.log.Info("context ingested", "source", source, "session_id", sessionID, "row_id", row.ID, "bytes", len(content))
	return row, nil
}
