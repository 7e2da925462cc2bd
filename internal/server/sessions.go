package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nextlevelbuilder/hackhero/internal/store"
	"github.com/nextlevelbuilder/hackhero/internal/textutil"
)

// queryInt reads an integer query parameter, clamped to [min, max].
// Missing or unparseable values return def.
func queryInt(r *http.Request, name string, def, min, max int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20, 1, 100)
	offset := queryInt(r, "offset", 0, 0, 1<<30)

	// Fetch through the requested page and slice, so total_fetched tells the
	// client whether another page exists.
	full, err := s.stores.Sessions.List(r.Context(), limit+offset, 0)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	page := []store.Session{}
	if offset < len(full) {
		end := offset + limit
		if end > len(full) {
			end = len(full)
		}
		page = full[offset:end]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions":      page,
		"total_fetched": len(full),
		"offset":        offset,
		"limit":         limit,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := s.stores.Sessions.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeDomainError(w, err)
		return
	}

	total, err := s.stores.Messages.Count(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	limit := 0
	offset := 0
	if r.URL.Query().Get("limit") != "" {
		limit = queryInt(r, "limit", 0, 1, 1000)
		offset = queryInt(r, "offset", 0, 0, 1<<30)
	}

	messages, err := s.stores.Messages.List(r.Context(), sessionID, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// Inline context blocks are plumbing for the model, not transcript.
	for i := range messages {
		messages[i].Content = textutil.StripContextBlocks(messages[i].Content)
	}

	respLimit := limit
	if respLimit == 0 {
		respLimit = total
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session":        session,
		"messages":       messages,
		"total_messages": total,
		"offset":         offset,
		"limit":          respLimit,
	})
}

func (s *Server) handleUpdateTitle(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	title := strings.TrimSpace(r.PostForm.Get("title"))
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	if err := s.stores.Sessions.UpdateTitle(r.Context(), sessionID, title); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.stores.Sessions.Delete(r.Context(), sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
