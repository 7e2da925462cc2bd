package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/nextlevelbuilder/hackhero/internal/rag"
)

// handleUploadRules ingests an uploaded rules document and rebuilds the
// session's retrieval index.
func (s *Server) handleUploadRules(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	sessionID := strings.TrimSpace(r.PostForm.Get("session_id"))

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.Limits.MaxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	if _, err := s.ingestor.AddFile(r.Context(), sessionID, header.Filename, data); err != nil {
		writeDomainError(w, err)
		return
	}

	status := s.retrieval.Status(r.Context(), sessionID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "chunks": status.NChunks})
}

// handleAddText ingests pasted text, or fetches the page when the text is a
// bare URL.
func (s *Server) handleAddText(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form data")
			return
		}
	}
	sessionID := strings.TrimSpace(r.PostForm.Get("session_id"))
	text := strings.TrimSpace(r.PostForm.Get("text"))
	if text == "" {
		writeError(w, http.StatusBadRequest, "Empty text")
		return
	}

	var err error
	if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
		_, err = s.ingestor.AddURL(r.Context(), sessionID, text)
	} else {
		_, err = s.ingestor.AddText(r.Context(), sessionID, text)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := s.retrieval.Status(r.Context(), sessionID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "chunks": status.NChunks})
}

type contextStatusResponse struct {
	SessionID string `json:"session_id"`
	rag.StatusInfo
}

// handleContextStatus reports the retrieval index state for the session.
// Asking for the status of a stale index kicks off a rebuild, so the
// response may report building rather than empty.
func (s *Server) handleContextStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	writeJSON(w, http.StatusOK, contextStatusResponse{
		SessionID:  sessionID,
		StatusInfo: s.retrieval.Status(r.Context(), sessionID),
	})
}

// handleContextList returns the active context rows for the session.
func (s *Server) handleContextList(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	rows, err := s.stores.Context.ListActive(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	status := s.retrieval.Status(r.Context(), sessionID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":  rows,
		"chunks": status.NChunks,
	})
}
