package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nextlevelbuilder/hackhero/internal/export"
)

const noArtifactsMessage = "No artifacts generated yet for this session. " +
	"Use the dashboard to generate Project Idea, Tech Stack, or Submission Notes, then export again."

// handleExport builds the submission pack zip and serves it as a download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.FormValue("session_id"))
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	data, err := s.exporter.Pack(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, export.ErrNoArtifacts) {
			writeError(w, http.StatusNotFound, noArtifactsMessage)
			return
		}
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, export.Filename(sessionID)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
