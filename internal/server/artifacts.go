package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nextlevelbuilder/hackhero/internal/artifacts"
	"github.com/nextlevelbuilder/hackhero/internal/store"
	"github.com/nextlevelbuilder/hackhero/pkg/protocol"
)

const noHistoryMessage = "No chat history found for this session"

func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	rows, err := s.stores.Artifacts.List(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"artifacts": rows})
}

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	artifactType := chi.URLParam(r, "artifactType")

	// An unknown type is indistinguishable from a missing artifact to the
	// dashboard, so both read as not found.
	if !store.ValidArtifactType(artifactType) {
		writeError(w, http.StatusNotFound, "Artifact not found")
		return
	}
	art, err := s.stores.Artifacts.Get(r.Context(), sessionID, artifactType)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Artifact not found")
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"artifact": art})
}

func (s *Server) handleDeriveIdea(w http.ResponseWriter, r *http.Request) {
	s.deriveArtifact(w, r,
		func(ctx context.Context, sid string) (interface{}, error) {
			return s.artifacts.DeriveProjectIdea(ctx, sid)
		},
		s.artifacts.DeriveProjectIdeaStream)
}

func (s *Server) handleCreateTechStack(w http.ResponseWriter, r *http.Request) {
	s.deriveArtifact(w, r,
		func(ctx context.Context, sid string) (interface{}, error) {
			return s.artifacts.CreateTechStack(ctx, sid)
		},
		s.artifacts.CreateTechStackStream)
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	s.deriveArtifact(w, r,
		func(ctx context.Context, sid string) (interface{}, error) {
			return s.artifacts.SummarizeChatHistory(ctx, sid)
		},
		s.artifacts.SummarizeChatHistoryStream)
}

// deriveArtifact runs one derivation either as a plain JSON response or, with
// ?stream=true, as an SSE token stream closed by an end frame. The empty
// history case is rejected before the stream opens.
func (s *Server) deriveArtifact(w http.ResponseWriter, r *http.Request,
	derive func(context.Context, string) (interface{}, error),
	stream func(context.Context, string, func(string)) (string, error),
) {
	sessionID := chi.URLParam(r, "sessionID")
	wantStream, _ := strconv.ParseBool(r.URL.Query().Get("stream"))

	if !wantStream {
		result, err := derive(r.Context(), sessionID)
		if err != nil {
			if errors.Is(err, artifacts.ErrNoHistory) {
				writeError(w, http.StatusBadRequest, noHistoryMessage)
				return
			}
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	count, err := s.stores.Messages.Count(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if count == 0 {
		writeError(w, http.StatusBadRequest, noHistoryMessage)
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	if _, err := stream(ctx, sessionID, func(token string) {
		if err := sse.Send(protocol.NewToken(token)); err != nil {
			cancel()
		}
	}); err != nil {
		s.log.Warn("artifact stream failed", "session_id", sessionID, "error", err)
	}
	sse.Send(map[string]string{"type": "end"})
}
