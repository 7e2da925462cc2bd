package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/nextlevelbuilder/hackhero/internal/store"
)

// handleProviderStatus reports connectivity and the available models of the
// active provider. A dead endpoint still answers 200 with connected false so
// the dashboard can render the state.
func (s *Server) handleProviderStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.provider.Status(r.Context()))
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"model":    s.provider.Model(),
		"provider": s.provider.Kind(),
		"base_url": s.provider.BaseURL(),
	})
}

func (s *Server) handleSetModel(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	model := strings.TrimSpace(r.PostForm.Get("model"))

	if err := s.provider.SetModel(r.Context(), model); err != nil {
		if errors.Is(err, store.ErrValidation) {
			writeError(w, http.StatusBadRequest, "Invalid model")
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "model": model})
}

func (s *Server) handleGetProvider(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"provider": s.provider.Kind(),
		"base_url": s.provider.BaseURL(),
		"model":    s.provider.Model(),
	})
}

func (s *Server) handleSetProvider(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	kind := strings.TrimSpace(r.PostForm.Get("provider"))
	baseURL := strings.TrimSpace(r.PostForm.Get("base_url"))

	if err := s.provider.SetProvider(r.Context(), kind, baseURL); err != nil {
		if errors.Is(err, store.ErrValidation) {
			writeError(w, http.StatusBadRequest, "Invalid provider")
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"provider": s.provider.Kind(),
		"base_url": s.provider.BaseURL(),
	})
}
