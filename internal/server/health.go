package server

import "net/http"

// handleHealth probes the store. A failing database reports degraded with a
// 503 so process supervisors and the health subcommand can act on it.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.stores.Sessions.List(r.Context(), 1, 0); err != nil {
		s.log.Warn("health check store probe failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
