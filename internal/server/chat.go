package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nextlevelbuilder/hackhero/internal/agent"
)

// handleChatStream runs one chat turn and streams its frames as SSE.
// Validation failures are rejected before the stream opens; anything that
// goes wrong after the first byte is reported inside the stream as an end
// frame by the orchestrator.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	userInput := strings.TrimSpace(r.FormValue("user_input"))
	if userInput == "" {
		writeError(w, http.StatusBadRequest, "user_input is required")
		return
	}

	req := agent.TurnRequest{
		SessionID: strings.TrimSpace(r.FormValue("session_id")),
		UserInput: userInput,
		URLText:   strings.TrimSpace(r.FormValue("url_text")),
	}
	if n, err := strconv.Atoi(r.FormValue("max_tool_rounds")); err == nil && n > 0 {
		req.MaxToolRounds = n
	}
	if n, err := strconv.Atoi(r.FormValue("max_total_tool_calls")); err == nil && n > 0 {
		req.MaxTotalToolCalls = n
	}

	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			f, err := header.Open()
			if err != nil {
				s.log.Warn("chat.upload open failed", "filename", header.Filename, "error", err)
				continue
			}
			// Read one byte past the cap so oversize uploads are still
			// detected and reported by the ingestor.
			data, err := io.ReadAll(io.LimitReader(f, s.cfg.Limits.MaxUploadBytes+1))
			f.Close()
			if err != nil {
				s.log.Warn("chat.upload read failed", "filename", header.Filename, "error", err)
				continue
			}
			req.Files = append(req.Files, agent.UploadedFile{Filename: header.Filename, Data: data})
		}
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	frames := s.agent.Stream(r.Context(), req)
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := sse.Send(frame); err != nil {
				return
			}
		case <-heartbeat.C:
			if err := sse.Ping(); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
