package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nextlevelbuilder/hackhero/internal/store"
)

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	detailed, _ := strconv.ParseBool(r.URL.Query().Get("detailed"))

	rows, err := s.stores.Todos.List(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if detailed {
		writeJSON(w, http.StatusOK, map[string]interface{}{"todos": rows})
		return
	}
	items := make([]string, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.Item)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"todos": items})
}

func (s *Server) handleAddTodo(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	sessionID := r.PostForm.Get("session_id")

	if _, err := s.stores.Todos.Add(r.Context(), sessionID, r.PostForm.Get("item")); err != nil {
		writeDomainError(w, err)
		return
	}

	rows, err := s.stores.Todos.List(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	items := make([]string, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.Item)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "todos": items})
}

func (s *Server) handleClearTodos(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	deleted, err := s.stores.Todos.Clear(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "deleted": deleted})
}

// todoUpdateBody is the JSON fallback shape for PUT /todos/{id} when no form
// fields are sent.
type todoUpdateBody struct {
	Item      *string `json:"item"`
	Status    *string `json:"status"`
	Priority  *int    `json:"priority"`
	SortOrder *int    `json:"sort_order"`
	SessionID *string `json:"session_id"`
}

func (s *Server) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "todoID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid todo id")
		return
	}

	upd, ok := parseTodoUpdate(w, r)
	if !ok {
		return
	}
	if upd.IsEmpty() {
		writeError(w, http.StatusBadRequest, "No fields provided")
		return
	}

	if err := s.stores.Todos.Update(r.Context(), id, upd); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Todo not found")
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// parseTodoUpdate reads update fields from the form, falling back to a JSON
// body when the form carries none of them.
func parseTodoUpdate(w http.ResponseWriter, r *http.Request) (store.TodoUpdate, bool) {
	var upd store.TodoUpdate

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		r.ParseMultipartForm(1 << 20)
	} else if strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		r.ParseForm()
	}

	form := r.PostForm
	if form.Has("item") {
		v := form.Get("item")
		upd.Item = &v
	}
	if form.Has("status") {
		v := form.Get("status")
		upd.Status = &v
	}
	if form.Has("priority") {
		if n, err := strconv.Atoi(form.Get("priority")); err == nil {
			upd.Priority = &n
		} else {
			writeError(w, http.StatusBadRequest, "invalid priority")
			return upd, false
		}
	}
	if form.Has("sort_order") {
		if n, err := strconv.Atoi(form.Get("sort_order")); err == nil {
			upd.SortOrder = &n
		} else {
			writeError(w, http.StatusBadRequest, "invalid sort_order")
			return upd, false
		}
	}
	if form.Has("session_id") {
		v := form.Get("session_id")
		upd.SessionID = &v
	}
	if !upd.IsEmpty() {
		return upd, true
	}

	var body todoUpdateBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		// No form fields and no parseable JSON body; the caller reports
		// the empty update.
		return upd, true
	}
	upd.Item = body.Item
	upd.Status = body.Status
	upd.Priority = body.Priority
	upd.SortOrder = body.SortOrder
	upd.SessionID = body.SessionID
	return upd, true
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "todoID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid todo id")
		return
	}
	sessionID := r.URL.Query().Get("session_id")

	if err := s.stores.Todos.Delete(r.Context(), id, sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Todo not found")
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
