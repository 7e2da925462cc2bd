package tools

import (
	"context"
	"testing"

	"github.com/nextlevelbuilder/hackhero/internal/store/storetest"
)

// TestTodoTools runs the three todo tools against a real store through the
// registry, so the session id flows the way it does in a live turn.
func TestTodoTools(t *testing.T) {
	ctx := context.Background()
	st := storetest.Open(t)
	r := NewRegistry(0, nil)
	r.Register(&ListTodosTool{todos: st.Todos})
	r.Register(&AddTodoTool{todos: st.Todos})
	r.Register(&ClearTodosTool{todos: st.Todos})

	res := r.Execute(ctx, "s1", "add_todo", map[string]interface{}{"item": "   "})
	if res.OK || res.Error != "item is required" {
		t.Errorf("blank item result = %+v", res)
	}

	res = r.Execute(ctx, "s1", "add_todo", map[string]interface{}{"item": "write pitch"})
	if !res.OK || res.Fields["count"] != 1 {
		t.Fatalf("first add = %+v", res)
	}
	res = r.Execute(ctx, "s1", "add_todo", map[string]interface{}{"item": "record demo"})
	if !res.OK || res.Fields["count"] != 2 {
		t.Fatalf("second add = %+v", res)
	}

	res = r.Execute(ctx, "s1", "list_todos", nil)
	if !res.OK {
		t.Fatalf("list = %+v", res)
	}
	items := res.Fields["todos"].([]string)
	if len(items) != 2 || items[0] != "write pitch" || items[1] != "record demo" {
		t.Errorf("todos = %v", items)
	}

	// Another session sees nothing.
	res = r.Execute(ctx, "s2", "list_todos", nil)
	if !res.OK || len(res.Fields["todos"].([]string)) != 0 {
		t.Errorf("cross-session list = %+v", res)
	}

	res = r.Execute(ctx, "s1", "clear_todos", nil)
	if !res.OK || res.Fields["deleted"] != int64(2) {
		t.Errorf("clear = %+v", res)
	}

	// Without a session there is nothing to clear.
	res = r.Execute(ctx, "", "clear_todos", nil)
	if !res.OK || res.Fields["deleted"] != 0 {
		t.Errorf("sessionless clear = %+v", res)
	}
}

// TestSessionIDTool verifies the injected id is echoed back and that the
// tool refuses to answer without one.
func TestSessionIDTool(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(0, nil)
	r.Register(SessionIDTool{})

	res := r.Execute(ctx, "s-42", "get_session_id", nil)
	if !res.OK || res.Fields["session_id"] != "s-42" {
		t.Errorf("result = %+v", res)
	}

	res = r.Execute(ctx, "", "get_session_id", nil)
	if res.OK || res.Error != "No active session" {
		t.Errorf("sessionless result = %+v", res)
	}
}
