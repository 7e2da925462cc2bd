package tools

import (
	"context"
	"strings"

	"github.com/nextlevelbuilder/hackhero/internal/store"
)

// ListTodosTool lists the session's to-do items as plain strings.
type ListTodosTool struct {
	todos store.TodoStore
}

func (t *ListTodosTool) Name() string { return "list_todos" }

func (t *ListTodosTool) Description() string {
	return "List the current to-do items maintained by the agent."
}

func (t *ListTodosTool) Parameters() map[string]interface{} {
	return objectSchema(nil, nil)
}

func (t *ListTodosTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	todos, err := t.todos.List(ctx, stringArg(args, "session_id"))
	if err != nil {
		return ErrorResult(err.Error())
	}
	items := make([]string, 0, len(todos))
	for _, td := range todos {
		items = append(items, td.Item)
	}
	return NewResult(map[string]interface{}{"todos": items})
}

// AddTodoTool appends one item to the session's to-do list.
type AddTodoTool struct {
	todos store.TodoStore
}

func (t *AddTodoTool) Name() string { return "add_todo" }

func (t *AddTodoTool) Description() string {
	return "Add a new item to the agent to-do list. ONLY add if the user asks for it."
}

func (t *AddTodoTool) Parameters() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"item": map[string]interface{}{
			"type":        "string",
			"description": "The to-do item text",
		},
	}, []string{"item"})
}

func (t *AddTodoTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	item := strings.TrimSpace(stringArg(args, "item"))
	if item == "" {
		return ErrorResult("item is required")
	}
	sessionID := stringArg(args, "session_id")
	if _, err := t.todos.Add(ctx, sessionID, item); err != nil {
		return ErrorResult(err.Error())
	}
	todos, err := t.todos.List(ctx, sessionID)
	if err != nil {
		return ErrorResult(err.Error())
	}
	return NewResult(map[string]interface{}{"count": len(todos)})
}

// ClearTodosTool removes every to-do in the session.
type ClearTodosTool struct {
	todos store.TodoStore
}

func (t *ClearTodosTool) Name() string { return "clear_todos" }

func (t *ClearTodosTool) Description() string {
	return "Clear all items from the current chat session to-do list."
}

func (t *ClearTodosTool) Parameters() map[string]interface{} {
	return objectSchema(nil, nil)
}

func (t *ClearTodosTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	sessionID := stringArg(args, "session_id")
	if sessionID == "" {
		// Nothing is scoped to a missing session.
		return NewResult(map[string]interface{}{"deleted": 0})
	}
	deleted, err := t.todos.Clear(ctx, sessionID)
	if err != nil {
		return ErrorResult(err.Error())
	}
	return NewResult(map[string]interface{}{"deleted": deleted})
}
