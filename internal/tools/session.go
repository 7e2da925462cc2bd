package tools

import "context"

// SessionIDTool reports the active session id. The registry injects the real
// id before execution, so the model can always recover it without asking.
type SessionIDTool struct{}

func (SessionIDTool) Name() string { return "get_session_id" }

func (SessionIDTool) Description() string {
	return "Return the active chat session_id so the model never needs to ask the user."
}

func (SessionIDTool) Parameters() map[string]interface{} {
	return objectSchema(nil, nil)
}

func (SessionIDTool) Execute(_ context.Context, args map[string]interface{}) *Result {
	sessionID := stringArg(args, "session_id")
	if sessionID == "" {
		return ErrorResult("No active session")
	}
	return NewResult(map[string]interface{}{"session_id": sessionID})
}
