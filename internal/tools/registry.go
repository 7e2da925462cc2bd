// Package tools implements the closed set of functions the model may call
// during a chat turn. The registry injects the runtime session id, enforces a
// per-call timeout, and converts every failure mode (unknown tool, panic, nil
// result) into an error Result so a tool call can never take down a turn.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nextlevelbuilder/hackhero/internal/artifacts"
	"github.com/nextlevelbuilder/hackhero/internal/providers"
	"github.com/nextlevelbuilder/hackhero/internal/store"
)

// DefaultTimeout bounds a single tool execution.
const DefaultTimeout = 30 * time.Second

// Tool is a single callable function exposed to the model.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON schema of the tool's arguments.
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *Result
}

// Registry holds the registered tools in a fixed order. The set is closed:
// tools are registered at startup and never at runtime.
type Registry struct {
	tools   []Tool
	byName  map[string]Tool
	timeout time.Duration
	log     *slog.Logger
}

func NewRegistry(timeout time.Duration, log *slog.Logger) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		byName:  make(map[string]Tool),
		timeout: timeout,
		log:     log,
	}
}

// NewDefaultRegistry builds the registry with the full tool set in its
// canonical order.
func NewDefaultRegistry(st *store.Stores, svc *artifacts.Service, repoRoot string, timeout time.Duration, log *slog.Logger) *Registry {
	r := NewRegistry(timeout, log)
	r.Register(SessionIDTool{})
	r.Register(&ListTodosTool{todos: st.Todos})
	r.Register(&AddTodoTool{todos: st.Todos})
	r.Register(&ClearTodosTool{todos: st.Todos})
	r.Register(NewListDirectoryTool(repoRoot))
	r.Register(&DeriveIdeaTool{svc: svc})
	r.Register(&TechStackTool{svc: svc})
	r.Register(&SummarizeTool{svc: svc})
	r.Register(&GenerateTitleTool{svc: svc})
	return r
}

// Register adds a tool. A duplicate name replaces the earlier registration.
func (r *Registry) Register(t Tool) {
	if _, exists := r.byName[t.Name()]; !exists {
		r.tools = append(r.tools, t)
	}
	r.byName[t.Name()] = t
}

// Definitions returns the tool schemas in registration order, ready to attach
// to a provider request.
func (r *Registry) Definitions() []providers.ToolDefinition {
	defs := make([]providers.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, providers.ToolDefinition{
			Type: "function",
			Function: providers.ToolFunctionSchema{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for _, t := range r.tools {
		names = append(names, t.Name())
	}
	return names
}

// Execute runs the named tool with the given arguments. The runtime session
// id overrides any session_id the model supplied. Unknown names, panics, and
// nil results all come back as error Results.
func (r *Registry) Execute(ctx context.Context, sessionID, name string, args map[string]interface{}) (result *Result) {
	tool, ok := r.byName[name]
	if !ok {
		return ErrorResult(fmt.Sprintf("Unknown function: %s", name))
	}

	merged := make(map[string]interface{}, len(args)+1)
	for k, v := range args {
		merged[k] = v
	}
	if sessionID != "" {
		merged["session_id"] = sessionID
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("tool panicked", "tool", name, "panic", rec)
			result = ErrorResult(fmt.Sprintf("tool %s failed internally", name))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	result = tool.Execute(ctx, merged)
	if result == nil {
		result = ErrorResult(fmt.Sprintf("tool %s returned no result", name))
	}
	r.log.Debug("tool executed",
		"tool", name, "ok", result.OK, "duration", time.Since(start))
	return result
}
