package tools

import (
	"context"

	"github.com/nextlevelbuilder/hackhero/internal/artifacts"
)

// GenerateTitleTool names the chat session from its history.
type GenerateTitleTool struct {
	svc *artifacts.Service
}

func (t *GenerateTitleTool) Name() string { return "generate_chat_title" }

func (t *GenerateTitleTool) Description() string {
	return "Generate and persist a short descriptive title for the chat session."
}

func (t *GenerateTitleTool) Parameters() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"session_id": map[string]interface{}{
			"type":        "string",
			"description": "Chat session id",
		},
		"force": map[string]interface{}{
			"type":        "boolean",
			"description": "Regenerate even if a title exists",
		},
	}, []string{"session_id"})
}

func (t *GenerateTitleTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	res, err := t.svc.GenerateTitle(ctx, stringArg(args, "session_id"), boolArg(args, "force"))
	if err != nil {
		return ErrorResult(err.Error())
	}
	if res.Skipped {
		return NewResult(map[string]interface{}{"title": res.Title, "skipped": true})
	}
	return NewResult(map[string]interface{}{"title": res.Title, "llm_used": res.LLMUsed})
}
