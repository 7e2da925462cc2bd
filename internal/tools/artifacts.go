package tools

import (
	"context"

	"github.com/nextlevelbuilder/hackhero/internal/artifacts"
)

// sessionIDParams is the schema shared by the artifact derivation tools.
func sessionIDParams() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"session_id": map[string]interface{}{
			"type":        "string",
			"description": "Chat session id",
		},
	}, []string{"session_id"})
}

// DeriveIdeaTool derives a project idea from the chat history and stores it
// as the session's project_idea artifact.
type DeriveIdeaTool struct {
	svc *artifacts.Service
}

func (t *DeriveIdeaTool) Name() string { return "derive_project_idea" }

func (t *DeriveIdeaTool) Description() string {
	return "Analyze the chat history and derive a concise hackathon project idea, then store it for the session."
}

func (t *DeriveIdeaTool) Parameters() map[string]interface{} { return sessionIDParams() }

func (t *DeriveIdeaTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	res, err := t.svc.DeriveProjectIdea(ctx, stringArg(args, "session_id"))
	if err != nil {
		return ErrorResult(err.Error())
	}
	return NewResult(map[string]interface{}{
		"project_idea":      res.ProjectIdea,
		"keywords":          res.Keywords,
		"based_on_messages": res.BasedOnMessages,
	})
}

// TechStackTool infers a recommended tech stack and stores it as the
// session's tech_stack artifact.
type TechStackTool struct {
	svc *artifacts.Service
}

func (t *TechStackTool) Name() string { return "create_tech_stack" }

func (t *TechStackTool) Description() string {
	return "Infer a recommended tech stack from the chat history and store it for the session."
}

func (t *TechStackTool) Parameters() map[string]interface{} { return sessionIDParams() }

func (t *TechStackTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	res, err := t.svc.CreateTechStack(ctx, stringArg(args, "session_id"))
	if err != nil {
		return ErrorResult(err.Error())
	}
	return NewResult(map[string]interface{}{
		"tech_stack":        res.TechStack,
		"technologies":      res.Technologies,
		"based_on_messages": res.BasedOnMessages,
	})
}

// SummarizeTool produces a submission-ready summary and stores it as the
// session's submission_summary artifact.
type SummarizeTool struct {
	svc *artifacts.Service
}

func (t *SummarizeTool) Name() string { return "summarize_chat_history" }

func (t *SummarizeTool) Description() string {
	return "Summarize the chat history into a submission-ready project summary and store it for the session."
}

func (t *SummarizeTool) Parameters() map[string]interface{} { return sessionIDParams() }

func (t *SummarizeTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	res, err := t.svc.SummarizeChatHistory(ctx, stringArg(args, "session_id"))
	if err != nil {
		return ErrorResult(err.Error())
	}
	return NewResult(map[string]interface{}{
		"submission_summary": res.SubmissionSummary,
		"statistics":         res.Statistics,
	})
}
