// Package artifacts derives project artifacts (idea, tech stack, submission
// summary) and chat titles from session history. Every derivation asks the
// provider once with tools disabled, then falls back to a deterministic
// rule-based result when the model is unreachable or returns nothing, so the
// dashboard keeps working fully offline.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nextlevelbuilder/hackhero/internal/providers"
	"github.com/nextlevelbuilder/hackhero/internal/store"
)

const (
	// deriveHistoryLimit bounds how much history idea/stack derivation reads.
	deriveHistoryLimit = 50
	// titleHistoryLimit bounds how much history title generation reads.
	titleHistoryLimit = 40
	// seedTail is how many messages are replayed verbatim after the system
	// prompt for idea and stack derivation.
	seedTail = 20
)

// Service derives artifacts and titles for chat sessions.
type Service struct {
	stores   *store.Stores
	provider *providers.Manager
	log      *slog.Logger
}

func NewService(st *store.Stores, provider *providers.Manager, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{stores: st, provider: provider, log: log}
}

// IdeaResult is the outcome of a project idea derivation.
type IdeaResult struct {
	ProjectIdea     string   `json:"project_idea"`
	Keywords        []string `json:"keywords"`
	BasedOnMessages int      `json:"based_on_messages"`
}

// StackResult is the outcome of a tech stack derivation.
type StackResult struct {
	TechStack       string              `json:"tech_stack"`
	Technologies    map[string][]string `json:"technologies"`
	BasedOnMessages int                 `json:"based_on_messages"`
}

// SummaryResult is the outcome of a submission summary derivation.
type SummaryResult struct {
	SubmissionSummary string     `json:"submission_summary"`
	Statistics        Statistics `json:"statistics"`
}

// Statistics summarizes session state alongside a submission summary.
type Statistics struct {
	TotalMessages     int `json:"total_messages"`
	UserMessages      int `json:"user_messages"`
	AssistantMessages int `json:"assistant_messages"`
	CurrentTodos      int `json:"current_todos"`
}

// TitleResult is the outcome of a title generation.
type TitleResult struct {
	Title   string `json:"title"`
	Skipped bool   `json:"skipped,omitempty"`
	LLMUsed bool   `json:"llm_used"`
}

// DeriveProjectIdea derives and stores the project_idea artifact.
func (s *Service) DeriveProjectIdea(ctx context.Context, sessionID string) (*IdeaResult, error) {
	messages, err := s.history(ctx, sessionID, deriveHistoryLimit)
	if err != nil {
		return nil, err
	}

	prompt := projectIdeaUserPrompt(conversationSnippets(messages, seedTail))
	llmText := s.askOnce(ctx, seedMessages(projectIdeaSystemPrompt, messages, seedTail, prompt), 0.2, 256)

	keywords := ideaKeywords(joinContents(messages))
	idea := llmText
	if idea == "" {
		idea = fallbackIdea(keywords)
	}

	meta := map[string]any{
		"keywords":       keywords,
		"message_count":  len(messages),
		"generated_from": "llm_first_fallback_keywords",
		"llm_used":       llmText != "",
	}
	if _, err := s.stores.Artifacts.Put(ctx, sessionID, store.ArtifactProjectIdea, idea, meta); err != nil {
		return nil, fmt.Errorf("store project idea: %w", err)
	}
	return &IdeaResult{ProjectIdea: idea, Keywords: keywords, BasedOnMessages: len(messages)}, nil
}

// CreateTechStack derives and stores the tech_stack artifact.
func (s *Service) CreateTechStack(ctx context.Context, sessionID string) (*StackResult, error) {
	messages, err := s.history(ctx, sessionID, deriveHistoryLimit)
	if err != nil {
		return nil, err
	}

	prompt := techStackUserPrompt(conversationSnippets(messages, seedTail))
	llmText := s.askOnce(ctx, seedMessages(techStackSystemPrompt, messages, seedTail, prompt), 0.2, 512)

	detected := detectTechnologies(joinContents(messages))
	stack := llmText
	if stack == "" {
		stack = fallbackStack(detected)
	}

	meta := map[string]any{
		"detected_technologies": detected,
		"message_count":         len(messages),
		"generated_from":        "llm_first_fallback_keywords",
		"llm_used":              llmText != "",
	}
	if _, err := s.stores.Artifacts.Put(ctx, sessionID, store.ArtifactTechStack, stack, meta); err != nil {
		return nil, fmt.Errorf("store tech stack: %w", err)
	}
	return &StackResult{TechStack: stack, Technologies: detected, BasedOnMessages: len(messages)}, nil
}

// SummarizeChatHistory derives and stores the submission_summary artifact.
// Unlike idea and stack derivation it reads the full history.
func (s *Service) SummarizeChatHistory(ctx context.Context, sessionID string) (*SummaryResult, error) {
	messages, err := s.history(ctx, sessionID, 0)
	if err != nil {
		return nil, err
	}

	idea := s.artifactContent(ctx, sessionID, store.ArtifactProjectIdea)
	stack := s.artifactContent(ctx, sessionID, store.ArtifactTechStack)
	todoItems := s.todoItems(ctx, sessionID)

	var userCount, assistantCount int
	for _, m := range messages {
		switch m.Role {
		case store.RoleUser:
			userCount++
		case store.RoleAssistant:
			assistantCount++
		}
	}

	prompt := submissionSummaryUserPrompt(conversationSnippets(messages, 40), idea, stack)
	llmText := s.askOnce(ctx, seedMessages(submissionSummarySystemPrompt, messages, 40, prompt), 0.1, 600)

	parts := summaryParts(messages, idea, stack, todoItems, userCount, assistantCount)
	summary := llmText
	switch {
	case summary == "":
		summary = strings.Join(parts, "\n\n")
	case !strings.Contains(summary, summaryHeader):
		summary = strings.Join(parts[:2], "\n\n") + "\n\n" + summary
	}

	meta := map[string]any{
		"message_count":      len(messages),
		"user_messages":      userCount,
		"assistant_messages": assistantCount,
		"todo_count":         len(todoItems),
		"generated_from":     "llm_first_fallback_rule_summary",
		"llm_used":           llmText != "",
	}
	if _, err := s.stores.Artifacts.Put(ctx, sessionID, store.ArtifactSubmissionSummary, summary, meta); err != nil {
		return nil, fmt.Errorf("store submission summary: %w", err)
	}
	return &SummaryResult{
		SubmissionSummary: summary,
		Statistics: Statistics{
			TotalMessages:     len(messages),
			UserMessages:      userCount,
			AssistantMessages: assistantCount,
			CurrentTodos:      len(todoItems),
		},
	}, nil
}

// DeriveProjectIdeaStream streams idea tokens through onToken while
// assembling the final text, then stores the artifact. When the model
// produced nothing the fallback text is emitted as a single token.
func (s *Service) DeriveProjectIdeaStream(ctx context.Context, sessionID string, onToken func(string)) (string, error) {
	messages, err := s.history(ctx, sessionID, deriveHistoryLimit)
	if err != nil {
		return "", err
	}

	prompt := projectIdeaUserPrompt(conversationSnippets(messages, seedTail))
	llmText := s.askStream(ctx, seedMessages(projectIdeaSystemPrompt, messages, seedTail, prompt), 0.2, 256, onToken)

	idea := llmText
	if idea == "" {
		idea = fallbackIdea(ideaKeywords(joinContents(messages)))
		onToken(idea)
	}
	s.putStreamed(ctx, sessionID, store.ArtifactProjectIdea, idea, llmText != "", len(messages))
	return idea, nil
}

// CreateTechStackStream is the streaming variant of CreateTechStack.
func (s *Service) CreateTechStackStream(ctx context.Context, sessionID string, onToken func(string)) (string, error) {
	messages, err := s.history(ctx, sessionID, deriveHistoryLimit)
	if err != nil {
		return "", err
	}

	prompt := techStackUserPrompt(conversationSnippets(messages, seedTail))
	llmText := s.askStream(ctx, seedMessages(techStackSystemPrompt, messages, seedTail, prompt), 0.2, 512, onToken)

	stack := llmText
	if stack == "" {
		stack = fallbackStack(detectTechnologies(joinContents(messages)))
		onToken(stack)
	}
	s.putStreamed(ctx, sessionID, store.ArtifactTechStack, stack, llmText != "", len(messages))
	return stack, nil
}

// SummarizeChatHistoryStream is the streaming variant of SummarizeChatHistory.
// When the stream yields nothing it falls back to the non-streaming path and
// emits that summary as a single token.
func (s *Service) SummarizeChatHistoryStream(ctx context.Context, sessionID string, onToken func(string)) (string, error) {
	messages, err := s.history(ctx, sessionID, 0)
	if err != nil {
		return "", err
	}

	idea := s.artifactContent(ctx, sessionID, store.ArtifactProjectIdea)
	stack := s.artifactContent(ctx, sessionID, store.ArtifactTechStack)

	prompt := submissionSummaryUserPrompt(conversationSnippets(messages, 40), idea, stack)
	llmText := s.askStream(ctx, seedMessages(submissionSummarySystemPrompt, messages, 40, prompt), 0.1, 600, onToken)

	summary := llmText
	if summary == "" {
		res, err := s.SummarizeChatHistory(ctx, sessionID)
		if err != nil {
			return "", err
		}
		summary = res.SubmissionSummary
		onToken(summary)
	}
	s.putStreamed(ctx, sessionID, store.ArtifactSubmissionSummary, summary, llmText != "", len(messages))
	return summary, nil
}

// GenerateTitle names an untitled session from its history. With force it
// renames a titled session; otherwise an existing title is kept and reported
// as skipped.
func (s *Service) GenerateTitle(ctx context.Context, sessionID string, force bool) (*TitleResult, error) {
	if sessionID == "" {
		return nil, store.Validationf("session id is required")
	}
	sess, err := s.stores.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Title != "" && !force {
		return &TitleResult{Title: sess.Title, Skipped: true}, nil
	}

	messages, err := s.stores.Messages.List(ctx, sessionID, titleHistoryLimit, 0)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, ErrNoHistory
	}

	seed := []providers.Message{
		{Role: store.RoleSystem, Content: chatTitleSystemPrompt},
		{Role: store.RoleUser, Content: chatTitleUserPrompt(conversationSnippets(messages, seedTail))},
	}
	llmTitle := sanitizeTitle(s.askOnce(ctx, seed, 0.2, 512))

	title := llmTitle
	if !validTitle(title) {
		title = fallbackTitle(messages)
	}
	if title == "" {
		title = "Chat Session"
	}

	if err := s.stores.Sessions.UpdateTitle(ctx, sessionID, title); err != nil {
		return nil, fmt.Errorf("persist title: %w", err)
	}
	return &TitleResult{Title: title, LLMUsed: llmTitle != ""}, nil
}

// EnsureTitle names the session in the background flow after a turn. Errors
// are logged, never surfaced to the caller.
func (s *Service) EnsureTitle(ctx context.Context, sessionID string) {
	res, err := s.GenerateTitle(ctx, sessionID, false)
	if err != nil {
		if errors.Is(err, ErrNoHistory) || errors.Is(err, store.ErrNotFound) {
			return
		}
		s.log.Warn("background title generation failed", "session_id", sessionID, "error", err)
		return
	}
	if !res.Skipped {
		s.log.Info("chat title set", "session_id", sessionID, "title", res.Title, "llm_used", res.LLMUsed)
	}
}

// history loads session messages oldest-first, requiring at least one.
func (s *Service) history(ctx context.Context, sessionID string, limit int) ([]store.Message, error) {
	if sessionID == "" {
		return nil, store.Validationf("session id is required")
	}
	messages, err := s.stores.Messages.List(ctx, sessionID, limit, 0)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, ErrNoHistory
	}
	return messages, nil
}

func (s *Service) artifactContent(ctx context.Context, sessionID, artifactType string) string {
	art, err := s.stores.Artifacts.Get(ctx, sessionID, artifactType)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(art.Content)
}

func (s *Service) todoItems(ctx context.Context, sessionID string) []string {
	todos, err := s.stores.Todos.List(ctx, sessionID)
	if err != nil {
		s.log.Warn("todo lookup failed during summary", "session_id", sessionID, "error", err)
		return nil
	}
	items := make([]string, 0, len(todos))
	for _, t := range todos {
		items = append(items, t.Item)
	}
	return items
}

// putStreamed stores a streamed artifact. The tokens already reached the
// client, so persistence failures are logged rather than failing the stream.
func (s *Service) putStreamed(ctx context.Context, sessionID, artifactType, content string, llmUsed bool, messageCount int) {
	meta := map[string]any{
		"generated_from": "sse_llm_first_fallback",
		"llm_used":       llmUsed,
		"message_count":  messageCount,
	}
	if _, err := s.stores.Artifacts.Put(ctx, sessionID, artifactType, content, meta); err != nil {
		s.log.Warn("streamed artifact not persisted",
			"session_id", sessionID, "artifact_type", artifactType, "error", err)
	}
}

// seedMessages replays the newest max messages after the system prompt so the
// model answers from real context, then appends the task prompt.
func seedMessages(system string, messages []store.Message, max int, userPrompt string) []providers.Message {
	tail := messages
	if max > 0 && len(tail) > max {
		tail = tail[len(tail)-max:]
	}
	seed := make([]providers.Message, 0, len(tail)+2)
	seed = append(seed, providers.Message{Role: store.RoleSystem, Content: system})
	for _, m := range tail {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		seed = append(seed, providers.Message{Role: m.Role, Content: m.Content})
	}
	return append(seed, providers.Message{Role: store.RoleUser, Content: userPrompt})
}

func joinContents(messages []store.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, " ")
}

// askOnce makes a single non-streaming model call with tools disabled and
// returns trimmed text, or "" on any failure.
func (s *Service) askOnce(ctx context.Context, seed []providers.Message, temperature float64, maxTokens int) string {
	resp, err := s.provider.Provider().Chat(ctx, providers.ChatRequest{
		Messages: seed,
		Model:    s.provider.Model(),
		Options: map[string]interface{}{
			providers.OptTemperature: temperature,
			providers.OptMaxTokens:   maxTokens,
		},
	})
	if err != nil {
		s.log.Warn("artifact model call failed", "error", err)
		return ""
	}
	return strings.TrimSpace(resp.Content)
}

// askStream streams a single model call with tools disabled, forwarding
// content tokens to onToken. It returns whatever accumulated even when the
// stream errors midway.
func (s *Service) askStream(ctx context.Context, seed []providers.Message, temperature float64, maxTokens int, onToken func(string)) string {
	var b strings.Builder
	_, err := s.provider.Provider().ChatStream(ctx, providers.ChatRequest{
		Messages: seed,
		Model:    s.provider.Model(),
		Options: map[string]interface{}{
			providers.OptTemperature: temperature,
			providers.OptMaxTokens:   maxTokens,
		},
	}, func(chunk providers.StreamChunk) {
		if chunk.Content == "" {
			return
		}
		b.WriteString(chunk.Content)
		onToken(chunk.Content)
	})
	if err != nil {
		s.log.Warn("artifact model stream failed", "error", err)
	}
	return strings.TrimSpace(b.String())
}
