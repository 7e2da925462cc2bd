package artifacts

import (
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/hackhero/internal/store"
	"github.com/nextlevelbuilder/hackhero/internal/textutil"
)

const (
	projectIdeaSystemPrompt = "You are a senior product strategist. From the conversation, craft a concise," +
		" specific hackathon project idea. Keep it actionable and focused. Return 1-2 sentences." +
		" Avoid filler and generalities."

	techStackSystemPrompt = "You are a senior software architect. Based on the conversation, produce a concise" +
		" recommended tech stack for a hackathon project. Output should be a single short paragraph or 3-4" +
		" labeled lines. Prefer the format: 'Frontend: ...' 'Backend: ...' 'Database: ...' 'Additional: ...'." +
		" Avoid prose beyond the stack."

	submissionSummarySystemPrompt = "You are an experienced engineering manager. Summarize the conversation into" +
		" a brief project progress note highlighting accomplishments, challenges, and next steps. Return at most" +
		" 2 short paragraphs or up to 5 concise bullet points. Be concrete and avoid fluff."

	chatTitleSystemPrompt = "You are a naming assistant. Create a short descriptive title for the conversation," +
		" at most six words. Return only the title text, with no quotes and no trailing punctuation."
)

// snippetLimit caps each conversation snippet line fed to the model.
const snippetLimit = 220

// conversationSnippets renders the newest max messages as "- role: content"
// lines, with context blocks stripped and long content clipped. Messages that
// end up empty after stripping are skipped.
func conversationSnippets(messages []store.Message, max int) []string {
	if max > 0 && len(messages) > max {
		messages = messages[len(messages)-max:]
	}
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		content := textutil.Shorten(textutil.StripContextBlocks(m.Content), snippetLimit)
		if content == "" {
			continue
		}
		out = append(out, fmt.Sprintf("- %s: %s", m.Role, content))
	}
	return out
}

func projectIdeaUserPrompt(snippets []string) string {
	return fmt.Sprintf("Conversation snippets:\n%s\n\nDerive the hackathon project idea now.",
		strings.Join(snippets, "\n"))
}

func techStackUserPrompt(snippets []string) string {
	return fmt.Sprintf("Conversation snippets:\n%s\n\nRecommend the tech stack now.",
		strings.Join(snippets, "\n"))
}

func submissionSummaryUserPrompt(snippets []string, idea, stack string) string {
	var b strings.Builder
	b.WriteString("Conversation snippets:\n")
	b.WriteString(strings.Join(snippets, "\n"))
	if idea != "" {
		b.WriteString("\n\nProject idea on file:\n")
		b.WriteString(idea)
	}
	if stack != "" {
		b.WriteString("\n\nTech stack on file:\n")
		b.WriteString(stack)
	}
	b.WriteString("\n\nWrite the submission summary now.")
	return b.String()
}

func chatTitleUserPrompt(snippets []string) string {
	return fmt.Sprintf("Conversation snippets:\n%s\n\nReturn the title now.",
		strings.Join(snippets, "\n"))
}
