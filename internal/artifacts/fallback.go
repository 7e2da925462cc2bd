package artifacts

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nextlevelbuilder/hackhero/internal/store"
)

// Deterministic fallbacks used when the provider is unreachable or returns
// nothing. They only look at conversation text already on disk, so artifact
// derivation keeps working fully offline.

// ideaTerms are scanned in order so the fallback idea is stable for a given
// conversation.
var ideaTerms = []string{
	"web", "app", "mobile", "ai", "ml", "blockchain", "api", "dashboard",
	"automation", "analytics", "chat", "game", "tool", "platform", "system",
}

// ideaKeywords returns up to three known tech terms found in the text.
func ideaKeywords(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, term := range ideaTerms {
		if strings.Contains(lower, term) {
			found = append(found, term)
			if len(found) == 3 {
				break
			}
		}
	}
	return found
}

func fallbackIdea(keywords []string) string {
	if len(keywords) > 0 {
		return fmt.Sprintf("A %s solution that addresses the problems discussed in the chat."+
			" The project leverages modern technologies to create an innovative hackathon submission.",
			strings.Join(keywords, " & "))
	}
	return "An innovative solution derived from the conversation topics and user requirements discussed."
}

// techCategory pairs a stack category with the technologies it recognizes.
// Slices keep the scan order deterministic.
type techCategory struct {
	name  string
	terms []string
}

var techCategories = []techCategory{
	{"frontend", []string{"react", "vue", "angular", "svelte", "html/css/js"}},
	{"backend", []string{"fastapi", "express", "django", "flask", "python", "node.js"}},
	{"database", []string{"sqlite", "postgresql", "mongodb", "mysql"}},
	{"other", []string{"ollama", "ai/ml", "blockchain", "cloud"}},
}

// detectTechnologies scans the conversation text for known technology names,
// grouped by stack category. Terms with slashes match on any of their parts.
func detectTechnologies(text string) map[string][]string {
	lower := strings.ToLower(text)
	detected := make(map[string][]string)
	for _, cat := range techCategories {
		for _, term := range cat.terms {
			if containsTechTerm(lower, term) {
				detected[cat.name] = append(detected[cat.name], term)
			}
		}
	}
	return detected
}

func containsTechTerm(lower, term string) bool {
	for _, part := range strings.Split(term, "/") {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

// defaultStack fills categories the conversation never mentioned.
var defaultStack = map[string][]string{
	"frontend": {"React", "Tailwind CSS"},
	"backend":  {"FastAPI", "Python"},
	"database": {"SQLite"},
	"other":    {"RESTful API"},
}

// fallbackStack renders detected technologies as labeled segments joined by
// " | ", falling back to sensible defaults for empty categories.
func fallbackStack(detected map[string][]string) string {
	labels := map[string]string{
		"frontend": "Frontend", "backend": "Backend",
		"database": "Database", "other": "Additional",
	}
	var segments []string
	for _, cat := range techCategories {
		techs := detected[cat.name]
		if len(techs) == 0 {
			techs = defaultStack[cat.name]
		}
		segments = append(segments, fmt.Sprintf("%s: %s", labels[cat.name], strings.Join(techs, ", ")))
	}
	return strings.Join(segments, " | ")
}

const summaryHeader = "## Hackathon Project Summary"

// summaryParts builds the rule-based submission summary. The parts are joined
// with blank lines when no model text is available, and the first two parts
// are prefixed onto model text that lacks the header.
func summaryParts(messages []store.Message, idea, stack string, todos []string, userCount, assistantCount int) []string {
	parts := []string{
		summaryHeader,
		fmt.Sprintf("**Total Messages:** %d (%d user, %d assistant)", len(messages), userCount, assistantCount),
	}

	if idea != "" {
		parts = append(parts, fmt.Sprintf("**Project Idea:** %s...", clip(idea, 200)))
	}
	if stack != "" {
		parts = append(parts, "**Tech Stack:** "+stack)
	}

	var hasProgress, hasChallenges bool
	for _, m := range messages {
		if m.Role != store.RoleAssistant {
			continue
		}
		lower := strings.ToLower(m.Content)
		if strings.Contains(lower, "completed") || strings.Contains(lower, "done") || strings.Contains(lower, "finished") {
			hasProgress = true
		}
		if strings.Contains(lower, "issue") || strings.Contains(lower, "problem") || strings.Contains(lower, "error") {
			hasChallenges = true
		}
	}
	if hasProgress {
		parts = append(parts, "**Key Accomplishments:** 1 areas of progress")
	}
	if hasChallenges {
		parts = append(parts, "**Challenges Addressed:** 1 technical issues discussed")
	}

	if len(todos) > 0 {
		parts = append(parts, fmt.Sprintf("**Remaining Tasks:** %d items in todo list", len(todos)))
		head := todos
		if len(head) > 5 {
			head = head[:5]
		}
		parts = append(parts, "  - "+strings.Join(head, "\n  - "))
		if len(todos) > 5 {
			parts = append(parts, fmt.Sprintf("  - ... and %d more", len(todos)-5))
		}
	}

	if len(messages) > 10 {
		parts = append(parts, "**Conversation Highlights:**")
		for _, m := range messages[:2] {
			if m.Role == store.RoleUser {
				parts = append(parts, "  - Early: "+clipIfLong(m.Content, 150))
			}
		}
		for _, m := range messages[len(messages)-3:] {
			if m.Role == store.RoleUser {
				parts = append(parts, "  - Recent: "+clipIfLong(m.Content, 150))
			}
		}
	}

	return parts
}

// clip truncates to n runes. The caller supplies its own ellipsis.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

// clipIfLong truncates to n runes, appending an ellipsis only when truncated.
func clipIfLong(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}

var (
	titleSpaceRe = regexp.MustCompile(`\s+`)
	// placeholderTitles are model outputs that mean "no usable title".
	placeholderTitles = map[string]bool{
		"new chat": true, "conversation": true, "untitled": true, "no title": true,
	}
)

// sanitizeTitle normalizes raw model output into a short single-line title.
func sanitizeTitle(raw string) string {
	title := strings.TrimSpace(raw)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	title = strings.TrimSpace(title)
	for _, quote := range []string{`"`, "'"} {
		if strings.HasPrefix(title, quote) && strings.HasSuffix(title, quote) && len(title) >= 2 {
			title = title[1 : len(title)-1]
		}
	}
	title = strings.ReplaceAll(title, "`", "")
	title = strings.TrimSpace(titleSpaceRe.ReplaceAllString(title, " "))
	if r := []rune(title); len(r) > 80 {
		title = strings.TrimSpace(string(r[:80]))
	}
	return strings.TrimRight(title, ".!?;,:")
}

// validTitle requires at least two words and rejects placeholder names.
func validTitle(title string) bool {
	if title == "" || placeholderTitles[strings.ToLower(title)] {
		return false
	}
	return len(strings.Fields(title)) >= 2
}

// fallbackTitle derives a title from the first user message: first sentence,
// first eight words, sanitized.
func fallbackTitle(messages []store.Message) string {
	for _, m := range messages {
		if m.Role != store.RoleUser || strings.TrimSpace(m.Content) == "" {
			continue
		}
		text := strings.ReplaceAll(m.Content, "\n", " ")
		if i := strings.Index(text, ". "); i >= 0 {
			text = text[:i]
		}
		words := strings.Fields(text)
		if len(words) > 8 {
			words = words[:8]
		}
		if title := sanitizeTitle(strings.Join(words, " ")); title != "" {
			return title
		}
	}
	return ""
}
