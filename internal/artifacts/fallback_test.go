package artifacts

import (
	"strings"
	"testing"

	"github.com/nextlevelbuilder/hackhero/internal/store"
)

// TestIdeaKeywords verifies term detection is ordered, case-insensitive, and
// capped at three.
func TestIdeaKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"none", "let's discuss lunch", []string{}},
		{"single", "I want to build a DASHBOARD", []string{"dashboard"}},
		{"scan order", "an api for a web app", []string{"web", "app", "api"}},
		{"capped at three", "web app mobile ai ml blockchain", []string{"web", "app", "mobile"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ideaKeywords(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("keyword %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// TestFallbackIdea verifies both the keyword-driven and the generic idea text.
func TestFallbackIdea(t *testing.T) {
	got := fallbackIdea([]string{"web", "ai"})
	if !strings.HasPrefix(got, "A web & ai solution") {
		t.Errorf("keyword idea = %q", got)
	}
	got = fallbackIdea(nil)
	if !strings.HasPrefix(got, "An innovative solution") {
		t.Errorf("generic idea = %q", got)
	}
}

// TestDetectTechnologies verifies category grouping and slash-term matching.
func TestDetectTechnologies(t *testing.T) {
	detected := detectTechnologies("We'll use React and CSS with FastAPI and SQLite")
	if got := detected["frontend"]; len(got) != 2 || got[0] != "react" || got[1] != "html/css/js" {
		t.Errorf("frontend = %v", got)
	}
	if got := detected["backend"]; len(got) != 1 || got[0] != "fastapi" {
		t.Errorf("backend = %v", got)
	}
	if got := detected["database"]; len(got) != 1 || got[0] != "sqlite" {
		t.Errorf("database = %v", got)
	}
	if got := detected["other"]; len(got) != 0 {
		t.Errorf("other = %v", got)
	}
}

// TestFallbackStack verifies detected categories render in order and empty
// ones fall back to defaults.
func TestFallbackStack(t *testing.T) {
	got := fallbackStack(map[string][]string{
		"backend":  {"django"},
		"database": {"postgresql"},
	})
	want := "Frontend: React, Tailwind CSS | Backend: django | Database: postgresql | Additional: RESTful API"
	if got != want {
		t.Errorf("stack = %q, want %q", got, want)
	}
}

// TestSummaryParts verifies the rule-based summary assembles the expected
// sections for a short conversation.
func TestSummaryParts(t *testing.T) {
	messages := []store.Message{
		{Role: store.RoleUser, Content: "Help me plan a hackathon project"},
		{Role: store.RoleAssistant, Content: "Sure. First milestone is done, but there is an issue with auth."},
	}
	parts := summaryParts(messages, "A web app", "Backend: go", []string{"fix auth", "record demo"}, 1, 1)

	joined := strings.Join(parts, "\n\n")
	for _, want := range []string{
		summaryHeader,
		"**Total Messages:** 2 (1 user, 1 assistant)",
		"**Project Idea:** A web app...",
		"**Tech Stack:** Backend: go",
		"**Key Accomplishments:**",
		"**Challenges Addressed:**",
		"**Remaining Tasks:** 2 items in todo list",
		"- fix auth",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("summary missing %q:\n%s", want, joined)
		}
	}
	// Ten or fewer messages never emit highlights.
	if strings.Contains(joined, "**Conversation Highlights:**") {
		t.Errorf("unexpected highlights section:\n%s", joined)
	}
}

// TestSummaryPartsTruncatesTodos verifies long todo lists show five items and
// a remainder count.
func TestSummaryPartsTruncatesTodos(t *testing.T) {
	todos := []string{"a", "b", "c", "d", "e", "f", "g"}
	parts := summaryParts(nil, "", "", todos, 0, 0)
	joined := strings.Join(parts, "\n\n")
	if !strings.Contains(joined, "**Remaining Tasks:** 7 items") {
		t.Errorf("missing task count:\n%s", joined)
	}
	if !strings.Contains(joined, "... and 2 more") {
		t.Errorf("missing overflow marker:\n%s", joined)
	}
	if strings.Contains(joined, "- f\n") {
		t.Errorf("sixth item leaked:\n%s", joined)
	}
}

// TestSanitizeTitle covers quote stripping, whitespace collapsing, length
// capping, and trailing punctuation removal.
func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "Garden Planner", "Garden Planner"},
		{"quoted", `"Garden Planner"`, "Garden Planner"},
		{"single quoted", "'Recipe Finder'", "Recipe Finder"},
		{"first line only", "Title Here\nwith explanation", "Title Here"},
		{"whitespace collapse", "  Too   many \t spaces  ", "Too many spaces"},
		{"backticks stripped", "Build `todo` App", "Build todo App"},
		{"trailing punctuation", "Great Idea!!", "Great Idea"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeTitle(tt.raw); got != tt.want {
				t.Errorf("sanitizeTitle(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}

	long := strings.Repeat("word ", 30)
	if got := sanitizeTitle(long); len([]rune(got)) > 80 {
		t.Errorf("long title not capped: %q (%d runes)", got, len([]rune(got)))
	}
}

// TestValidTitle verifies the two-word minimum and placeholder rejection.
func TestValidTitle(t *testing.T) {
	tests := []struct {
		title string
		want  bool
	}{
		{"Garden Planner", true},
		{"Untitled", false},
		{"NEW CHAT", false},
		{"Conversation", false},
		{"Single", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := validTitle(tt.title); got != tt.want {
			t.Errorf("validTitle(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}

// TestFallbackTitle verifies the first user sentence becomes the title,
// capped at eight words.
func TestFallbackTitle(t *testing.T) {
	messages := []store.Message{
		{Role: store.RoleAssistant, Content: "How can I help?"},
		{Role: store.RoleUser, Content: "Help me build a recipe sharing application. It should support photos."},
	}
	if got := fallbackTitle(messages); got != "Help me build a recipe sharing application" {
		t.Errorf("title = %q", got)
	}

	long := []store.Message{{
		Role:    store.RoleUser,
		Content: "one two three four five six seven eight nine ten",
	}}
	if got := fallbackTitle(long); got != "one two three four five six seven eight" {
		t.Errorf("capped title = %q", got)
	}

	if got := fallbackTitle([]store.Message{{Role: store.RoleAssistant, Content: "hi"}}); got != "" {
		t.Errorf("assistant-only title = %q", got)
	}
}
