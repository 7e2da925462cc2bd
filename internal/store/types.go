package store

// Roles for chat messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Todo statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// Artifact types. At most one artifact per (session, type); Put replaces.
const (
	ArtifactProjectIdea       = "project_idea"
	ArtifactTechStack         = "tech_stack"
	ArtifactSubmissionSummary = "submission_summary"
)

// Context row sources.
const (
	SourceInitial = "initial"
	SourceFile    = "file"
	SourceText    = "text"
	SourceURL     = "url"
)

// ArtifactTypes lists the valid artifact types in canonical order.
var ArtifactTypes = []string{ArtifactProjectIdea, ArtifactTechStack, ArtifactSubmissionSummary}

// Session is one chat session. Timestamps are UTC RFC 3339 strings.
type Session struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`

	// MessageCount is populated by List, zero elsewhere.
	MessageCount int `json:"message_count,omitempty"`
}

// Message is one chat message, append-only within a session.
// Metadata carries assistant-side extras (thinking text, executed tool calls,
// partial flag) and is nil for plain messages.
type Message struct {
	ID        int64          `json:"id"`
	SessionID string         `json:"session_id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at"`
}

// Todo is one task item. SessionID is empty for rows not tied to a session.
type Todo struct {
	ID          int64   `json:"id"`
	SessionID   string  `json:"session_id,omitempty"`
	Item        string  `json:"item"`
	Status      string  `json:"status"`
	Priority    int     `json:"priority"`
	SortOrder   int     `json:"sort_order"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
	CompletedAt *string `json:"completed_at"`
}

// TodoUpdate is a partial update; nil fields are left unchanged.
// SessionID, when set, additionally scopes the update to that session.
type TodoUpdate struct {
	Item      *string
	Status    *string
	Priority  *int
	SortOrder *int
	SessionID *string
}

// IsEmpty reports whether the update changes nothing.
func (u TodoUpdate) IsEmpty() bool {
	return u.Item == nil && u.Status == nil && u.Priority == nil && u.SortOrder == nil
}

// Artifact is a derived project artifact (idea, tech stack, summary).
type Artifact struct {
	ID        int64          `json:"id"`
	SessionID string         `json:"session_id"`
	Type      string         `json:"artifact_type"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

// ContextRow is one ingested context block feeding the retrieval index.
// Rows with an empty SessionID form the shared context used only when no
// session is active.
type ContextRow struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id,omitempty"`
	Source    string `json:"source"`
	Filename  string `json:"filename,omitempty"`
	Content   string `json:"content"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

// ValidRole reports whether role is one of the message roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant || role == RoleSystem
}

// ValidStatus reports whether s is a valid todo status.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusInProgress || s == StatusDone
}

// ValidArtifactType reports whether t is a valid artifact type.
func ValidArtifactType(t string) bool {
	return t == ArtifactProjectIdea || t == ArtifactTechStack || t == ArtifactSubmissionSummary
}

// ValidSource reports whether s is a valid context source.
func ValidSource(s string) bool {
	return s == SourceInitial || s == SourceFile || s == SourceText || s == SourceURL
}
