// Package protocol defines the frame types emitted on the chat event stream.
//
// A turn produces frames in a fixed order: one session_info, one rule_chunks,
// any interleaving of thinking and tool_calls, any number of tokens, and a
// single terminating end frame. Consumers dispatch on the "type" field of
// each JSON object.
package protocol

// Frame type discriminators.
const (
	EventSessionInfo = "session_info"
	EventRuleChunks  = "rule_chunks"
	EventThinking    = "thinking"
	EventToolCalls   = "tool_calls"
	EventToken       = "token"
	EventEnd         = "end"
)

// Reasons carried by the end frame.
const (
	EndComplete  = "complete"
	EndMaxRounds = "max_rounds"
	EndError     = "error"
)

// BudgetExhaustedToken is the literal final token emitted when the per-turn
// tool-call budget runs out.
const BudgetExhaustedToken = "[tool call budget exhausted]"

// Frame is one JSON object on the event stream.
type Frame interface {
	FrameType() string
}

// SessionInfo is the first frame of every turn.
type SessionInfo struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

func (SessionInfo) FrameType() string { return EventSessionInfo }

// NewSessionInfo builds the opening frame for a turn.
func NewSessionInfo(sessionID string) SessionInfo {
	return SessionInfo{Type: EventSessionInfo, SessionID: sessionID}
}

// RuleChunks lists the retrieved context chunks injected into the system
// prompt. Both slices always serialize, even when retrieval found nothing.
type RuleChunks struct {
	Type     string   `json:"type"`
	ChunkIDs []int    `json:"chunk_ids"`
	Texts    []string `json:"texts"`
}

func (RuleChunks) FrameType() string { return EventRuleChunks }

// NewRuleChunks builds the rule_chunks frame. Nil slices become empty ones so
// the wire form is always a JSON array.
func NewRuleChunks(chunkIDs []int, texts []string) RuleChunks {
	if chunkIDs == nil {
		chunkIDs = []int{}
	}
	if texts == nil {
		texts = []string{}
	}
	return RuleChunks{Type: EventRuleChunks, ChunkIDs: chunkIDs, Texts: texts}
}

// Thinking carries a fragment of model reasoning. Fragments may arrive in
// many small frames; consumers concatenate them.
type Thinking struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func (Thinking) FrameType() string { return EventThinking }

func NewThinking(content string) Thinking {
	return Thinking{Type: EventThinking, Content: content}
}

// ToolCall describes one announced call. Arguments is the raw JSON object the
// model supplied, re-serialized as a string.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCalls announces a batch of calls before they are executed.
type ToolCalls struct {
	Type      string     `json:"type"`
	ToolCalls []ToolCall `json:"tool_calls"`
}

func (ToolCalls) FrameType() string { return EventToolCalls }

func NewToolCalls(calls []ToolCall) ToolCalls {
	if calls == nil {
		calls = []ToolCall{}
	}
	return ToolCalls{Type: EventToolCalls, ToolCalls: calls}
}

// Token carries one fragment of assistant content.
type Token struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

func (Token) FrameType() string { return EventToken }

func NewToken(token string) Token {
	return Token{Type: EventToken, Token: token}
}

// End terminates the stream. Error is set only when Reason is EndError.
type End struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
	Error  string `json:"error,omitempty"`
}

func (End) FrameType() string { return EventEnd }

func NewEnd(reason string) End {
	return End{Type: EventEnd, Reason: reason}
}

func NewEndError(message string) End {
	return End{Type: EventEnd, Reason: EndError, Error: message}
}
