package agent

import "strings"

// Reasoning output limits, applied per round. Local models occasionally get
// stuck looping in reasoning mode; past these bounds further thinking frames
// are dropped while the round keeps running.
const (
	maxThinkingChars      = 1000
	maxThinkingRepeats    = 10
	maxThinkingOnlyChunks = 200
)

// thinkingGuard decides which reasoning fragments of one round are forwarded.
// Once content appears in a round, later reasoning is dropped entirely.
type thinkingGuard struct {
	total      int
	lastNorm   string
	repeats    int
	onlyChunks int
	suppressed bool
	sawContent bool
}

func (g *thinkingGuard) allow(text string) bool {
	if g.sawContent || g.suppressed {
		return false
	}
	norm := strings.ToLower(strings.TrimSpace(text))
	if norm != "" && norm == g.lastNorm {
		g.repeats++
	} else {
		g.repeats = 0
		g.lastNorm = norm
	}
	g.total += len(text)
	g.onlyChunks++
	if g.total > maxThinkingChars || g.repeats > maxThinkingRepeats || g.onlyChunks > maxThinkingOnlyChunks {
		g.suppressed = true
		return false
	}
	return true
}

func (g *thinkingGuard) noteContent() {
	g.sawContent = true
}
