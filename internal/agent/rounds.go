package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/hackhero/internal/providers"
	"github.com/nextlevelbuilder/hackhero/internal/store"
	"github.com/nextlevelbuilder/hackhero/pkg/protocol"
)

const roleTool = "tool"

type roundParams struct {
	sessionID string
	messages  []providers.Message
	maxRounds int
	maxCalls  int
	emit      func(protocol.Frame) bool
}

// turnResult is what the round loop hands back for persistence and the end
// frame. contentParts holds exactly the token payloads that reached the
// consumer, in order.
type turnResult struct {
	contentParts []string
	thinking     []string
	toolCalls    []protocol.ToolCall
	reason       string
	errMsg       string
	cancelled    bool
}

// runRounds drives the provider conversation. Rounds 1..maxRounds offer
// tools; a round that announces calls executes them and continues. The first
// round that ends without tool calls is terminal and flushes its buffered
// content as token frames. After maxRounds one more round runs without tools
// so the model can produce a closing answer.
func (o *Orchestrator) runRounds(ctx context.Context, p roundParams) *turnResult {
	res := &turnResult{reason: protocol.EndComplete}
	messages := p.messages
	toolDefs := o.tools.Definitions()
	executed := make(map[string]string) // announced call id -> result payload
	totalCalls := 0

	for round := 1; ; round++ {
		withTools := round <= p.maxRounds && totalCalls < p.maxCalls

		chatReq := providers.ChatRequest{
			Messages: messages,
			Model:    o.provider.Model(),
			Options: map[string]interface{}{
				providers.OptTemperature: chatTemperature,
				providers.OptMaxTokens:   chatMaxTokens,
			},
		}
		if withTools {
			chatReq.Tools = toolDefs
		}

		rctx, rspan := o.tracer.Start(ctx, "chat.round",
			trace.WithAttributes(attribute.Int("round", round), attribute.Bool("tools_offered", withTools)))

		guard := &thinkingGuard{}
		var roundContent []string
		resp, err := o.provider.Provider().ChatStream(rctx, chatReq, func(chunk providers.StreamChunk) {
			if chunk.Thinking != "" && guard.allow(chunk.Thinking) {
				if p.emit(protocol.NewThinking(chunk.Thinking)) {
					res.thinking = append(res.thinking, chunk.Thinking)
				} else {
					res.cancelled = true
				}
			}
			if chunk.Content != "" {
				guard.noteContent()
				roundContent = append(roundContent, chunk.Content)
			}
		})
		if err != nil {
			rspan.RecordError(err)
			rspan.SetStatus(codes.Error, err.Error())
			rspan.End()
			if errors.Is(ctx.Err(), context.Canceled) {
				res.cancelled = true
				return res
			}
			res.reason = protocol.EndError
			switch {
			case errors.Is(err, providers.ErrToolArgsIncomplete):
				res.errMsg = "model produced an incomplete tool call"
			case errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
				res.errMsg = "turn timed out"
			default:
				res.errMsg = fmt.Sprintf("provider stream failed: %v", err)
			}
			return res
		}

		// Some local runtimes end a stream without having delivered anything.
		// One non-streaming retry recovers the answer in that case.
		if len(resp.ToolCalls) == 0 && len(roundContent) == 0 {
			fallback, ferr := o.provider.Provider().Chat(rctx, providers.ChatRequest{
				Messages: messages,
				Model:    chatReq.Model,
				Options:  chatReq.Options,
			})
			if ferr != nil {
				o.log.Warn("non-stream fallback failed", "session_id", p.sessionID, "error", ferr)
			} else if fallback.Content != "" {
				roundContent = append(roundContent, fallback.Content)
			}
		}

		calls := resp.ToolCalls
		for i := range calls {
			if strings.TrimSpace(calls[i].ID) == "" {
				calls[i].ID = fmt.Sprintf("call_%d_%d", round, i)
			}
		}

		if len(calls) == 0 || !withTools {
			for _, piece := range roundContent {
				if !p.emit(protocol.NewToken(piece)) {
					res.cancelled = true
					break
				}
				res.contentParts = append(res.contentParts, piece)
			}
			if len(calls) > 0 {
				// The model kept requesting tools on the closing round.
				res.reason = protocol.EndMaxRounds
			}
			rspan.End()
			return res
		}

		// Announce only calls whose id has not run this turn; repeats reuse
		// the recorded result below.
		announce := make([]protocol.ToolCall, 0, len(calls))
		for _, c := range calls {
			if _, done := executed[c.ID]; done {
				continue
			}
			announce = append(announce, protocol.ToolCall{ID: c.ID, Name: c.Name, Arguments: marshalArgs(c.Arguments)})
		}
		if len(announce) > 0 {
			if !p.emit(protocol.NewToolCalls(announce)) {
				res.cancelled = true
				rspan.End()
				return res
			}
		}

		messages = append(messages, providers.Message{
			Role:      store.RoleAssistant,
			Content:   "",
			ToolCalls: calls,
		})

		exhausted := false
		for _, c := range calls {
			payload, done := executed[c.ID]
			if !done {
				if ctx.Err() != nil {
					break
				}
				if totalCalls >= p.maxCalls {
					exhausted = true
					break
				}
				totalCalls++
				payload = o.executeCall(rctx, p.sessionID, c)
				executed[c.ID] = payload
				res.toolCalls = append(res.toolCalls, protocol.ToolCall{ID: c.ID, Name: c.Name, Arguments: marshalArgs(c.Arguments)})
			}
			messages = append(messages, providers.Message{
				Role:       roleTool,
				Content:    payload,
				ToolCallID: c.ID,
			})
		}
		rspan.End()

		if ctx.Err() != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				res.cancelled = true
			} else {
				res.reason = protocol.EndError
				res.errMsg = "turn timed out"
			}
			return res
		}
		if exhausted {
			if p.emit(protocol.NewToken(protocol.BudgetExhaustedToken)) {
				res.contentParts = append(res.contentParts, protocol.BudgetExhaustedToken)
			} else {
				res.cancelled = true
			}
			res.reason = protocol.EndMaxRounds
			return res
		}
	}
}

// executeCall runs one tool call through the registry. The tool context is
// detached from turn cancellation so an in-flight call finishes (or hits its
// own timeout) even when the client disconnects mid-turn.
func (o *Orchestrator) executeCall(ctx context.Context, sessionID string, call providers.ToolCall) string {
	tctx, span := o.tracer.Start(context.WithoutCancel(ctx), "tool."+call.Name,
		trace.WithAttributes(
			attribute.String("tool.name", call.Name),
			attribute.String("tool.call_id", call.ID),
		))
	defer span.End()

	result := o.tools.Execute(tctx, sessionID, call.Name, call.Arguments)
	if !result.OK {
		span.SetStatus(codes.Error, result.Error)
	}
	return result.ForLLM()
}

func marshalArgs(args map[string]interface{}) string {
	if len(args) == 0 {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}
