package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/hackhero/internal/providers"
	"github.com/nextlevelbuilder/hackhero/internal/store"
	"github.com/nextlevelbuilder/hackhero/internal/textutil"
	"github.com/nextlevelbuilder/hackhero/pkg/protocol"
)

func (o *Orchestrator) runTurn(ctx context.Context, req TurnRequest, frames chan<- protocol.Frame) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	release, err := o.lockSession(ctx, sessionID)
	if err != nil {
		return
	}
	defer release()

	// The turn deadline bounds provider and tool work, not frame delivery:
	// a timed-out turn still owes the client its end frame.
	clientCtx := ctx
	ctx, cancel := context.WithTimeout(ctx, o.turnTimeout)
	defer cancel()

	ctx, span := o.tracer.Start(ctx, "chat.turn",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	emit := func(f protocol.Frame) bool {
		select {
		case frames <- f:
			return true
		case <-clientCtx.Done():
			return false
		}
	}

	if !emit(protocol.NewSessionInfo(sessionID)) {
		return
	}

	rulesEmitted := false
	fail := func(err error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !rulesEmitted {
			emit(protocol.NewRuleChunks(nil, nil))
		}
		emit(protocol.NewEndError(err.Error()))
	}

	if _, err := o.stores.Sessions.Upsert(ctx, sessionID); err != nil {
		o.log.Error("session upsert failed", "session_id", sessionID, "error", err)
		fail(fmt.Errorf("session setup failed: %w", err))
		return
	}

	parts, userMeta := o.buildContextParts(ctx, sessionID, req)
	userContent := strings.Join(append(parts, req.UserInput), "\n")

	// History is loaded before the new user message is persisted, so the
	// window never contains the input of the turn in progress.
	history, err := o.loadHistory(ctx, sessionID)
	if err != nil {
		o.log.Error("history load failed", "session_id", sessionID, "error", err)
		fail(fmt.Errorf("history load failed: %w", err))
		return
	}

	stored := textutil.StripContextBlocks(userContent)
	if _, err := o.stores.Messages.Append(ctx, sessionID, store.RoleUser, stored, userMeta); err != nil {
		o.log.Error("user message persist failed", "session_id", sessionID, "error", err)
		fail(fmt.Errorf("message persist failed: %w", err))
		return
	}
	o.titleInBackground(sessionID)

	hits, _, err := o.retrieval.Retrieve(ctx, sessionID, req.UserInput, o.retrievalTopK)
	if err != nil {
		o.log.Warn("retrieval failed, continuing without rule context",
			"session_id", sessionID, "error", err)
		hits = nil
	}
	chunkIDs := make([]int, 0, len(hits))
	texts := make([]string, 0, len(hits))
	for _, h := range hits {
		chunkIDs = append(chunkIDs, h.ChunkID)
		texts = append(texts, h.Text)
	}
	rulesEmitted = true
	if !emit(protocol.NewRuleChunks(chunkIDs, texts)) {
		return
	}

	messages := make([]providers.Message, 0, len(history)+2)
	messages = append(messages, providers.Message{
		Role:    store.RoleSystem,
		Content: buildSystemPrompt(buildRuleText(hits)),
	})
	for _, m := range history {
		messages = append(messages, providers.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, providers.Message{Role: store.RoleUser, Content: userContent})

	res := o.runRounds(ctx, roundParams{
		sessionID: sessionID,
		messages:  messages,
		maxRounds: orDefault(req.MaxToolRounds, o.maxToolRounds),
		maxCalls:  orDefault(req.MaxTotalToolCalls, o.maxTotalToolCalls),
		emit:      emit,
	})

	o.persistAssistant(sessionID, res)

	if res.cancelled {
		o.log.Info("turn cancelled by client", "session_id", sessionID)
		span.SetStatus(codes.Error, "cancelled")
		return
	}
	if res.reason == protocol.EndError {
		span.RecordError(errors.New(res.errMsg))
		span.SetStatus(codes.Error, res.errMsg)
		emit(protocol.NewEndError(res.errMsg))
		return
	}
	emit(protocol.NewEnd(res.reason))
	o.titleInBackground(sessionID)
}

// loadHistory returns the most recent window of messages, oldest first.
func (o *Orchestrator) loadHistory(ctx context.Context, sessionID string) ([]store.Message, error) {
	count, err := o.stores.Messages.Count(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	offset := 0
	if count > o.historyWindow {
		offset = count - o.historyWindow
	}
	return o.stores.Messages.List(ctx, sessionID, o.historyWindow, offset)
}

// persistAssistant writes the assistant message when the turn produced any
// content tokens. Collected thinking and the executed tool calls travel in
// the metadata; a turn cut off by the client is flagged partial.
func (o *Orchestrator) persistAssistant(sessionID string, res *turnResult) {
	if len(res.contentParts) == 0 {
		return
	}
	meta := map[string]any{}
	if len(res.thinking) > 0 {
		meta["thinking"] = strings.Join(res.thinking, "")
	}
	if len(res.toolCalls) > 0 {
		meta["tool_calls"] = res.toolCalls
	}
	if res.cancelled {
		meta["partial"] = true
	}
	if len(meta) == 0 {
		meta = nil
	}
	content := textutil.StripContextBlocks(strings.Join(res.contentParts, ""))

	// The turn context may already be dead here.
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if _, err := o.stores.Messages.Append(ctx, sessionID, store.RoleAssistant, content, meta); err != nil {
		o.log.Error("assistant message persist failed", "session_id", sessionID, "error", err)
	}
}

// titleInBackground names the session off the turn's critical path. No-op
// when a title already exists.
func (o *Orchestrator) titleInBackground(sessionID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), titleTimeout)
		defer cancel()
		o.artifacts.EnsureTitle(ctx, sessionID)
	}()
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
