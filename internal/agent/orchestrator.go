// Package agent implements the chat turn orchestrator: a bounded multi-round
// tool-calling loop that emits a strictly ordered event stream per turn.
//
// Every turn produces exactly one session_info frame, one rule_chunks frame,
// any interleaving of thinking and tool_calls frames, zero or more token
// frames, and one end frame. Turns on distinct sessions run in parallel;
// turns on the same session are serialized.
package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/hackhero/internal/artifacts"
	"github.com/nextlevelbuilder/hackhero/internal/ingest"
	"github.com/nextlevelbuilder/hackhero/internal/providers"
	"github.com/nextlevelbuilder/hackhero/internal/rag"
	"github.com/nextlevelbuilder/hackhero/internal/store"
	"github.com/nextlevelbuilder/hackhero/internal/telemetry"
	"github.com/nextlevelbuilder/hackhero/internal/tools"
	"github.com/nextlevelbuilder/hackhero/pkg/protocol"
)

// Defaults applied when Config or TurnRequest leaves a limit at zero.
const (
	DefaultMaxToolRounds     = 4
	DefaultMaxTotalToolCalls = 15
	DefaultTurnTimeout       = 10 * time.Minute
	DefaultHistoryWindow     = 20
	DefaultRetrievalTopK     = 5
	DefaultMaxFiles          = 10
)

const (
	// frameQueueSize bounds the outbound frame buffer. When the consumer
	// stalls, provider reading halts here.
	frameQueueSize = 256

	chatTemperature = 0.7
	chatMaxTokens   = 1024

	titleTimeout   = 2 * time.Minute
	persistTimeout = 10 * time.Second
)

// ProviderSource yields the active LLM client and model selection.
// *providers.Manager is the production implementation.
type ProviderSource interface {
	Provider() providers.Provider
	Model() string
}

// Config wires the orchestrator's collaborators and limits.
type Config struct {
	Stores    *store.Stores
	Provider  ProviderSource
	Tools     *tools.Registry
	Retrieval *rag.Manager
	Ingestor  *ingest.Service
	Artifacts *artifacts.Service
	Log       *slog.Logger

	MaxToolRounds     int
	MaxTotalToolCalls int
	TurnTimeout       time.Duration
	HistoryWindow     int
	RetrievalTopK     int
	MaxFiles          int
}

// Orchestrator runs chat turns.
type Orchestrator struct {
	stores    *store.Stores
	provider  ProviderSource
	tools     *tools.Registry
	retrieval *rag.Manager
	ingestor  *ingest.Service
	artifacts *artifacts.Service
	log       *slog.Logger
	tracer    trace.Tracer

	maxToolRounds     int
	maxTotalToolCalls int
	turnTimeout       time.Duration
	historyWindow     int
	retrievalTopK     int
	maxFiles          int

	turnLocks sync.Map // session id -> chan struct{} with one slot
}

// New builds an Orchestrator, applying defaults for zero limits.
func New(cfg Config) *Orchestrator {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = DefaultMaxToolRounds
	}
	if cfg.MaxTotalToolCalls <= 0 {
		cfg.MaxTotalToolCalls = DefaultMaxTotalToolCalls
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = DefaultTurnTimeout
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	if cfg.RetrievalTopK <= 0 {
		cfg.RetrievalTopK = DefaultRetrievalTopK
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = DefaultMaxFiles
	}
	return &Orchestrator{
		stores:            cfg.Stores,
		provider:          cfg.Provider,
		tools:             cfg.Tools,
		retrieval:         cfg.Retrieval,
		ingestor:          cfg.Ingestor,
		artifacts:         cfg.Artifacts,
		log:               cfg.Log,
		tracer:            telemetry.Tracer(),
		maxToolRounds:     cfg.MaxToolRounds,
		maxTotalToolCalls: cfg.MaxTotalToolCalls,
		turnTimeout:       cfg.TurnTimeout,
		historyWindow:     cfg.HistoryWindow,
		retrievalTopK:     cfg.RetrievalTopK,
		maxFiles:          cfg.MaxFiles,
	}
}

// UploadedFile is one attachment accompanying a chat turn.
type UploadedFile struct {
	Filename string
	Data     []byte
}

// TurnRequest carries the inputs of one chat turn. A blank SessionID creates
// a fresh session. Zero limits fall back to the configured defaults.
type TurnRequest struct {
	SessionID string
	UserInput string
	Files     []UploadedFile
	URLText   string

	MaxToolRounds     int
	MaxTotalToolCalls int
}

// Stream runs the turn and returns its frame stream. The channel is closed
// after the end frame. A waiting turn on the same session starts only after
// the running one ends or its client goes away.
func (o *Orchestrator) Stream(ctx context.Context, req TurnRequest) <-chan protocol.Frame {
	frames := make(chan protocol.Frame, frameQueueSize)
	go func() {
		defer close(frames)
		o.runTurn(ctx, req, frames)
	}()
	return frames
}

// lockSession serializes turns per session. The release func must be called
// exactly once.
func (o *Orchestrator) lockSession(ctx context.Context, sessionID string) (func(), error) {
	v, _ := o.turnLocks.LoadOrStore(sessionID, make(chan struct{}, 1))
	sem := v.(chan struct{})
	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
