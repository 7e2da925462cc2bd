package rag

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/nextlevelbuilder/hackhero/internal/store"
)

// Index states. Each session (the empty key is the shared no-session slot)
// is in exactly one state at a time.
const (
	StateEmpty    = "empty"
	StateBuilding = "building"
	StateReady    = "ready"
)

const rebuildTimeout = 10 * time.Minute

// StatusInfo reports the index state for a session.
type StatusInfo struct {
	Ready     bool   `json:"ready"`
	Building  bool   `json:"building"`
	NChunks   int    `json:"n_chunks"`
	RulesHash string `json:"rules_hash,omitempty"`
}

type sessionIndex struct {
	state    string
	snapshot *Snapshot
	counter  uint64 // latest rebuild request; stale builds discard their result
}

// Manager owns the per-session indexes. Readers see an immutable snapshot
// pointer; a finished rebuild swapping that pointer is the only visible
// write. Concurrent rebuild requests resolve last-writer-wins.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*sessionIndex

	contexts store.ContextStore
	embedder Embedder
	cache    *Cache
	log      *slog.Logger

	gcSchedule string
	gcMaxAge   time.Duration
}

// NewManager builds an index manager. gcSchedule may be empty to disable
// cache GC.
func NewManager(contexts store.ContextStore, embedder Embedder, cache *Cache, log *slog.Logger, gcSchedule string, gcMaxAge time.Duration) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		sessions:   make(map[string]*sessionIndex),
		contexts:   contexts,
		embedder:   embedder,
		cache:      cache,
		log:        log,
		gcSchedule: gcSchedule,
		gcMaxAge:   gcMaxAge,
	}
}

func (m *Manager) get(session string) *sessionIndex {
	st, ok := m.sessions[session]
	if !ok {
		st = &sessionIndex{state: StateEmpty}
		m.sessions[session] = st
	}
	return st
}

// RequestRebuild marks the session's index stale and starts an async
// rebuild. Any build still in flight for an older request discards its
// result when it finishes.
func (m *Manager) RequestRebuild(session string) {
	m.mu.Lock()
	st := m.get(session)
	st.counter++
	gen := st.counter
	st.state = StateBuilding
	m.mu.Unlock()

	go m.build(session, gen)
}

func (m *Manager) build(session string, gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), rebuildTimeout)
	defer cancel()

	snapshot, err := m.buildSnapshot(ctx, session)
	if err != nil {
		m.log.Error("index rebuild failed", "session", session, "error", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.get(session)
	if st.counter != gen {
		return // a newer request owns the state now
	}
	if err != nil || snapshot == nil || snapshot.Len() == 0 {
		st.state = StateEmpty
		st.snapshot = nil
		return
	}
	st.snapshot = snapshot
	st.state = StateReady
}

func (m *Manager) buildSnapshot(ctx context.Context, session string) (*Snapshot, error) {
	rows, err := m.contexts.ListActive(ctx, session)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	hash := RulesHash(rows)
	dim := m.embedder.Dimension()

	if chunks, vectors, _, ok := m.cache.Load(hash, dim); ok {
		m.log.Debug("index loaded from cache", "session", session, "hash", hash, "chunks", len(chunks))
		return NewSnapshot(hash, chunks, vectors, dim), nil
	}

	chunks := BuildChunks(rows)
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	flat := make([]float32, 0, len(chunks)*dim)
	for _, v := range vecs {
		Normalize(v)
		flat = append(flat, v...)
	}

	meta := CacheMeta{
		NChunks:          len(chunks),
		Dim:              dim,
		EmbeddingModelID: m.embedder.Name(),
		CreatedAt:        time.Now().UTC().Format(time.RFC3339),
	}
	if err := m.cache.Store(hash, chunks, flat, meta); err != nil {
		m.log.Warn("cache write failed", "hash", hash, "error", err)
	}

	m.log.Info("index built", "session", session, "hash", hash, "chunks", len(chunks))
	return NewSnapshot(hash, chunks, flat, dim), nil
}

// Status reports the session's index state. A session whose context is
// non-empty but whose index is neither ready nor building gets a rebuild
// kicked off and reports building.
func (m *Manager) Status(ctx context.Context, session string) StatusInfo {
	m.mu.Lock()
	st := m.get(session)
	state := st.state
	snapshot := st.snapshot
	m.mu.Unlock()

	switch state {
	case StateReady:
		return StatusInfo{Ready: true, NChunks: snapshot.Len(), RulesHash: snapshot.Hash}
	case StateBuilding:
		return StatusInfo{Building: true}
	}

	rows, err := m.contexts.ListActive(ctx, session)
	if err != nil {
		m.log.Warn("context lookup failed", "session", session, "error", err)
		return StatusInfo{}
	}
	if len(rows) == 0 {
		return StatusInfo{}
	}

	m.RequestRebuild(session)
	return StatusInfo{Building: true}
}

// Retrieve returns the top-k chunks for the query. ready is false when the
// session has no ready index; the caller proceeds without context.
func (m *Manager) Retrieve(ctx context.Context, session, query string, k int) (hits []Hit, ready bool, err error) {
	m.mu.Lock()
	st := m.get(session)
	snapshot := st.snapshot
	isReady := st.state == StateReady
	m.mu.Unlock()

	if !isReady || snapshot.Len() == 0 {
		return nil, false, nil
	}

	vec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, true, err
	}
	Normalize(vec)
	return snapshot.Search(vec, k), true, nil
}

// RunGC periodically removes cache entries past the age limit, keeping
// hashes still referenced by a live snapshot. Blocks until ctx is done.
func (m *Manager) RunGC(ctx context.Context) error {
	if m.gcSchedule == "" || m.gcMaxAge <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	gron := gronx.New()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastRun time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := time.Now()
			minute := now.Truncate(time.Minute)
			if minute.Equal(lastRun) {
				continue
			}
			due, err := gron.IsDue(m.gcSchedule, now)
			if err != nil || !due {
				continue
			}
			lastRun = minute
			m.gcOnce()
		}
	}
}

func (m *Manager) gcOnce() {
	live := make(map[string]bool)
	m.mu.Lock()
	for _, st := range m.sessions {
		if st.snapshot != nil {
			live[st.snapshot.Hash] = true
		}
	}
	m.mu.Unlock()

	removed, err := m.cache.GC(m.gcMaxAge, func(hash string) bool { return live[hash] })
	if err != nil {
		m.log.Warn("cache gc failed", "error", err)
		return
	}
	if removed > 0 {
		m.log.Info("cache gc removed entries", "count", removed)
	}
}
