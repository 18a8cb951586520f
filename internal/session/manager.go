package session

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kodesmith/searchcore/internal/config"
	"github.com/kodesmith/searchcore/internal/index"
	"github.com/kodesmith/searchcore/internal/metadata"
	"github.com/kodesmith/searchcore/internal/store"
	"github.com/kodesmith/searchcore/pkg/failure"
)

// Manager is the Crawl Session Manager (C7) and, per §9, the
// dependency-injection root: it is built once with concrete Store, Index,
// and metadata handles, and every session's worker pool reuses those same
// handles rather than constructing its own.
type Manager struct {
	mu            sync.Mutex
	sessions      map[string]*runningSession
	maxConcurrent int

	store        store.Store
	idx          index.Index
	metadataSink metadata.MetadataSink
}

// runningSession is the manager's private handle on one session; Session*
// exported types are the read-only projections callers see.
type runningSession struct {
	mu      sync.Mutex
	id      string
	seedURL string
	cfg     config.Config
	status  Status
	started time.Time
	finished time.Time
	pages   int
	errors  int
	results []CrawlResult
	cancel  context.CancelFunc
}

func NewManager(maxConcurrent int, st store.Store, idx index.Index, metadataSink metadata.MetadataSink) *Manager {
	return &Manager{
		sessions:      make(map[string]*runningSession),
		maxConcurrent: maxConcurrent,
		store:         st,
		idx:           idx,
		metadataSink:  metadataSink,
	}
}

// Start validates the concurrent-session cap, allocates a session, and
// launches its worker pool in the background. It never blocks on the crawl
// itself.
func (m *Manager) Start(seedURL url.URL, cfg config.Config, cb CompletionCallback) (string, failure.ClassifiedError) {
	m.mu.Lock()
	if cfg.StopPreviousSessions() {
		for _, rs := range m.sessions {
			m.stopLocked(rs)
		}
	}
	active := m.countActiveLocked()
	if active >= m.maxConcurrent {
		m.mu.Unlock()
		return "", &SessionError{
			Message:    "concurrent session cap reached",
			Retryable:  true,
			Cause:      ErrCauseSessionLimit,
			RetryAfter: 30,
		}
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	rs := &runningSession{
		id:      id,
		seedURL: seedURL.String(),
		cfg:     cfg,
		status:  StatusStarting,
		started: time.Now(),
		cancel:  cancel,
	}
	m.sessions[id] = rs
	m.mu.Unlock()

	worker := newSessionWorker(rs, m.store, m.idx, m.metadataSink)
	go m.run(ctx, rs, worker, cb)

	return id, nil
}

func (m *Manager) run(ctx context.Context, rs *runningSession, worker *sessionWorker, cb CompletionCallback) {
	rs.mu.Lock()
	rs.status = StatusRunning
	rs.mu.Unlock()

	worker.crawl(ctx)

	rs.mu.Lock()
	rs.status = StatusCompleting
	results := append([]CrawlResult(nil), rs.results...)
	sessionID := rs.id
	rs.mu.Unlock()

	if cb != nil {
		go cb(sessionID, results)
	}

	rs.mu.Lock()
	select {
	case <-ctx.Done():
		rs.status = StatusStopped
	default:
		rs.status = StatusCompleted
	}
	rs.finished = time.Now()
	rs.mu.Unlock()
}

// Stop is idempotent: stopping an already-terminal session is a no-op.
func (m *Manager) Stop(sessionID string) failure.ClassifiedError {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs, ok := m.sessions[sessionID]
	if !ok {
		return &SessionError{Message: sessionID, Retryable: false, Cause: ErrCauseNotFound}
	}
	m.stopLocked(rs)
	return nil
}

func (m *Manager) stopLocked(rs *runningSession) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if !rs.status.active() {
		return
	}
	if rs.cancel != nil {
		rs.cancel()
	}
}

func (m *Manager) Status(sessionID string) (SessionStatus, failure.ClassifiedError) {
	m.mu.Lock()
	rs, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return SessionStatus{}, &SessionError{Message: sessionID, Retryable: false, Cause: ErrCauseNotFound}
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	return SessionStatus{
		SessionID:    rs.id,
		Status:       rs.status,
		SeedURL:      rs.seedURL,
		PagesCrawled: rs.pages,
		ErrorCount:   rs.errors,
		StartedAt:    rs.started,
		FinishedAt:   rs.finished,
	}, nil
}

// Results returns up to max CrawlResults, newest first.
func (m *Manager) Results(sessionID string, max int) ([]CrawlResult, failure.ClassifiedError) {
	m.mu.Lock()
	rs, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil, &SessionError{Message: sessionID, Retryable: false, Cause: ErrCauseNotFound}
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	n := len(rs.results)
	if max > 0 && max < n {
		n = max
	}
	out := make([]CrawlResult, n)
	for i := 0; i < n; i++ {
		out[i] = rs.results[len(rs.results)-1-i]
	}
	return out, nil
}

func (m *Manager) ActiveSessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, rs := range m.sessions {
		rs.mu.Lock()
		active := rs.status.active()
		rs.mu.Unlock()
		if active {
			ids = append(ids, id)
		}
	}
	return ids
}

func (m *Manager) countActiveLocked() int {
	count := 0
	for _, rs := range m.sessions {
		rs.mu.Lock()
		if rs.status.active() {
			count++
		}
		rs.mu.Unlock()
	}
	return count
}
