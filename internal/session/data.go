package session

import "time"

// Status is the lifecycle state of a session. Transitions are strictly
// forward: starting -> running -> completing -> {completed, stopped, failed}.
type Status string

const (
	StatusStarting   Status = "starting"
	StatusRunning    Status = "running"
	StatusCompleting Status = "completing"
	StatusCompleted  Status = "completed"
	StatusStopped    Status = "stopped"
	StatusFailed     Status = "failed"
)

// active reports whether s counts against the concurrent-session cap.
func (s Status) active() bool {
	return s == StatusStarting || s == StatusRunning || s == StatusCompleting
}

// CrawlResult is one completed fetch's outcome, the unit results() returns.
type CrawlResult struct {
	URL         string
	Status      string
	HTTPStatus  int
	Title       string
	Error       string
	CompletedAt time.Time
}

// SessionStatus is the status() projection: counts plus lifecycle state,
// never the full result list (that's results()).
type SessionStatus struct {
	SessionID    string
	Status       Status
	SeedURL      string
	PagesCrawled int
	ErrorCount   int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// CompletionCallback is invoked exactly once, after every worker for a
// session has observed its terminal state, never on the caller's own
// goroutine (§4.7, §9 — a slow callback must not stall worker teardown).
type CompletionCallback func(sessionID string, results []CrawlResult)
