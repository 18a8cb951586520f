package metadata

import (
	"log/slog"
	"time"
)

/*
Recorder is the concrete MetadataSink/CrawlFinalizer backend. It turns
pipeline observability calls into structured log records rather than ad-hoc
fmt.Sprintf strings, so every fetch, error, and artifact event carries the
same field names regardless of which package emitted it.

Goals:
  - fetch timestamps, HTTP status, content hashes, and crawl depth must be
    recoverable from the log stream alone (post-run auditability)
  - failures must be diagnosable without attaching a debugger
  - logging must never block or fail the operation being observed
*/
type Recorder struct {
	logger *slog.Logger
	tag    string
}

// NewRecorder builds a Recorder that writes through the given logger,
// tagging every record with a component name (e.g. a session ID or worker
// label) so concurrent sessions' events can be told apart in the stream.
func NewRecorder(logger *slog.Logger, tag string) Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return Recorder{logger: logger, tag: tag}
}

var _ MetadataSink = (*Recorder)(nil)
var _ CrawlFinalizer = (*Recorder)(nil)

func (r *Recorder) RecordFetch(fetchUrl string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int) {
	r.logger.Info("fetch",
		"component", r.tag,
		"url", fetchUrl,
		"http_status", httpStatus,
		"duration_ms", duration.Milliseconds(),
		"content_type", contentType,
		"retry_count", retryCount,
		"depth", crawlDepth,
	)
}

func (r *Recorder) RecordError(observedAt time.Time, packageName, action string, cause ErrorCause, errorString string, attrs []Attribute) {
	args := make([]any, 0, 10+len(attrs)*2)
	args = append(args,
		"component", r.tag,
		"observed_at", observedAt,
		"package", packageName,
		"action", action,
		"cause", causeLabel(cause),
		"error", errorString,
	)
	for _, a := range attrs {
		args = append(args, string(a.Key), a.Value)
	}
	r.logger.Warn("pipeline_error", args...)
}

func (r *Recorder) RecordArtifact(paths string) {
	r.logger.Debug("artifact", "component", r.tag, "paths", paths)
}

func (r *Recorder) RecordFinalCrawlStats(totalPages, totalErrors, totalAssets int, duration time.Duration) {
	r.logger.Info("session_complete",
		"component", r.tag,
		"total_pages", totalPages,
		"total_errors", totalErrors,
		"total_assets", totalAssets,
		"duration_ms", duration.Milliseconds(),
	)
}

func causeLabel(c ErrorCause) string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CausePolicyDisallow:
		return "policy_disallow"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseInvariantViolation:
		return "invariant_violation"
	case CauseRetryFailure:
		return "retry_failure"
	case CauseIndexFailure:
		return "index_failure"
	case CauseSessionLimit:
		return "session_limit"
	default:
		return "unknown"
	}
}
