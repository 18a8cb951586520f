package index

import (
	"fmt"

	"github.com/kodesmith/searchcore/internal/metadata"
	"github.com/kodesmith/searchcore/pkg/failure"
)

type IndexErrorCause string

const (
	ErrCauseBackendUnavailable IndexErrorCause = "backend unavailable"
	ErrCauseWriteFailed        IndexErrorCause = "write failed"
	ErrCauseQueryFailed        IndexErrorCause = "query failed"
	ErrCauseUnknownField       IndexErrorCause = "unknown field"
	// ErrCauseIndexUnknown marks an index that exists but holds nothing
	// queryable yet (freshly created, never reconciled). The Search
	// Service treats this as "return empty", not a backend failure.
	ErrCauseIndexUnknown IndexErrorCause = "index unknown"
)

type IndexError struct {
	Message   string
	Retryable bool
	Cause     IndexErrorCause
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index error: %s: %s", e.Cause, e.Message)
}

func (e *IndexError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *IndexError) IsRetryable() bool {
	return e.Retryable
}

func mapIndexErrorToMetadataCause(err *IndexError) metadata.ErrorCause {
	if err == nil {
		return metadata.CauseUnknown
	}
	switch err.Cause {
	case ErrCauseBackendUnavailable, ErrCauseWriteFailed, ErrCauseQueryFailed:
		return metadata.CauseIndexFailure
	default:
		return metadata.CauseUnknown
	}
}
