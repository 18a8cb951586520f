package store

import (
	"fmt"

	"github.com/kodesmith/searchcore/internal/metadata"
	"github.com/kodesmith/searchcore/pkg/failure"
)

type StoreErrorCause string

const (
	ErrCauseBackendUnavailable StoreErrorCause = "backend unavailable"
	ErrCauseQueryFailed        StoreErrorCause = "query failed"
	ErrCauseWriteFailed        StoreErrorCause = "write failed"
	ErrCauseNotFound           StoreErrorCause = "not found"
	ErrCauseMigrationFailed    StoreErrorCause = "migration failed"
)

type StoreError struct {
	Message   string
	Retryable bool
	Cause     StoreErrorCause
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: %s: %s", e.Cause, e.Message)
}

func (e *StoreError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *StoreError) IsRetryable() bool {
	return e.Retryable
}

// mapStoreErrorToMetadataCause maps store-local error semantics to the
// canonical metadata.ErrorCause table. Observational only.
func mapStoreErrorToMetadataCause(err *StoreError) metadata.ErrorCause {
	if err == nil {
		return metadata.CauseUnknown
	}
	switch err.Cause {
	case ErrCauseBackendUnavailable, ErrCauseQueryFailed, ErrCauseWriteFailed, ErrCauseMigrationFailed:
		return metadata.CauseStorageFailure
	case ErrCauseNotFound:
		return metadata.CauseUnknown
	default:
		return metadata.CauseUnknown
	}
}
