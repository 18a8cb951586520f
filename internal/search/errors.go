package search

import (
	"fmt"

	"github.com/kodesmith/searchcore/internal/metadata"
	"github.com/kodesmith/searchcore/pkg/failure"
)

type SearchErrorCause string

const (
	ErrCauseInvalidBounds SearchErrorCause = "invalid bounds"
	ErrCauseBackend       SearchErrorCause = "backend unavailable"
)

type SearchError struct {
	Message   string
	Retryable bool
	Cause     SearchErrorCause
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search error: %s: %s", e.Cause, e.Message)
}

func (e *SearchError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func mapSearchErrorToMetadataCause(err *SearchError) metadata.ErrorCause {
	if err == nil {
		return metadata.CauseUnknown
	}
	switch err.Cause {
	case ErrCauseBackend:
		return metadata.CauseStorageFailure
	case ErrCauseInvalidBounds:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
