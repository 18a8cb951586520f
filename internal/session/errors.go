package session

import (
	"fmt"

	"github.com/kodesmith/searchcore/internal/metadata"
	"github.com/kodesmith/searchcore/pkg/failure"
)

type SessionErrorCause string

const (
	ErrCauseSessionLimit    SessionErrorCause = "session limit reached"
	ErrCauseNotFound        SessionErrorCause = "session not found"
	ErrCauseInvalidConfig   SessionErrorCause = "invalid session config"
)

// SessionError carries RetryAfter for the session_limit case so the HTTP
// boundary can set a Retry-After header without re-deriving the value.
type SessionError struct {
	Message    string
	Retryable  bool
	Cause      SessionErrorCause
	RetryAfter int
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session error: %s: %s", e.Cause, e.Message)
}

func (e *SessionError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *SessionError) IsRetryable() bool {
	return e.Retryable
}

func mapSessionErrorToMetadataCause(err *SessionError) metadata.ErrorCause {
	if err == nil {
		return metadata.CauseUnknown
	}
	switch err.Cause {
	case ErrCauseSessionLimit:
		return metadata.CauseSessionLimit
	case ErrCauseInvalidConfig:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
