package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/kodesmith/searchcore/internal/metadata"
	"github.com/kodesmith/searchcore/pkg/failure"
	"github.com/kodesmith/searchcore/pkg/retry"
)

const appendAPIRequestLogSQL = `
INSERT INTO api_request_logs (
	endpoint, method, client_ip, user_agent, started_at, duration_ms, outcome, session_id, error_message
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`

// AppendAPIRequestLog persists one ApiRequestLog. Called exclusively from
// the Request Log Writer's (C9) drain goroutine, never from a request
// handler's own goroutine.
func (s *PostgresStore) AppendAPIRequestLog(ctx context.Context, entry ApiRequestLog) failure.ClassifiedError {
	task := func() (struct{}, failure.ClassifiedError) {
		_, err := s.pool.Exec(ctx, appendAPIRequestLogSQL,
			entry.Endpoint, entry.Method, entry.ClientIP, entry.UserAgent, entry.StartedAt,
			entry.DurationMs, entry.Outcome, entry.SessionID, entry.ErrorMessage,
		)
		if err != nil {
			return struct{}{}, &StoreError{
				Message:   fmt.Sprintf("append api request log: %v", err),
				Retryable: true,
				Cause:     ErrCauseWriteFailed,
			}
		}
		return struct{}{}, nil
	}

	result := retry.Retry(s.writeRetry, task)
	if result.IsFailure() {
		var storeErr *StoreError
		errors.As(result.Err(), &storeErr)
		s.recordError("AppendAPIRequestLog", storeErr, []metadata.Attribute{
			metadata.NewAttr(metadata.AttrField, entry.Endpoint),
		})
		return result.Err()
	}
	return nil
}
