package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/kodesmith/searchcore/internal/metadata"
	"github.com/kodesmith/searchcore/pkg/failure"
	"github.com/kodesmith/searchcore/pkg/retry"
)

const appendCrawlLogSQL = `
INSERT INTO crawl_logs (
	url, domain, crawl_time, status, http_status, content_size, content_type,
	links, title, description, download_time_ms, error_message, session_id
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`

// AppendCrawlLog writes an immutable crawl record. Retried like every other
// write path (§4.5); a dropped CrawlLog would silently understate a
// session's results_count.
func (s *PostgresStore) AppendCrawlLog(ctx context.Context, log CrawlLog) failure.ClassifiedError {
	task := func() (struct{}, failure.ClassifiedError) {
		_, err := s.pool.Exec(ctx, appendCrawlLogSQL,
			log.URL, log.Domain, log.CrawlTime, string(log.Status), log.HTTPStatus, log.ContentSize, log.ContentType,
			log.Links, log.Title, log.Description, log.DownloadTimeMs, log.ErrorMessage, log.SessionID,
		)
		if err != nil {
			return struct{}{}, &StoreError{
				Message:   fmt.Sprintf("append crawl log: %v", err),
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
		s.recordError("AppendCrawlLog", storeErr, []metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, log.URL),
			metadata.NewAttr(metadata.AttrSessionID, log.SessionID),
		})
		return result.Err()
	}
	return nil
}

const crawlLogsByURLSQL = `
SELECT url, domain, crawl_time, status, http_status, content_size, content_type,
	links, title, description, download_time_ms, error_message, session_id
FROM crawl_logs WHERE url = $1 ORDER BY crawl_time DESC LIMIT $2 OFFSET $3
`

func (s *PostgresStore) GetCrawlLogsByURL(ctx context.Context, url string, limit, offset int) ([]CrawlLog, failure.ClassifiedError) {
	return s.queryCrawlLogs(ctx, crawlLogsByURLSQL, url, limit, offset, "GetCrawlLogsByURL")
}

const crawlLogsByDomainSQL = `
SELECT url, domain, crawl_time, status, http_status, content_size, content_type,
	links, title, description, download_time_ms, error_message, session_id
FROM crawl_logs WHERE domain = $1 ORDER BY crawl_time DESC LIMIT $2 OFFSET $3
`

func (s *PostgresStore) GetCrawlLogsByDomain(ctx context.Context, domain string, limit, offset int) ([]CrawlLog, failure.ClassifiedError) {
	return s.queryCrawlLogs(ctx, crawlLogsByDomainSQL, domain, limit, offset, "GetCrawlLogsByDomain")
}

func (s *PostgresStore) queryCrawlLogs(ctx context.Context, query, key string, limit, offset int, action string) ([]CrawlLog, failure.ClassifiedError) {
	rows, err := s.pool.Query(ctx, query, key, limit, offset)
	if err != nil {
		storeErr := &StoreError{Message: fmt.Sprintf("%s: %v", action, err), Retryable: true, Cause: ErrCauseQueryFailed}
		s.recordError(action, storeErr, []metadata.Attribute{metadata.NewAttr(metadata.AttrField, key)})
		return nil, storeErr
	}
	defer rows.Close()

	var logs []CrawlLog
	for rows.Next() {
		var log CrawlLog
		var status string
		if err := rows.Scan(
			&log.URL, &log.Domain, &log.CrawlTime, &status, &log.HTTPStatus, &log.ContentSize, &log.ContentType,
			&log.Links, &log.Title, &log.Description, &log.DownloadTimeMs, &log.ErrorMessage, &log.SessionID,
		); err != nil {
			storeErr := &StoreError{Message: fmt.Sprintf("%s scan: %v", action, err), Retryable: false, Cause: ErrCauseQueryFailed}
			s.recordError(action, storeErr, nil)
			return nil, storeErr
		}
		log.Status = CrawlStatus(status)
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		storeErr := &StoreError{Message: fmt.Sprintf("%s rows: %v", action, err), Retryable: true, Cause: ErrCauseQueryFailed}
		s.recordError(action, storeErr, nil)
		return nil, storeErr
	}
	return logs, nil
}
