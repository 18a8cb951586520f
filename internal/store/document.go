package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kodesmith/searchcore/internal/metadata"
	"github.com/kodesmith/searchcore/pkg/failure"
	"github.com/kodesmith/searchcore/pkg/retry"
)

const upsertDocumentSQL = `
INSERT INTO documents (
	normalized_url, url, domain, title, description, text_content,
	raw_bytes_hash, content_type, links, language, first_seen, last_crawled,
	word_count, quality_score
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (normalized_url) DO UPDATE SET
	url = EXCLUDED.url,
	domain = EXCLUDED.domain,
	title = EXCLUDED.title,
	description = EXCLUDED.description,
	text_content = EXCLUDED.text_content,
	raw_bytes_hash = EXCLUDED.raw_bytes_hash,
	content_type = EXCLUDED.content_type,
	links = EXCLUDED.links,
	language = EXCLUDED.language,
	last_crawled = EXCLUDED.last_crawled,
	word_count = EXCLUDED.word_count,
	quality_score = EXCLUDED.quality_score
`

// UpsertDocument writes or overwrites the Document keyed by NormalizedURL,
// retried per §4.5's bounded exponential backoff policy since this is the
// write path a transient Postgres hiccup should not fail a whole crawl for.
func (s *PostgresStore) UpsertDocument(ctx context.Context, doc Document) failure.ClassifiedError {
	task := func() (struct{}, failure.ClassifiedError) {
		_, err := s.pool.Exec(ctx, upsertDocumentSQL,
			doc.NormalizedURL, doc.URL, doc.Domain, doc.Title, doc.Description, doc.TextContent,
			doc.RawBytesHash, doc.ContentType, doc.Links, doc.Language, doc.FirstSeen, doc.LastCrawled,
			doc.WordCount, doc.QualityScore,
		)
		if err != nil {
			return struct{}{}, &StoreError{
				Message:   fmt.Sprintf("upsert document: %v", err),
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
		s.recordError("UpsertDocument", storeErr, []metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, doc.NormalizedURL),
		})
		return result.Err()
	}
	return nil
}

const getDocumentSQL = `
SELECT normalized_url, url, domain, title, description, text_content,
	raw_bytes_hash, content_type, links, language, first_seen, last_crawled,
	word_count, quality_score
FROM documents WHERE normalized_url = $1
`

// GetDocument returns nil, nil when no document exists for normalizedURL.
func (s *PostgresStore) GetDocument(ctx context.Context, normalizedURL string) (*Document, failure.ClassifiedError) {
	row := s.pool.QueryRow(ctx, getDocumentSQL, normalizedURL)

	var doc Document
	err := row.Scan(
		&doc.NormalizedURL, &doc.URL, &doc.Domain, &doc.Title, &doc.Description, &doc.TextContent,
		&doc.RawBytesHash, &doc.ContentType, &doc.Links, &doc.Language, &doc.FirstSeen, &doc.LastCrawled,
		&doc.WordCount, &doc.QualityScore,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		storeErr := &StoreError{
			Message:   fmt.Sprintf("get document: %v", err),
			Retryable: true,
			Cause:     ErrCauseQueryFailed,
		}
		s.recordError("GetDocument", storeErr, []metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, normalizedURL),
		})
		return nil, storeErr
	}
	return &doc, nil
}

const listDocumentsSQL = `
SELECT normalized_url, url, domain, title, description, text_content,
	raw_bytes_hash, content_type, links, language, first_seen, last_crawled,
	word_count, quality_score
FROM documents ORDER BY normalized_url LIMIT $1 OFFSET $2
`

// ListDocuments pages through every stored Document in a stable order, used
// by the Index's ReconcileFromStore rebuild.
func (s *PostgresStore) ListDocuments(ctx context.Context, limit, offset int) ([]Document, failure.ClassifiedError) {
	rows, err := s.pool.Query(ctx, listDocumentsSQL, limit, offset)
	if err != nil {
		storeErr := &StoreError{Message: fmt.Sprintf("list documents: %v", err), Retryable: true, Cause: ErrCauseQueryFailed}
		s.recordError("ListDocuments", storeErr, nil)
		return nil, storeErr
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(
			&doc.NormalizedURL, &doc.URL, &doc.Domain, &doc.Title, &doc.Description, &doc.TextContent,
			&doc.RawBytesHash, &doc.ContentType, &doc.Links, &doc.Language, &doc.FirstSeen, &doc.LastCrawled,
			&doc.WordCount, &doc.QualityScore,
		); err != nil {
			storeErr := &StoreError{Message: fmt.Sprintf("list documents scan: %v", err), Retryable: false, Cause: ErrCauseQueryFailed}
			s.recordError("ListDocuments", storeErr, nil)
			return nil, storeErr
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		storeErr := &StoreError{Message: fmt.Sprintf("list documents rows: %v", err), Retryable: true, Cause: ErrCauseQueryFailed}
		s.recordError("ListDocuments", storeErr, nil)
		return nil, storeErr
	}
	return docs, nil
}
