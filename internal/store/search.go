package store

import (
	"context"
	"fmt"

	"github.com/kodesmith/searchcore/internal/metadata"
	"github.com/kodesmith/searchcore/pkg/failure"
)

const searchDocumentsSQL = `
SELECT url, title, description,
	ts_headline('english', text_content, plainto_tsquery('english', $1),
		'MaxFragments=1, MaxWords=40, MinWords=15')
FROM documents
WHERE search_vector @@ plainto_tsquery('english', $1)
   OR title ILIKE '%' || $1 || '%'
ORDER BY ts_rank(search_vector, plainto_tsquery('english', $1)) DESC
LIMIT $2 OFFSET $3
`

// SearchDocumentsByText is the degraded-path search C8 falls back to when
// the Index reports a backend error (§4.8). Deliberately cruder than C6's
// bleve scoring: its only job is to still answer something.
func (s *PostgresStore) SearchDocumentsByText(ctx context.Context, query string, limit, offset int) ([]DocProjection, failure.ClassifiedError) {
	rows, err := s.pool.Query(ctx, searchDocumentsSQL, query, limit, offset)
	if err != nil {
		storeErr := &StoreError{Message: fmt.Sprintf("search documents: %v", err), Retryable: true, Cause: ErrCauseQueryFailed}
		s.recordError("SearchDocumentsByText", storeErr, []metadata.Attribute{metadata.NewAttr(metadata.AttrField, query)})
		return nil, storeErr
	}
	defer rows.Close()

	var projections []DocProjection
	for rows.Next() {
		var p DocProjection
		if err := rows.Scan(&p.URL, &p.Title, &p.Description, &p.Snippet); err != nil {
			storeErr := &StoreError{Message: fmt.Sprintf("search documents scan: %v", err), Retryable: false, Cause: ErrCauseQueryFailed}
			s.recordError("SearchDocumentsByText", storeErr, nil)
			return nil, storeErr
		}
		projections = append(projections, p)
	}
	if err := rows.Err(); err != nil {
		storeErr := &StoreError{Message: fmt.Sprintf("search documents rows: %v", err), Retryable: true, Cause: ErrCauseQueryFailed}
		s.recordError("SearchDocumentsByText", storeErr, nil)
		return nil, storeErr
	}
	return projections, nil
}

const countDocumentsMatchingSQL = `
SELECT count(*) FROM documents
WHERE search_vector @@ plainto_tsquery('english', $1)
   OR title ILIKE '%' || $1 || '%'
`

func (s *PostgresStore) CountDocumentsMatching(ctx context.Context, query string) (uint64, failure.ClassifiedError) {
	var count uint64
	if err := s.pool.QueryRow(ctx, countDocumentsMatchingSQL, query).Scan(&count); err != nil {
		storeErr := &StoreError{Message: fmt.Sprintf("count documents: %v", err), Retryable: true, Cause: ErrCauseQueryFailed}
		s.recordError("CountDocumentsMatching", storeErr, []metadata.Attribute{metadata.NewAttr(metadata.AttrField, query)})
		return 0, storeErr
	}
	return count, nil
}
