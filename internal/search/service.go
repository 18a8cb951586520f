package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kodesmith/searchcore/internal/index"
	"github.com/kodesmith/searchcore/internal/metadata"
	"github.com/kodesmith/searchcore/internal/store"
	"github.com/kodesmith/searchcore/pkg/failure"
)

// Service is the Search Service (C8): it never touches the Index or Store
// directly from a handler — both routes through here so the degraded-path
// fallback stays in one place.
type Service struct {
	idx          index.Index
	store        store.Store
	metadataSink metadata.MetadataSink
}

func NewService(idx index.Index, st store.Store, metadataSink metadata.MetadataSink) *Service {
	return &Service{idx: idx, store: st, metadataSink: metadataSink}
}

// Search implements §4.8. q is URL-decoded once (a caller passing an
// already-decoded query string is unaffected, since it will not contain
// any percent-escapes to unescape further).
func (s *Service) Search(ctx context.Context, q string, page, limit int) (Response, failure.ClassifiedError) {
	if page < minPage || page > maxPage {
		return Response{}, &SearchError{Message: fmt.Sprintf("page %d out of [%d,%d]", page, minPage, maxPage), Cause: ErrCauseInvalidBounds}
	}
	if limit < minLimit || limit > maxLimit {
		return Response{}, &SearchError{Message: fmt.Sprintf("limit %d out of [%d,%d]", limit, minLimit, maxLimit), Cause: ErrCauseInvalidBounds}
	}

	decoded, unescapeErr := url.QueryUnescape(q)
	if unescapeErr == nil {
		q = decoded
	}

	start := time.Now()
	offset := (page - 1) * limit

	hits, total, err := s.idx.Query(q, limit, offset)
	if err == nil {
		return Response{
			Meta: Meta{Total: total, Page: page, PageSize: limit, QueryTimeMs: time.Since(start).Milliseconds()},
			Hits: toHits(hits),
		}, nil
	}

	var indexErr *index.IndexError
	if errors.As(err, &indexErr) && indexErr.Cause == index.ErrCauseIndexUnknown {
		return Response{Meta: Meta{Total: 0, Page: page, PageSize: limit, QueryTimeMs: time.Since(start).Milliseconds()}}, nil
	}

	projections, count, degradedErr := s.degradeToStore(ctx, q, limit, offset)
	if degradedErr != nil {
		s.recordError("Search", &SearchError{Message: err.Error(), Cause: ErrCauseBackend}, q)
		return Response{}, degradedErr
	}
	return Response{
		Meta: Meta{Total: count, Page: page, PageSize: limit, QueryTimeMs: time.Since(start).Milliseconds(), Degraded: true},
		Hits: toHitsFromProjections(projections),
	}, nil
}

func (s *Service) degradeToStore(ctx context.Context, q string, limit, offset int) ([]store.DocProjection, uint64, failure.ClassifiedError) {
	projections, err := s.store.SearchDocumentsByText(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, &SearchError{Message: err.Error(), Retryable: true, Cause: ErrCauseBackend}
	}
	count, err := s.store.CountDocumentsMatching(ctx, q)
	if err != nil {
		return nil, 0, &SearchError{Message: err.Error(), Retryable: true, Cause: ErrCauseBackend}
	}
	return projections, count, nil
}

func (s *Service) recordError(action string, err *SearchError, q string) {
	if s.metadataSink == nil || err == nil {
		return
	}
	s.metadataSink.RecordError(time.Now(), "search", action, mapSearchErrorToMetadataCause(err), err.Error(),
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrField, q)})
}

func toHits(hits []index.Hit) []Hit {
	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		out = append(out, Hit{URL: h.URL, Title: h.Title, Snippet: snippet(h.Text, h.Description), Score: h.Score})
	}
	return out
}

func toHitsFromProjections(projections []store.DocProjection) []Hit {
	out := make([]Hit, 0, len(projections))
	for _, p := range projections {
		out = append(out, Hit{URL: p.URL, Title: p.Title, Snippet: firstOf(p.Snippet, p.Description)})
	}
	return out
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// snippet prefers ~200 chars of body text with an ellipsis on truncation,
// falling back to a ~300-char word-boundary truncation of description.
func snippet(text, description string) string {
	if text != "" {
		return truncateRunes(text, 200, true)
	}
	return truncateRunes(description, 300, false)
}

func truncateRunes(s string, max int, ellipsis bool) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	cut := runes[:max]
	if last := strings.LastIndexAny(string(cut), " \t\n"); last > 0 {
		cut = []rune(string(cut)[:last])
	}
	out := strings.TrimSpace(string(cut))
	if ellipsis {
		out += "…"
	}
	return out
}
