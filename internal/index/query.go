package index

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kodesmith/searchcore/pkg/failure"
)

// Field boosts: title matches rank well above a hit buried in body text.
const (
	titleBoost       = 4.0
	descriptionBoost = 2.0
	textBoost        = 1.0
)

func (b *BleveIndex) Query(text string, limit, offset int) ([]Hit, uint64, failure.ClassifiedError) {
	if count, err := b.DocCount(); err == nil && count == 0 {
		return nil, 0, &IndexError{Message: "index holds no documents", Retryable: false, Cause: ErrCauseIndexUnknown}
	}

	disjunction := bleve.NewDisjunctionQuery(
		boostedMatch(text, "title", titleBoost),
		boostedMatch(text, "description", descriptionBoost),
		boostedMatch(text, "text", textBoost),
	)

	req := bleve.NewSearchRequestOptions(disjunction, limit, offset, false)
	req.Fields = []string{"title", "description", "text", "url", "domain"}

	result, err := b.idx.Search(req)
	if err != nil {
		indexErr := &IndexError{Message: fmt.Sprintf("query %q: %v", text, err), Retryable: true, Cause: ErrCauseQueryFailed}
		b.recordError("Query", indexErr, text)
		return nil, 0, indexErr
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, docMatch := range result.Hits {
		hits = append(hits, Hit{
			DocID: docMatch.ID,
			Score: docMatch.Score,
			Fields: Fields{
				Title:       stringField(docMatch.Fields, "title"),
				Description: stringField(docMatch.Fields, "description"),
				Text:        stringField(docMatch.Fields, "text"),
				URL:         stringField(docMatch.Fields, "url"),
				Domain:      stringField(docMatch.Fields, "domain"),
			},
		})
	}
	return hits, result.Total, nil
}

func boostedMatch(text, field string, boost float64) query.Query {
	q := bleve.NewMatchQuery(text)
	q.SetField(field)
	q.SetBoost(boost)
	return q
}

func stringField(fields map[string]interface{}, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
