package index

import (
	"context"
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/kodesmith/searchcore/internal/metadata"
	"github.com/kodesmith/searchcore/internal/store"
	"github.com/kodesmith/searchcore/pkg/failure"
)

// Index is the Search Index contract (C6): a field-weighted full-text index
// kept eventually consistent with the Document Store, never the source of
// truth itself.
type Index interface {
	Upsert(docID string, fields Fields) failure.ClassifiedError
	Query(text string, limit, offset int) ([]Hit, uint64, failure.ClassifiedError)
	Delete(docID string) failure.ClassifiedError
	Close() failure.ClassifiedError
	DocCount() (uint64, failure.ClassifiedError)
}

// Hit is one ranked result from Query.
type Hit struct {
	DocID string
	Score float64
	Fields
}

var _ Index = (*BleveIndex)(nil)

// BleveIndex implements Index over an on-disk bleve index.
type BleveIndex struct {
	idx          bleve.Index
	metadataSink metadata.MetadataSink
}

// OpenBleveIndex opens the index at path, creating it with the field
// mapping in mapping.go if it does not already exist.
func OpenBleveIndex(path string, metadataSink metadata.MetadataSink) (*BleveIndex, failure.ClassifiedError) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildMapping())
	}
	if err != nil {
		return nil, &IndexError{
			Message:   fmt.Sprintf("failed to open index at %s: %v", path, err),
			Retryable: false,
			Cause:     ErrCauseBackendUnavailable,
		}
	}
	return &BleveIndex{idx: idx, metadataSink: metadataSink}, nil
}

func (b *BleveIndex) Close() failure.ClassifiedError {
	if err := b.idx.Close(); err != nil {
		return &IndexError{Message: fmt.Sprintf("close index: %v", err), Retryable: false, Cause: ErrCauseBackendUnavailable}
	}
	return nil
}

func (b *BleveIndex) Upsert(docID string, fields Fields) failure.ClassifiedError {
	if err := b.idx.Index(docID, fields); err != nil {
		indexErr := &IndexError{Message: fmt.Sprintf("upsert %s: %v", docID, err), Retryable: true, Cause: ErrCauseWriteFailed}
		b.recordError("Upsert", indexErr, docID)
		return indexErr
	}
	return nil
}

func (b *BleveIndex) Delete(docID string) failure.ClassifiedError {
	if err := b.idx.Delete(docID); err != nil {
		indexErr := &IndexError{Message: fmt.Sprintf("delete %s: %v", docID, err), Retryable: true, Cause: ErrCauseWriteFailed}
		b.recordError("Delete", indexErr, docID)
		return indexErr
	}
	return nil
}

func (b *BleveIndex) DocCount() (uint64, failure.ClassifiedError) {
	count, err := b.idx.DocCount()
	if err != nil {
		return 0, &IndexError{Message: fmt.Sprintf("doc count: %v", err), Retryable: true, Cause: ErrCauseBackendUnavailable}
	}
	return count, nil
}

func (b *BleveIndex) recordError(action string, err *IndexError, docID string) {
	if b.metadataSink == nil || err == nil {
		return
	}
	b.metadataSink.RecordError(time.Now(), "index", action, mapIndexErrorToMetadataCause(err), err.Error(),
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrField, docID)})
}

// ReconcileFromStore rebuilds the index from scratch by paging through
// every Document in s, per spec §4.6's "Index must tolerate being rebuilt
// from Store" requirement. Invoked from the reindex CLI subcommand, never
// from a request path.
func ReconcileFromStore(ctx context.Context, idx *BleveIndex, s store.Store, pageSize int) (int, failure.ClassifiedError) {
	if pageSize <= 0 {
		pageSize = 500
	}
	total := 0
	for offset := 0; ; offset += pageSize {
		select {
		case <-ctx.Done():
			return total, &IndexError{Message: "reconciliation cancelled", Retryable: false, Cause: ErrCauseBackendUnavailable}
		default:
		}

		docs, err := s.ListDocuments(ctx, pageSize, offset)
		if err != nil {
			return total, &IndexError{Message: fmt.Sprintf("reconcile list documents: %v", err), Retryable: true, Cause: ErrCauseBackendUnavailable}
		}
		if len(docs) == 0 {
			break
		}
		for _, doc := range docs {
			fields := Fields{
				Title:       doc.Title,
				Description: doc.Description,
				Text:        doc.TextContent,
				URL:         doc.URL,
				Domain:      doc.Domain,
			}
			if upsertErr := idx.Upsert(doc.NormalizedURL, fields); upsertErr != nil {
				return total, upsertErr
			}
			total++
		}
		if len(docs) < pageSize {
			break
		}
	}
	return total, nil
}
