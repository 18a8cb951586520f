package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/kodesmith/searchcore/internal/metadata"
	"github.com/kodesmith/searchcore/internal/store/migrations"
	"github.com/kodesmith/searchcore/pkg/failure"
	"github.com/kodesmith/searchcore/pkg/retry"
	"github.com/kodesmith/searchcore/pkg/timeutil"
)

// Store is the Document Store contract (C5): durable per-URL documents,
// append-only crawl logs, append-only API request logs, and a crude
// ILIKE/tsvector search used only when the Index is unreachable.
type Store interface {
	UpsertDocument(ctx context.Context, doc Document) failure.ClassifiedError
	GetDocument(ctx context.Context, normalizedURL string) (*Document, failure.ClassifiedError)
	ListDocuments(ctx context.Context, limit, offset int) ([]Document, failure.ClassifiedError)
	AppendCrawlLog(ctx context.Context, log CrawlLog) failure.ClassifiedError
	GetCrawlLogsByURL(ctx context.Context, url string, limit, offset int) ([]CrawlLog, failure.ClassifiedError)
	GetCrawlLogsByDomain(ctx context.Context, domain string, limit, offset int) ([]CrawlLog, failure.ClassifiedError)
	AppendAPIRequestLog(ctx context.Context, entry ApiRequestLog) failure.ClassifiedError
	SearchDocumentsByText(ctx context.Context, query string, limit, offset int) ([]DocProjection, failure.ClassifiedError)
	CountDocumentsMatching(ctx context.Context, query string) (uint64, failure.ClassifiedError)
	Ping(ctx context.Context) failure.ClassifiedError
}

var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store over a pooled pgx connection, per §4.5.
type PostgresStore struct {
	pool         *pgxpool.Pool
	metadataSink metadata.MetadataSink
	writeRetry   retry.RetryParam
}

// defaultWriteRetryParam matches §4.5's suggested policy: 3 attempts, base
// 100ms, factor 2.
func defaultWriteRetryParam() retry.RetryParam {
	return retry.NewRetryParam(
		100*time.Millisecond,
		20*time.Millisecond,
		time.Now().UnixNano(),
		3,
		timeutil.NewBackoffParam(100*time.Millisecond, 2.0, 2*time.Second),
	)
}

// NewPostgresStore opens a connection pool against dsn. The caller owns the
// returned pool's lifetime via Close.
func NewPostgresStore(ctx context.Context, dsn string, metadataSink metadata.MetadataSink) (*PostgresStore, failure.ClassifiedError) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, &StoreError{
			Message:   fmt.Sprintf("failed to create connection pool: %v", err),
			Retryable: true,
			Cause:     ErrCauseBackendUnavailable,
		}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &StoreError{
			Message:   fmt.Sprintf("failed to reach database: %v", err),
			Retryable: true,
			Cause:     ErrCauseBackendUnavailable,
		}
	}
	return &PostgresStore{
		pool:         pool,
		metadataSink: metadataSink,
		writeRetry:   defaultWriteRetryParam(),
	}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Migrate applies every embedded goose migration, idempotently.
func (s *PostgresStore) Migrate(logger *slog.Logger) failure.ClassifiedError {
	if logger == nil {
		logger = slog.Default()
	}
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return &StoreError{Message: err.Error(), Retryable: false, Cause: ErrCauseMigrationFailed}
	}
	if err := goose.Up(db, "."); err != nil {
		return &StoreError{Message: err.Error(), Retryable: false, Cause: ErrCauseMigrationFailed}
	}
	logger.Info("store migrations applied")
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) failure.ClassifiedError {
	if err := s.pool.Ping(ctx); err != nil {
		return &StoreError{
			Message:   fmt.Sprintf("ping failed: %v", err),
			Retryable: true,
			Cause:     ErrCauseBackendUnavailable,
		}
	}
	return nil
}

func (s *PostgresStore) recordError(action string, err *StoreError, attrs []metadata.Attribute) {
	if s.metadataSink == nil || err == nil {
		return
	}
	s.metadataSink.RecordError(time.Now(), "store", action, mapStoreErrorToMetadataCause(err), err.Error(), attrs)
}
