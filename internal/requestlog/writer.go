package requestlog

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/kodesmith/searchcore/internal/metadata"
	"github.com/kodesmith/searchcore/internal/store"
)

// highWaterMark bounds the backlog before record() starts dropping the
// oldest entries rather than growing without limit (§4.9).
const highWaterMark = 4096

// Writer is the Request Log Writer (C9): record() enqueues and returns
// immediately; a single background goroutine drains the queue into the
// Store. Log loss under backpressure is an accepted tradeoff — it must
// never be the reason a user request blocks.
type Writer struct {
	entries      chan store.ApiRequestLog
	limiter      *rate.Limiter
	st           store.Store
	metadataSink metadata.MetadataSink
	logger       *slog.Logger

	dropped int64
}

// NewWriter builds the queue and its rate limiter; it starts no goroutine.
// The caller runs Run in its own goroutine, and cancelling Run's context
// drains the remaining backlog before Run returns.
func NewWriter(st store.Store, metadataSink metadata.MetadataSink, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Writer{
		entries:      make(chan store.ApiRequestLog, highWaterMark),
		limiter:      rate.NewLimiter(rate.Limit(50), 100),
		st:           st,
		metadataSink: metadataSink,
		logger:       logger,
	}
	return w
}

// Record enqueues entry without blocking. If the queue is full, the oldest
// queued entry is dropped to make room (a "dropped N" summary is written
// once drainage catches up).
func (w *Writer) Record(entry store.ApiRequestLog) {
	select {
	case w.entries <- entry:
		return
	default:
	}
	select {
	case <-w.entries:
		atomic.AddInt64(&w.dropped, 1)
	default:
	}
	select {
	case w.entries <- entry:
	default:
		atomic.AddInt64(&w.dropped, 1)
	}
}

// Run drains the queue until ctx is cancelled. Call it from its own
// goroutine at Session-Manager-construction time.
func (w *Writer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drainRemaining()
			return
		case entry, ok := <-w.entries:
			if !ok {
				return
			}
			w.writeOne(ctx, entry)
		}
	}
}

func (w *Writer) drainRemaining() {
	for {
		select {
		case entry, ok := <-w.entries:
			if !ok {
				return
			}
			w.writeOne(context.Background(), entry)
		default:
			return
		}
	}
}

func (w *Writer) writeOne(ctx context.Context, entry store.ApiRequestLog) {
	if err := w.limiter.Wait(ctx); err != nil {
		return
	}
	if n := atomic.SwapInt64(&w.dropped, 0); n > 0 {
		w.writeSummary(ctx, n)
	}
	if err := w.st.AppendAPIRequestLog(ctx, entry); err != nil {
		w.logger.Warn("request log write failed", "endpoint", entry.Endpoint, "error", err.Error())
	}
}

func (w *Writer) writeSummary(ctx context.Context, n int64) {
	summary := store.ApiRequestLog{
		Endpoint:  "requestlog",
		Method:    "INTERNAL",
		Outcome:   "dropped",
		StartedAt: time.Now(),
		ErrorMessage: fmt.Sprintf("dropped %d entries under backpressure", n),
	}
	if err := w.st.AppendAPIRequestLog(ctx, summary); err != nil {
		w.logger.Warn("request log drop-summary write failed", "error", err.Error())
	}
}
