package session

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kodesmith/searchcore/internal/extractor"
	"github.com/kodesmith/searchcore/internal/fetcher"
	"github.com/kodesmith/searchcore/internal/frontier"
	"github.com/kodesmith/searchcore/internal/index"
	"github.com/kodesmith/searchcore/internal/metadata"
	"github.com/kodesmith/searchcore/internal/robots"
	"github.com/kodesmith/searchcore/internal/store"
	"github.com/kodesmith/searchcore/pkg/failure"
	"github.com/kodesmith/searchcore/pkg/retry"
	"github.com/kodesmith/searchcore/pkg/timeutil"
	"github.com/kodesmith/searchcore/pkg/urlutil"
)

// minWorkers/maxWorkers bound the per-session pool size suggested by §5;
// the pool is sized from MaxPages without letting a tiny session spin up
// more goroutines than it has work for.
const (
	minWorkers = 4
	maxWorkers = 16
)

// sessionWorker drives C2->C3->C1->C4->C5+C6 for exactly one session,
// against the Manager's shared Store/Index/metadata handles (never its own).
type sessionWorker struct {
	rs           *runningSession
	st           store.Store
	idx          index.Index
	metadataSink metadata.MetadataSink

	robot     robots.Robot
	fetcher   fetcher.Fetcher
	extractor extractor.DomExtractor
	front     frontier.Frontier

	seedDomain string

	busyWorkers int32
}

func newSessionWorker(rs *runningSession, st store.Store, idx index.Index, metadataSink metadata.MetadataSink) *sessionWorker {
	cachedRobot := robots.NewCachedRobot(metadataSink)
	front := frontier.NewCrawlFrontier()
	return &sessionWorker{
		rs:           rs,
		st:           st,
		idx:          idx,
		metadataSink: metadataSink,
		robot:        &cachedRobot,
		fetcher:      newFetcherFor(metadataSink),
		extractor:    extractor.NewDomExtractor(metadataSink),
		front:        front,
	}
}

func newFetcherFor(metadataSink metadata.MetadataSink) fetcher.Fetcher {
	f := fetcher.NewHtmlFetcher(metadataSink)
	return &f
}

func workerCount(maxPages int) int {
	n := maxPages / 50
	if n < minWorkers {
		n = minWorkers
	}
	if n > maxWorkers {
		n = maxWorkers
	}
	return n
}

func retryParamFor(cfg interface {
	BaseDelay() time.Duration
	Jitter() time.Duration
	RandomSeed() int64
	MaxAttempt() int
	BackoffInitialDuration() time.Duration
	BackoffMultiplier() float64
	BackoffMaxDuration() time.Duration
}) retry.RetryParam {
	return retry.NewRetryParam(
		cfg.BaseDelay(),
		cfg.Jitter(),
		cfg.RandomSeed(),
		cfg.MaxAttempt(),
		timeutil.NewBackoffParam(cfg.BackoffInitialDuration(), cfg.BackoffMultiplier(), cfg.BackoffMaxDuration()),
	)
}

// crawl runs the worker pool to completion or cancellation. It terminates
// when results_count >= max_pages, the frontier drains with every worker
// idle, or the context is cancelled (§4.7 algorithm).
func (w *sessionWorker) crawl(ctx context.Context) {
	cfg := w.rs.cfg
	seed, err := url.Parse(w.rs.seedURL)
	if err != nil {
		return
	}
	w.seedDomain = urlutil.EffectiveDomain(seed.Host)

	w.robot.Init(cfg.UserAgent())
	w.front.Init(cfg)
	w.fetcher.Init(&http.Client{Timeout: cfg.Timeout()})

	if err := w.submit(*seed, frontier.SourceSeed, 0); err != nil {
		return
	}

	n := workerCount(cfg.MaxPages())
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.workerLoop(ctx)
		}()
	}
	wg.Wait()
}

func (w *sessionWorker) workerLoop(ctx context.Context) {
	cfg := w.rs.cfg
	retryParam := retryParamFor(cfg)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if cfg.MaxPages() > 0 && w.resultsCount() >= cfg.MaxPages() {
			return
		}

		token, ok := w.front.Dequeue()
		if !ok {
			if atomic.LoadInt32(&w.busyWorkers) == 0 {
				return
			}
			// Another worker is mid-fetch and may still submit more URLs;
			// back off briefly instead of exiting early.
			select {
			case <-ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}

		atomic.AddInt32(&w.busyWorkers, 1)
		w.processOne(ctx, token, retryParam)
		atomic.AddInt32(&w.busyWorkers, -1)
	}
}

func (w *sessionWorker) processOne(ctx context.Context, token frontier.CrawlToken, retryParam retry.RetryParam) {
	cfg := w.rs.cfg
	target := token.URL()

	var fetchParam fetcher.FetchParam
	if cfg.RenderEndpoint() != "" {
		fetchParam = fetcher.NewFetchParamWithRender(target, cfg.UserAgent(), cfg.RenderPolicy(), cfg.RenderEndpoint())
	} else {
		fetchParam = fetcher.NewFetchParam(target, cfg.UserAgent())
	}

	fetchResult, fetchErr := w.fetcher.Fetch(ctx, token.Depth(), fetchParam, retryParam)
	if fetchErr != nil {
		w.recordCrawlResult(target, "failed", 0, "", fetchErr.Error())
		return
	}

	extracted, extractErr := w.extractor.ExtractContent(fetchResult.URL(), fetchResult.Body())
	if extractErr != nil {
		w.recordCrawlResult(target, "failed", fetchResult.Code(), "", extractErr.Error())
		return
	}

	w.discover(target, extracted.Links, token.Depth())
	w.persist(ctx, target, fetchResult, extracted)
}

func (w *sessionWorker) discover(source url.URL, links []url.URL, depth int) {
	cfg := w.rs.cfg
	for _, link := range links {
		if cfg.RestrictToSeedDomain() && !urlutil.SameDomain(w.seedDomain, urlutil.EffectiveDomain(link.Host)) {
			continue
		}
		_ = w.submit(link, frontier.SourceCrawl, depth+1)
	}
}

func (w *sessionWorker) submit(target url.URL, src frontier.SourceContext, depth int) failure.ClassifiedError {
	decision, robotsErr := w.robot.Decide(target)
	if robotsErr != nil {
		return robotsErr
	}
	if !decision.Allowed {
		return nil
	}
	candidate := frontier.NewCrawlAdmissionCandidate(decision.Url, src, frontier.NewDiscoveryMetadata(depth, nil))
	w.front.Submit(candidate)
	return nil
}

func (w *sessionWorker) persist(ctx context.Context, target url.URL, fetchResult fetcher.FetchResult, extracted extractor.Extracted) {
	cfg := w.rs.cfg
	normalized := urlutil.Canonicalize(target).String()
	domain := urlutil.EffectiveDomain(target.Host)
	now := time.Now()

	text := ""
	if cfg.ExtractTextContent() {
		text = extracted.Text
	}

	if !cfg.Force() {
		if existing, err := w.st.GetDocument(ctx, normalized); err == nil && existing != nil &&
			existing.RawBytesHash == extracted.ContentHash {
			w.recordCrawlResult(target, string(store.CrawlStatusSkippedDup), fetchResult.Code(), extracted.Title, "")
			return
		}
	}

	doc := store.Document{
		URL:           target.String(),
		NormalizedURL: normalized,
		Domain:        domain,
		Title:         extracted.Title,
		Description:   extracted.Description,
		TextContent:   text,
		RawBytesHash:  extracted.ContentHash,
		ContentType:   "text/html",
		Language:      extracted.Language,
		FirstSeen:     now,
		LastCrawled:   now,
		WordCount:     extracted.WordCount,
		QualityScore:  qualityScore(extracted.WordCount),
	}
	for _, l := range extracted.Links {
		doc.Links = append(doc.Links, l.String())
	}

	if err := w.st.UpsertDocument(ctx, doc); err != nil {
		w.recordCrawlResult(target, "failed", fetchResult.Code(), extracted.Title, err.Error())
		return
	}

	fields := index.Fields{Title: extracted.Title, Description: extracted.Description, URL: target.String(), Domain: domain}
	if cfg.IncludeFullContent() {
		fields.Text = text
	}
	_ = w.idx.Upsert(normalized, fields)

	w.recordCrawlResult(target, string(store.CrawlStatusDownloaded), fetchResult.Code(), extracted.Title, "")

	_ = w.st.AppendCrawlLog(ctx, store.CrawlLog{
		URL:         target.String(),
		Domain:      domain,
		CrawlTime:   now,
		Status:      store.CrawlStatusDownloaded,
		HTTPStatus:  fetchResult.Code(),
		Title:       extracted.Title,
		Description: extracted.Description,
		SessionID:   w.rs.id,
	})
}

func qualityScore(wordCount int) float64 {
	const saturationWordCount = 500
	score := float64(wordCount) / float64(saturationWordCount)
	if score > 1 {
		score = 1
	}
	return score
}

func (w *sessionWorker) recordCrawlResult(target url.URL, status string, httpStatus int, title, errMsg string) {
	w.rs.mu.Lock()
	defer w.rs.mu.Unlock()
	if status == "failed" {
		w.rs.errors++
	} else {
		w.rs.pages++
	}
	w.rs.results = append(w.rs.results, CrawlResult{
		URL:         target.String(),
		Status:      status,
		HTTPStatus:  httpStatus,
		Title:       title,
		Error:       errMsg,
		CompletedAt: time.Now(),
	})
}

func (w *sessionWorker) resultsCount() int {
	w.rs.mu.Lock()
	defer w.rs.mu.Unlock()
	return w.rs.pages
}
