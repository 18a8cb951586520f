package frontier

/*
Frontier Responsibilities
- Maintain BFS ordering
- Deduplicate URLs
- Track crawl depth
- Prevent infinite traversal
- Knows nothing about:
	- fetching
	- extraction
	- storage

It is a data structure + policy module, not a pipeline executor. Dequeue
always drains the lowest non-empty depth bucket first, so a crawl completes
breadth-first regardless of the order in which deeper URLs were submitted.
Admission (dedup + depth/page limits) happens entirely in Submit; Dequeue
never rejects a token once it has been admitted.
*/

import (
	"net/url"
	"sync"

	"github.com/kodesmith/searchcore/internal/config"
	"github.com/kodesmith/searchcore/pkg/urlutil"
)

// Frontier holds per-depth BFS queues plus the visited set used for
// admission-time deduplication. The zero value is not usable; build one
// with NewCrawlFrontier and call Init before Submit/Dequeue.
type Frontier struct {
	mu sync.Mutex

	cfg config.Config

	queues  map[int]*FIFOQueue[CrawlToken]
	visited Set[string]

	// admitted counts every URL that has passed dedup, independent of
	// whether it has been dequeued yet; MaxPages bounds this, not the
	// number of completed fetches.
	admitted int
}

// NewCrawlFrontier returns an empty Frontier. Call Init before use.
func NewCrawlFrontier() Frontier {
	return Frontier{
		queues:  make(map[int]*FIFOQueue[CrawlToken]),
		visited: NewSet[string](),
	}
}

// Init (re)configures the frontier's scope and limits. It does not clear
// already-admitted state, so it is safe to call once before a crawl starts.
func (f *Frontier) Init(cfg config.Config) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = cfg
	if f.queues == nil {
		f.queues = make(map[int]*FIFOQueue[CrawlToken])
	}
	if f.visited == nil {
		f.visited = NewSet[string]()
	}
}

// Submit admits a candidate into the frontier. It is a no-op if the URL was
// already visited, its depth exceeds MaxDepth, or MaxPages has already been
// reached. Submit never returns an error: rejection is silent, matching
// admission-time filtering rather than a queueing failure.
func (f *Frontier) Submit(candidate CrawlAdmissionCandidate) {
	f.mu.Lock()
	defer f.mu.Unlock()

	depth := candidate.DiscoveryMetadata().Depth()
	if maxDepth := f.cfg.MaxDepth(); maxDepth > 0 && depth > maxDepth {
		return
	}
	if maxPages := f.cfg.MaxPages(); maxPages > 0 && f.admitted >= maxPages {
		return
	}

	key := canonicalKey(candidate.TargetURL())
	if f.visited.Contains(key) {
		return
	}
	f.visited.Add(key)
	f.admitted++

	q, ok := f.queues[depth]
	if !ok {
		q = NewFIFOQueue[CrawlToken]()
		f.queues[depth] = q
	}
	q.Enqueue(NewCrawlToken(candidate.TargetURL(), depth))
}

// Dequeue returns the next token in strict breadth-first order: the lowest
// depth with a pending token always wins, regardless of submission order.
func (f *Frontier) Dequeue() (CrawlToken, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	depth, ok := f.lowestPendingDepthLocked()
	if !ok {
		return CrawlToken{}, false
	}
	return f.queues[depth].Dequeue()
}

// IsDepthExhausted reports whether depth has no pending tokens. Negative
// depths are always exhausted, since a depth cannot be negative.
func (f *Frontier) IsDepthExhausted(depth int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if depth < 0 {
		return true
	}
	q, ok := f.queues[depth]
	return !ok || q.Size() == 0
}

// CurrentMinDepth returns the lowest depth with a pending token, or -1 if
// the frontier has nothing left to dequeue.
func (f *Frontier) CurrentMinDepth() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	depth, ok := f.lowestPendingDepthLocked()
	if !ok {
		return -1
	}
	return depth
}

// VisitedCount reports how many distinct URLs have been admitted so far.
// The count is append-only: it never decreases as tokens are dequeued.
func (f *Frontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited.Size()
}

// lowestPendingDepthLocked scans for the smallest depth key with a
// non-empty queue. Callers must hold f.mu.
func (f *Frontier) lowestPendingDepthLocked() (int, bool) {
	min := -1
	for depth, q := range f.queues {
		if q.Size() == 0 {
			continue
		}
		if min == -1 || depth < min {
			min = depth
		}
	}
	if min == -1 {
		return 0, false
	}
	return min, true
}

// canonicalKey canonicalizes a URL and serializes it to a string suitable
// for Set-based deduplication; url.URL values are not comparable for this
// purpose since pointer fields (e.g. Userinfo) make otherwise-identical
// URLs compare unequal.
func canonicalKey(u url.URL) string {
	return urlutil.Canonicalize(u).String()
}
