package robots

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kodesmith/searchcore/internal/metadata"
	"github.com/kodesmith/searchcore/internal/robots/cache"
)

/*
CachedRobot is the crawl-time robots.txt gate.

Responsibilities

- Fetch robots.txt per host (delegated to RobotsFetcher)
- Cache resolved rule sets for the crawl duration, with a TTL so a long
  running session eventually re-checks a host's policy
- Evaluate allow/disallow rules before a URL enters the frontier

Robots checks occur before a URL is admitted into the frontier.
*/

const (
	// DefaultSuccessTTL bounds how long a successfully fetched robots.txt
	// stays authoritative before it is refetched.
	DefaultSuccessTTL = time.Hour
	// DefaultFailureTTL bounds how long a failed fetch is remembered before
	// retrying, so a host having trouble isn't hammered every Decide call.
	DefaultFailureTTL = 10 * time.Minute
)

// Robot is the crawl-time robots.txt gate as seen by callers that admit URLs
// into a frontier. Session managers depend on this interface, not on
// *CachedRobot directly, so sessions can be tested against a mock gate.
type Robot interface {
	Init(userAgent string)
	Decide(target url.URL) (Decision, *RobotsError)
}

var _ Robot = (*CachedRobot)(nil)

type cachedFailure struct {
	err       *RobotsError
	expiresAt time.Time
}

// robotState holds CachedRobot's mutable per-host state behind a pointer so
// CachedRobot itself stays a small comparable value (maps are not
// comparable, so they cannot live directly on the struct).
type robotState struct {
	mu       sync.RWMutex
	rules    map[string]ruleSet
	failures map[string]cachedFailure
}

// CachedRobot implements the robots gate, caching resolved rule sets (and
// recent fetch failures) per host.
type CachedRobot struct {
	sink      metadata.MetadataSink
	userAgent string
	fetcher   *RobotsFetcher
	state     *robotState
}

// NewCachedRobot returns a gate bound to the given observability sink.
// Call Init or InitWithCache before Decide.
func NewCachedRobot(sink metadata.MetadataSink) CachedRobot {
	return CachedRobot{
		sink: sink,
		state: &robotState{
			rules:    make(map[string]ruleSet),
			failures: make(map[string]cachedFailure),
		},
	}
}

// Init wires the default TTL-aware in-memory robots.txt cache.
func (r *CachedRobot) Init(userAgent string) {
	r.InitWithCache(userAgent, cache.NewTTLMemoryCache(DefaultSuccessTTL))
}

// InitWithCache wires a caller-supplied cache implementation for the
// underlying robots.txt fetcher.
func (r *CachedRobot) InitWithCache(userAgent string, c cache.Cache) {
	r.userAgent = userAgent
	r.fetcher = NewRobotsFetcher(r.sink, userAgent, c)
	if r.state == nil {
		r.state = &robotState{
			rules:    make(map[string]ruleSet),
			failures: make(map[string]cachedFailure),
		}
	}
}

// Decide reports whether target may be crawled under the robots.txt rules
// for its host. A non-nil error means the rules could not be determined;
// callers decide whether to fail open or closed.
func (r *CachedRobot) Decide(target url.URL) (Decision, *RobotsError) {
	host := target.Host
	if host == "" {
		return Decision{}, &RobotsError{
			Message:   "url has no host",
			Retryable: false,
			Cause:     ErrCauseInvalidRobotsUrl,
		}
	}

	rs, rerr := r.ruleSetFor(context.Background(), target.Scheme, host)
	if rerr != nil {
		if r.sink != nil {
			r.sink.RecordError(time.Now(), "robots", "decide", mapRobotsErrorToMetadataCause(rerr), rerr.Error(),
				[]metadata.Attribute{metadata.NewAttr(metadata.AttrHost, host)})
		}
		return Decision{}, rerr
	}

	return evaluate(target, rs), nil
}

func (r *CachedRobot) ruleSetFor(ctx context.Context, scheme, host string) (ruleSet, *RobotsError) {
	if scheme == "" {
		scheme = "https"
	}

	st := r.state
	st.mu.RLock()
	rs, ok := st.rules[host]
	fail, failed := st.failures[host]
	st.mu.RUnlock()

	if ok {
		return rs, nil
	}
	if failed && time.Now().Before(fail.expiresAt) {
		return ruleSet{}, fail.err
	}

	result, err := r.fetcher.Fetch(ctx, scheme, host)
	if err != nil {
		st.mu.Lock()
		st.failures[host] = cachedFailure{err: err, expiresAt: time.Now().Add(DefaultFailureTTL)}
		st.mu.Unlock()
		return ruleSet{}, err
	}

	rs = MapResponseToRuleSet(result.Response, r.userAgent, result.FetchedAt)
	st.mu.Lock()
	delete(st.failures, host)
	st.rules[host] = rs
	st.mu.Unlock()
	return rs, nil
}

// evaluate applies the longest-match-wins robots.txt precedence rule: among
// all allow/disallow patterns matching the URL's path, the most specific
// (longest prefix) one decides, with allow winning ties.
func evaluate(target url.URL, rs ruleSet) Decision {
	if !rs.hasGroups {
		return Decision{Url: target, Allowed: true, Reason: EmptyRuleSet}
	}
	if !rs.matchedGroup {
		return Decision{Url: target, Allowed: true, Reason: UserAgentNotMatched}
	}

	path := target.Path
	if path == "" {
		path = "/"
	}
	if target.RawQuery != "" {
		path += "?" + target.RawQuery
	}

	var delay time.Duration
	if rs.crawlDelay != nil {
		delay = *rs.crawlDelay
	}

	bestLen := -1
	bestAllow := true
	matched := false

	for _, rule := range rs.allowRules {
		if matchesPattern(path, rule.prefix) && len(rule.prefix) > bestLen {
			bestLen = len(rule.prefix)
			bestAllow = true
			matched = true
		}
	}
	for _, rule := range rs.disallowRules {
		if matchesPattern(path, rule.prefix) && len(rule.prefix) > bestLen {
			bestLen = len(rule.prefix)
			bestAllow = false
			matched = true
		}
	}

	if !matched {
		return Decision{Url: target, Allowed: true, Reason: NoMatchingRules, CrawlDelay: delay}
	}

	reason := AllowedByRobots
	if !bestAllow {
		reason = DisallowedByRobots
	}
	return Decision{Url: target, Allowed: bestAllow, Reason: reason, CrawlDelay: delay}
}

// matchesPattern applies robots.txt path matching: '*' matches any sequence
// of characters, and a trailing '$' anchors the pattern to the end of path.
// A pattern without '*' behaves as a simple prefix match.
func matchesPattern(path, pattern string) bool {
	anchored := strings.HasSuffix(pattern, "$")
	if anchored {
		pattern = strings.TrimSuffix(pattern, "$")
	}

	segments := strings.Split(pattern, "*")
	pos := 0
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if i == 0 {
			if !strings.HasPrefix(path[pos:], seg) {
				return false
			}
			pos += len(seg)
			continue
		}
		idx := strings.Index(path[pos:], seg)
		if idx == -1 {
			return false
		}
		pos += idx + len(seg)
	}

	if anchored {
		return pos == len(path)
	}
	return true
}
