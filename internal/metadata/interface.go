package metadata

import "time"

/*
MetadataSink is the single observability choke point for the crawl pipeline.

Every pipeline package (fetcher, robots, extractor, session) reports fetch
attempts and classified failures through a MetadataSink instead of logging
directly. This keeps the recording call sites uniform and lets the sink
implementation decide the actual backend (structured logs today, metrics or
tracing later) without touching pipeline code.

Nothing here may be used to drive control flow: a MetadataSink call never
returns a value pipeline code branches on.
*/
type MetadataSink interface {
	RecordFetch(fetchUrl string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int)
	RecordError(observedAt time.Time, packageName, action string, cause ErrorCause, errorString string, attrs []Attribute)
	RecordArtifact(paths string)
}

// CrawlFinalizer records the terminal, derived summary of a completed
// session. It is invoked exactly once, after the worker pool has stopped.
type CrawlFinalizer interface {
	RecordFinalCrawlStats(totalPages, totalErrors, totalAssets int, duration time.Duration)
}
