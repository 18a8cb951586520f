package store

import "time"

/*
Responsibilities
- Durable per-URL document records
- Append-only crawl logs
- Append-only API request logs
- A crude fallback full-text search when the Index (bleve) is unavailable

Everything here is a plain value type; the SQL lives in document.go,
crawllog.go, requestlog.go and search.go, one file per contract group.
*/

// Document is the latest known content for a URL. At most one Document
// exists per NormalizedURL; UpsertDocument overwrites in place.
type Document struct {
	URL           string
	NormalizedURL string
	Domain        string
	Title         string
	Description   string
	TextContent   string
	RawBytesHash  string
	ContentType   string
	Links         []string
	Language      string
	FirstSeen     time.Time
	LastCrawled   time.Time
	WordCount     int
	QualityScore  float64
}

type CrawlStatus string

const (
	CrawlStatusDownloaded      CrawlStatus = "downloaded"
	CrawlStatusFailed          CrawlStatus = "failed"
	CrawlStatusRedirected      CrawlStatus = "redirected"
	CrawlStatusSkippedRobots   CrawlStatus = "skipped_robots"
	CrawlStatusSkippedDup      CrawlStatus = "skipped_duplicate"
)

// CrawlLog is an append-only record of one fetch attempt. Never mutated
// after write; ordering by CrawlTime within a URL is total.
type CrawlLog struct {
	URL            string
	Domain         string
	CrawlTime      time.Time
	Status         CrawlStatus
	HTTPStatus     int
	ContentSize    int
	ContentType    string
	Links          []string
	Title          string
	Description    string
	DownloadTimeMs int64
	ErrorMessage   string
	SessionID      string
}

// ApiRequestLog is written once per inbound HTTP request, never updated.
type ApiRequestLog struct {
	Endpoint     string
	Method       string
	ClientIP     string
	UserAgent    string
	StartedAt    time.Time
	DurationMs   int64
	Outcome      string
	SessionID    string
	ErrorMessage string
}

// DocProjection is the reduced view returned by the ILIKE/tsvector fallback
// search path (C5 standing in for C6 when the index is unavailable).
type DocProjection struct {
	URL         string
	Title       string
	Description string
	Snippet     string
}
