package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kodesmith/searchcore/internal/fetcher"
	"github.com/kodesmith/searchcore/internal/index"
	"github.com/kodesmith/searchcore/internal/metadata"
	"github.com/kodesmith/searchcore/internal/requestlog"
	"github.com/kodesmith/searchcore/internal/search"
	"github.com/kodesmith/searchcore/internal/session"
	"github.com/kodesmith/searchcore/internal/store"
)

// Server wires the HTTP surface in §6 to the core components. It holds no
// state of its own beyond these handles, all supplied by the
// Session-Manager-construction-time DI root (cmd/searchcore).
type Server struct {
	sessions     *session.Manager
	search       *search.Service
	store        store.Store
	idx          index.Index
	spaFetcher   fetcher.Fetcher
	requestLog   *requestlog.Writer
	metadataSink metadata.MetadataSink
	defaultUA    string
}

func NewServer(
	sessions *session.Manager,
	searchSvc *search.Service,
	st store.Store,
	idx index.Index,
	spaFetcher fetcher.Fetcher,
	requestLog *requestlog.Writer,
	metadataSink metadata.MetadataSink,
	defaultUserAgent string,
) *Server {
	return &Server{
		sessions:     sessions,
		search:       searchSvc,
		store:        st,
		idx:          idx,
		spaFetcher:   spaFetcher,
		requestLog:   requestLog,
		metadataSink: metadataSink,
		defaultUA:    defaultUserAgent,
	}
}

// Router builds the gin engine described in §6's route table.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogMiddleware())

	api := r.Group("/api")
	crawl := api.Group("/crawl")
	crawl.POST("/add-site", s.handleAddSite)
	crawl.GET("/status", s.handleCrawlStatus)
	crawl.GET("/details", s.handleCrawlDetails)

	spa := api.Group("/spa")
	spa.POST("/detect", s.handleSPADetect)
	spa.POST("/render", s.handleSPARender)

	api.GET("/search", s.handleSearch)
	api.GET("/search/sites", s.handleSearchSites)

	r.GET("/healthz", s.handleHealthz)

	return r
}

// requestLogMiddleware times every request and forwards it to C9
// non-blockingly, per §6.
func (s *Server) requestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		outcome := "ok"
		errMsg := ""
		if len(c.Errors) > 0 {
			outcome = "error"
			errMsg = c.Errors.String()
		} else if c.Writer.Status() >= 400 {
			outcome = "error"
		}

		if s.requestLog != nil {
			s.requestLog.Record(store.ApiRequestLog{
				Endpoint:     c.FullPath(),
				Method:       c.Request.Method,
				ClientIP:     c.ClientIP(),
				UserAgent:    c.Request.UserAgent(),
				StartedAt:    start,
				DurationMs:   time.Since(start).Milliseconds(),
				Outcome:      outcome,
				SessionID:    c.Query("sessionId"),
				ErrorMessage: errMsg,
			})
		}
	}
}

