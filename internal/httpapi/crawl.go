package httpapi

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kodesmith/searchcore/internal/config"
	"github.com/kodesmith/searchcore/internal/fetcher"
	"github.com/kodesmith/searchcore/internal/session"
)

// addSiteRequest mirrors §6's documented /api/crawl/add-site body. Every
// field but Url is optional; zero values fall through to config.WithDefault.
type addSiteRequest struct {
	Url                  string `json:"url" binding:"required"`
	MaxPages             int    `json:"maxPages"`
	MaxDepth             int    `json:"maxDepth"`
	RestrictToSeedDomain *bool  `json:"restrictToSeedDomain"`
	FollowRedirects      *bool  `json:"followRedirects"`
	MaxRedirects         *int   `json:"maxRedirects"`
	Force                *bool  `json:"force"`
	ExtractTextContent   *bool  `json:"extractTextContent"`
	SpaRenderingEnabled  *bool  `json:"spaRenderingEnabled"`
	IncludeFullContent   *bool  `json:"includeFullContent"`
	RequestTimeoutSec    int    `json:"requestTimeout"`
	StopPreviousSessions *bool  `json:"stopPreviousSessions"`
	BrowserlessUrl       string `json:"browserlessUrl"`
	Email                string `json:"email"`
	RecipientName        string `json:"recipientName"`
	Language             string `json:"language"`
}

const (
	maxPagesUpper     = 10000
	maxDepthUpper     = 10
	maxRedirectsUpper = 20
	requestTimeoutMin = 1
	requestTimeoutMax = 120
)

func (s *Server) handleAddSite(c *gin.Context) {
	var req addSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, 400, codeInvalidRequest, "malformed request body", err.Error())
		return
	}

	seed, err := url.Parse(req.Url)
	if err != nil || seed.Host == "" || (seed.Scheme != "http" && seed.Scheme != "https") {
		fail(c, 400, codeInvalidRequest, "url must be an absolute http(s) URL", nil)
		return
	}

	if violation := validateAddSiteBounds(req); violation != "" {
		fail(c, 400, codeInvalidRequest, violation, nil)
		return
	}

	cfg, cfgErr := buildSessionConfig(*seed, req)
	if cfgErr != nil {
		fail(c, 400, codeInvalidRequest, cfgErr.Error(), nil)
		return
	}

	sessionID, startErr := s.sessions.Start(*seed, cfg, nil)
	if startErr != nil {
		if sessErr, ok := startErr.(*session.SessionError); ok && sessErr.Cause == session.ErrCauseSessionLimit {
			c.Header("Retry-After", fmt.Sprintf("%d", sessErr.RetryAfter))
			fail(c, 429, codeTooManyRequests, startErr.Error(), nil)
			return
		}
		fail(c, 500, codeInternalError, startErr.Error(), nil)
		return
	}

	ok(c, 200, "crawl session started", gin.H{"sessionId": sessionID})
}

func validateAddSiteBounds(req addSiteRequest) string {
	if req.MaxPages != 0 && (req.MaxPages < 1 || req.MaxPages > maxPagesUpper) {
		return fmt.Sprintf("maxPages must be in [1,%d]", maxPagesUpper)
	}
	if req.MaxDepth != 0 && (req.MaxDepth < 1 || req.MaxDepth > maxDepthUpper) {
		return fmt.Sprintf("maxDepth must be in [1,%d]", maxDepthUpper)
	}
	if req.MaxRedirects != nil && (*req.MaxRedirects < 0 || *req.MaxRedirects > maxRedirectsUpper) {
		return fmt.Sprintf("maxRedirects must be in [0,%d]", maxRedirectsUpper)
	}
	if req.RequestTimeoutSec != 0 && (req.RequestTimeoutSec < requestTimeoutMin || req.RequestTimeoutSec > requestTimeoutMax) {
		return fmt.Sprintf("requestTimeout must be in [%d,%d] seconds", requestTimeoutMin, requestTimeoutMax)
	}
	if req.Email != "" && (!strings.Contains(req.Email, "@") || !strings.Contains(req.Email, ".")) {
		return "email must be a valid address"
	}
	return ""
}

func buildSessionConfig(seed url.URL, req addSiteRequest) (config.Config, error) {
	builder := config.WithDefault([]url.URL{seed})

	if req.MaxPages != 0 {
		builder = builder.WithMaxPages(req.MaxPages)
	}
	if req.MaxDepth != 0 {
		builder = builder.WithMaxDepth(req.MaxDepth)
	}
	if req.RestrictToSeedDomain != nil {
		builder = builder.WithRestrictToSeedDomain(*req.RestrictToSeedDomain)
	}
	if req.FollowRedirects != nil {
		builder = builder.WithFollowRedirects(*req.FollowRedirects)
	}
	if req.MaxRedirects != nil {
		builder = builder.WithMaxRedirects(*req.MaxRedirects)
	}
	if req.Force != nil {
		builder = builder.WithForce(*req.Force)
	}
	if req.ExtractTextContent != nil {
		builder = builder.WithExtractTextContent(*req.ExtractTextContent)
	}
	if req.IncludeFullContent != nil {
		builder = builder.WithIncludeFullContent(*req.IncludeFullContent)
	}
	if req.StopPreviousSessions != nil {
		builder = builder.WithStopPreviousSessions(*req.StopPreviousSessions)
	}
	if req.RequestTimeoutSec != 0 {
		builder = builder.WithTimeout(secondsToDuration(req.RequestTimeoutSec))
	}
	if req.BrowserlessUrl != "" {
		builder = builder.WithRenderEndpoint(req.BrowserlessUrl)
	}
	if req.SpaRenderingEnabled != nil {
		if *req.SpaRenderingEnabled {
			builder = builder.WithRenderPolicy(fetcher.RenderOnSPAHeurstic)
		} else {
			builder = builder.WithRenderPolicy(fetcher.RenderNever)
		}
	}

	return builder.Build()
}

func (s *Server) handleCrawlStatus(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		fail(c, 400, codeInvalidRequest, "sessionId is required", nil)
		return
	}
	status, err := s.sessions.Status(sessionID)
	if err != nil {
		fail(c, 404, codeNotFound, err.Error(), nil)
		return
	}
	ok(c, 200, "", status)
}

func (s *Server) handleCrawlDetails(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		fail(c, 400, codeInvalidRequest, "sessionId is required", nil)
		return
	}
	results, err := s.sessions.Results(sessionID, resultsLimit(c))
	if err != nil {
		fail(c, 404, codeNotFound, err.Error(), nil)
		return
	}
	ok(c, 200, "", gin.H{"sessionId": sessionID, "results": results})
}
