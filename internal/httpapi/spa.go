package httpapi

import (
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/kodesmith/searchcore/internal/fetcher"
	"github.com/kodesmith/searchcore/pkg/retry"
	"github.com/kodesmith/searchcore/pkg/timeutil"
)

const defaultUserAgent = "searchcore/1.0"

type spaURLRequest struct {
	Url            string `json:"url" binding:"required"`
	BrowserlessUrl string `json:"browserlessUrl"`
}

// handleSPADetect fetches url once and reports whether its body looks like a
// client-rendered shell. Per §9's pre-decided Open Question, SPA detection
// and rendering bypass the Robots Gate: they inspect a single page a caller
// already named, rather than autonomously traversing a site.
func (s *Server) handleSPADetect(c *gin.Context) {
	var req spaURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, 400, codeInvalidRequest, "malformed request body", err.Error())
		return
	}
	target, err := url.Parse(req.Url)
	if err != nil || target.Host == "" {
		fail(c, 400, codeInvalidRequest, "url must be absolute", nil)
		return
	}

	result, fetchErr := s.spaFetcher.Fetch(c.Request.Context(), 0,
		fetcher.NewFetchParam(*target, s.userAgent()),
		oneShotRetryParam())
	if fetchErr != nil {
		fail(c, 502, codeRenderFailed, fetchErr.Error(), nil)
		return
	}

	isSPA, signals := fetcher.IsSPA(result.Body())
	ok(c, 200, "", gin.H{"url": req.Url, "isSpa": isSPA, "signals": signals})
}

// handleSPARender forces a headless render of url and returns the rendered
// HTML, regardless of the SPA heuristic.
func (s *Server) handleSPARender(c *gin.Context) {
	var req spaURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, 400, codeInvalidRequest, "malformed request body", err.Error())
		return
	}
	target, err := url.Parse(req.Url)
	if err != nil || target.Host == "" {
		fail(c, 400, codeInvalidRequest, "url must be absolute", nil)
		return
	}
	if req.BrowserlessUrl == "" {
		fail(c, 400, codeInvalidRequest, "browserlessUrl is required to render", nil)
		return
	}

	result, fetchErr := s.spaFetcher.Fetch(c.Request.Context(), 0,
		fetcher.NewFetchParamWithRender(*target, s.userAgent(), fetcher.RenderAlways, req.BrowserlessUrl),
		oneShotRetryParam())
	if fetchErr != nil {
		fail(c, 502, codeRenderFailed, fetchErr.Error(), nil)
		return
	}

	ok(c, 200, "", gin.H{
		"url":    req.Url,
		"status": result.Code(),
		"html":   string(result.Body()),
	})
}

func (s *Server) userAgent() string {
	if s.defaultUA != "" {
		return s.defaultUA
	}
	return defaultUserAgent
}

// oneShotRetryParam gives the SPA endpoints a single attempt with no
// backoff delay: a caller probing one URL interactively should not be held
// for the crawl session's full retry budget.
func oneShotRetryParam() retry.RetryParam {
	return retry.NewRetryParam(0, 0, 1, 1, timeutil.NewBackoffParam(0, 1, 0))
}
