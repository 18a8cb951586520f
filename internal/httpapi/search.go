package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/kodesmith/searchcore/internal/search"
)

const (
	defaultPage  = 1
	defaultLimit = 20
)

func (s *Server) handleSearch(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		fail(c, 400, codeInvalidRequest, "q is required", nil)
		return
	}
	page := intQuery(c, "page", defaultPage)
	limit := intQuery(c, "limit", defaultLimit)

	resp, err := s.search.Search(c.Request.Context(), q, page, limit)
	if err != nil {
		if searchErr, isSearchErr := err.(*search.SearchError); isSearchErr && searchErr.Cause == search.ErrCauseInvalidBounds {
			fail(c, 400, codeInvalidRequest, err.Error(), nil)
			return
		}
		fail(c, 500, codeInternalError, err.Error(), nil)
		return
	}
	ok(c, 200, "", resp)
}

// handleSearchSites lists distinct crawled domains by paging through the
// document store's projection rather than adding a bleve facet — domain
// cardinality is small enough that a store scan is adequate (§6).
func (s *Server) handleSearchSites(c *gin.Context) {
	const pageSize = 500
	seen := map[string]struct{}{}
	var sites []string

	ctx := c.Request.Context()
	for offset := 0; ; offset += pageSize {
		docs, err := s.store.ListDocuments(ctx, pageSize, offset)
		if err != nil {
			fail(c, 500, codeInternalError, err.Error(), nil)
			return
		}
		for _, d := range docs {
			if _, dup := seen[d.Domain]; !dup && d.Domain != "" {
				seen[d.Domain] = struct{}{}
				sites = append(sites, d.Domain)
			}
		}
		if len(docs) < pageSize {
			break
		}
	}

	ok(c, 200, "", gin.H{"sites": sites})
}
