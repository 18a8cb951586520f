package httpapi

import (
	"github.com/gin-gonic/gin"
)

// handleHealthz reports liveness plus a best-effort readiness signal for
// the Store and Index, per §6. It never fails the liveness check itself —
// a degraded dependency is reported in the body, not via status code.
func (s *Server) handleHealthz(c *gin.Context) {
	ctx := c.Request.Context()

	storeOK := true
	if err := s.store.Ping(ctx); err != nil {
		storeOK = false
	}

	indexOK := true
	if _, err := s.idx.DocCount(); err != nil {
		indexOK = false
	}

	ok(c, 200, "", gin.H{
		"status": "up",
		"store":  storeOK,
		"index":  indexOK,
	})
}
