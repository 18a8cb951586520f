package httpapi

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

func secondsToDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}

// resultsLimit reads an optional ?limit= query param for /api/crawl/details;
// 0 means "no limit" to Manager.Results.
func resultsLimit(c *gin.Context) int {
	raw := c.Query("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func intQuery(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
