package httpapi

import "github.com/gin-gonic/gin"

const (
	codeInvalidRequest  = "INVALID_REQUEST"
	codeTooManyRequests = "TOO_MANY_REQUESTS"
	codeNotFound        = "NOT_FOUND"
	codeInternalError   = "INTERNAL_ERROR"
	codeRenderFailed    = "RENDER_FAILED"
)

func ok(c *gin.Context, status int, message string, data any) {
	c.JSON(status, gin.H{"success": true, "message": message, "data": data})
}

func fail(c *gin.Context, status int, code, message string, details any) {
	body := gin.H{"success": false, "error": code, "message": message}
	if details != nil {
		body["details"] = details
	}
	c.JSON(status, body)
}
