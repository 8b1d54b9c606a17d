package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AxonC/PrescriptionManagementApi/internal/handler"
)

// DefaultMaxBodyBytes bounds request bodies. No endpoint accepts uploads,
// so 1MB is generous.
const DefaultMaxBodyBytes int64 = 1 << 20

// BodyLimit rejects oversized requests before handlers read them.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				handler.NewErrorResponse("request body too large"))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
