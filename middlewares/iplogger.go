package middlewares

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// IPLogger logs the client IP, method, path, status and latency per request.
func IPLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("%s %s %s %d %s",
			c.ClientIP(),
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start),
		)
	}
}
