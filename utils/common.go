package utils

import "github.com/gin-gonic/gin"

func AsPointer[T any](v T) *T {
	return &v
}

// RespondJSON writes payload as the JSON response body with the given status.
// A nil payload writes the status code only.
func RespondJSON(c *gin.Context, status int, payload interface{}) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
