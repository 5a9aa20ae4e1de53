package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoStore keeps per-user responses out of browser and proxy caches, so a page
// viewed before logout cannot be replayed with the back button.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate, private")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
