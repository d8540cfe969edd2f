package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	defaultCSP = "default-src 'none'"
	// GraphiQL page needs CDN assets + inline bootstrap script/style.
	playgroundCSP = "default-src 'self'; base-uri 'none'; frame-ancestors 'none'; object-src 'none'; connect-src 'self'; img-src 'self' data: https:; font-src 'self' https://unpkg.com data:; style-src 'self' 'unsafe-inline' https://unpkg.com; script-src 'self' 'unsafe-inline' https://unpkg.com"
)

func SecurityHeaders(playgroundPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("X-XSS-Protection", "0")
		if c.Request.Method == http.MethodGet && c.Request.URL.Path == playgroundPath {
			c.Header("Content-Security-Policy", playgroundCSP)
		} else {
			c.Header("Content-Security-Policy", defaultCSP)
		}
		c.Next()
	}
}
