package middlewares

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	corsAllowMethods  = "GET,POST,OPTIONS"
	corsAllowHeaders  = "Authorization,Content-Type,X-Request-Id"
	corsExposeHeaders = "X-Request-Id"
	corsMaxAge        = 10 * time.Minute
)

// CORSMiddleware echoes allowed origins back. A "*" entry allows any origin;
// the origin is still echoed rather than sent as "*" so bearer headers work.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))

	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")

		if origin == "*" {
			allowAll = true
			continue
		}
		if origin != "" {
			allowed[origin] = struct{}{}
		}
	}

	return func(ctx *gin.Context) {
		origin := ctx.GetHeader("Origin")
		ctx.Header("Vary", "Origin")

		_, ok := allowed[origin]

		if origin != "" && (ok || allowAll) {
			ctx.Header("Access-Control-Allow-Origin", origin)
			ctx.Header("Access-Control-Allow-Methods", corsAllowMethods)
			ctx.Header("Access-Control-Allow-Headers", corsAllowHeaders)
			ctx.Header("Access-Control-Expose-Headers", corsExposeHeaders)
			ctx.Header("Access-Control-Max-Age", strconv.Itoa(int(corsMaxAge.Seconds())))
		}

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		ctx.Next()
	}
}
