package middlewares

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/p-iacone88/booksearch/internal/auth"
	"github.com/p-iacone88/booksearch/internal/session"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// Authenticate derives the request session from a bearer token. A missing or
// invalid token leaves the request anonymous; resolvers decide whether that
// is acceptable.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))

		if !ok {
			c.Next()
			return
		}

		claims, err := m.jwt.Verify(raw)

		if err != nil {
			slog.Default().DebugContext(c.Request.Context(), "ignoring invalid bearer token", "err", err)
			c.Next()
			return
		}

		s := session.Session{
			UserID:   claims.UserID,
			Username: claims.Username,
			Email:    claims.Email,
		}

		c.Request = c.Request.WithContext(session.With(c.Request.Context(), s))
		c.Set(CtxUserID, s.UserID)

		c.Next()
	}
}

// bearerToken accepts "Bearer <token>" with any casing of the scheme.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")

	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}

// UserIDFromContext saves handlers from knowing the magic key.
func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
