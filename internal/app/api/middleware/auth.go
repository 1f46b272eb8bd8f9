package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shuttlepoint/server/pkg/auth"
	"github.com/shuttlepoint/server/pkg/logctx"
	"github.com/shuttlepoint/server/pkg/response"
)

// MemberAuthMiddleware requires a Bearer token and exposes the member id
// under logctx.GinMemberIDKey and in the request context. The request logger
// is enriched with member_id.
func MemberAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, "missing bearer token"))
			return
		}
		claims, err := auth.Parse(secret, token)
		if err != nil {
			if log := requestLogger(c); log != nil {
				log.Infow("rejected member token", "err", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, "invalid token"))
			return
		}

		c.Set(logctx.GinMemberIDKey, claims.Subject)
		ctx := logctx.WithMemberID(c.Request.Context(), claims.Subject)
		if log := requestLogger(c); log != nil {
			log = log.With("member_id", claims.Subject)
			c.Set(logctx.GinLoggerKey, log)
			ctx = logctx.WithLogger(ctx, log)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// MemberID returns the authenticated member id.
func MemberID(c *gin.Context) string {
	return c.GetString(logctx.GinMemberIDKey)
}
