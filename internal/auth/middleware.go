package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// PrincipalKey is the gin context key holding the request's Principal.
const PrincipalKey = "principal"

func bearer(c *gin.Context, allowQuery bool) string {
	authz := c.GetHeader("Authorization")
	if len(authz) > len("bearer ") && strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	if allowQuery {
		return c.Query("token")
	}
	return ""
}

// Require enforces an access token with the given role. The principal is put
// into the request context. With allowQuery a ?token= parameter is accepted,
// which browsers need for websocket upgrades.
func Require(tokens *Tokens, role string, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearer(c, allowQuery)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := tokens.Parse(tokenStr, UseAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if role != "" && claims.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		p := Principal{Subject: claims.Subject, Role: claims.Role}
		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
		c.Set(PrincipalKey, p)
		c.Next()
	}
}
