package middleware

import (
	"net/http"

	security "ChatRelay/tools/security"

	"github.com/gin-gonic/gin"
)

const (
	TokenCookie = "token"
	ClaimsKey   = "auth_claims"
)

// Auth 校验 token cookie；失败直接 401。
// The websocket handshake does NOT use this: an invalid token there only
// leaves the connection anonymous.
func Auth(opts security.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(TokenCookie)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "token is not found"})
			return
		}
		claims, err := security.Verify(opts, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "user token is not verified"})
			return
		}
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the verified claims stored by Auth.
func ClaimsFrom(c *gin.Context) (*security.Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*security.Claims)
	return claims, ok
}
