package middleware

import (
	"net/http"
	"strings"

	"installhub/utils"

	"github.com/gin-gonic/gin"
)

const (
	ctxSubject = "subject"
	ctxRole    = "role"
)

// JWTAuthMiddleware validates the bearer token and stores the caller's
// subject and role on the context.
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "unauthorized", "message": "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "unauthorized", "message": "Invalid token"})
			return
		}

		c.Set(ctxSubject, claims.Subject)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// Caller returns the authenticated subject and role.
func Caller(c *gin.Context) (subject, role string) {
	return c.GetString(ctxSubject), c.GetString(ctxRole)
}

func IsAdmin(c *gin.Context) bool {
	return c.GetString(ctxRole) == utils.RoleAdmin
}
