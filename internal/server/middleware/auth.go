package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/modelrelay/modelrelay/internal/core/domain"
)

// Auth checks for a valid Bearer token in the Authorization header against
// the statically configured API keys. An empty key list disables auth
// entirely (local single-user deployments).
func Auth(staticKeys []string) gin.HandlerFunc {
	staticMap := make(map[string]bool)
	for _, k := range staticKeys {
		staticMap[k] = true
	}

	return func(c *gin.Context) {
		if len(staticMap) == 0 {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			problem := domain.UnauthorizedError("Missing Authorization header")
			c.AbortWithStatusJSON(problem.Status, problem)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			problem := domain.UnauthorizedError("Invalid Authorization header format")
			c.AbortWithStatusJSON(problem.Status, problem)
			return
		}

		if !staticMap[parts[1]] {
			problem := domain.UnauthorizedError("Invalid API key")
			c.AbortWithStatusJSON(problem.Status, problem)
			return
		}

		c.Next()
	}
}
