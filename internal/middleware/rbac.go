package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/caraka20/tutontrack/internal/models"
	appErrors "github.com/caraka20/tutontrack/pkg/errors"
	"github.com/caraka20/tutontrack/pkg/response"
)

// RequireRoles admits only authenticated admins holding one of roles.
func RequireRoles(roles ...models.AdminRole) gin.HandlerFunc {
	allowed := make(map[models.AdminRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
