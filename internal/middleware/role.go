package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campushub/internal/models"
	"github.com/charlesng35/campushub/pkg/errors"
	"github.com/charlesng35/campushub/pkg/metrics"
	"github.com/charlesng35/campushub/pkg/response"
)

// RequireRole admits only callers whose token carries one of the given roles.
// Admins are always admitted.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles)+1)
	allowed[models.RoleAdmin] = struct{}{}
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := c.Get(CtxUserIDKey); !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		role := models.Role(c.GetString(CtxRoleKey))
		if _, ok := allowed[role]; !ok {
			metrics.RoleChecks.WithLabelValues(string(role), "denied").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		metrics.RoleChecks.WithLabelValues(string(role), "allowed").Inc()
		c.Next()
	}
}
