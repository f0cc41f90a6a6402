package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/middleware"
	"github.com/charlesng35/campushub/internal/services"
	"github.com/charlesng35/campushub/pkg/errors"
	"github.com/charlesng35/campushub/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUserID returns the authenticated user id set by the auth middleware.
func currentUserID(c *gin.Context) (string, bool) {
	value, ok := c.Get(middleware.CtxUserIDKey)
	if !ok {
		return "", false
	}
	userID, _ := value.(string)
	userID = strings.TrimSpace(userID)
	return userID, userID != ""
}

// viewerFrom resolves the caller into a services.Viewer. On failure the error response is
// already written and ok is false.
func viewerFrom(c *gin.Context, db *gorm.DB) (services.Viewer, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return services.Viewer{}, false
	}

	viewer, err := services.LoadViewer(requestContext(c), db, userID)
	if err != nil {
		response.Error(c, err)
		return services.Viewer{}, false
	}
	return viewer, true
}
