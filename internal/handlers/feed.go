package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/services"
	"github.com/charlesng35/campushub/pkg/errors"
	"github.com/charlesng35/campushub/pkg/response"
)

// FeedHandler serves the ranked home feed.
type FeedHandler struct {
	db  *gorm.DB
	svc *services.FeedService
}

// NewFeedHandler constructs a FeedHandler.
func NewFeedHandler(db *gorm.DB, svc *services.FeedService) *FeedHandler {
	return &FeedHandler{db: db, svc: svc}
}

// GET /api/feed?tab=all|announcements|assignments|posts
func (h *FeedHandler) Get(c *gin.Context) {
	tab, valid := services.ParseFeedTab(c.Query("tab"))
	if !valid {
		response.Error(c, errors.NewBadRequest("tab must be one of all, announcements, assignments, posts"))
		return
	}

	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	items := h.svc.Feed(requestContext(c), viewer, tab)
	if items == nil {
		items = []services.FeedItem{}
	}
	response.Success(c, http.StatusOK, gin.H{"tab": tab, "items": items})
}
