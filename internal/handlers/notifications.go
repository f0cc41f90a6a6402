package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/services"
	"github.com/charlesng35/campushub/pkg/errors"
	"github.com/charlesng35/campushub/pkg/response"
)

// NotificationHandler exposes the notification inbox of the caller.
type NotificationHandler struct {
	db  *gorm.DB
	svc *services.NotificationService
}

// NewNotificationHandler constructs a NotificationHandler.
func NewNotificationHandler(db *gorm.DB, svc *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{db: db, svc: svc}
}

type inboxResponse struct {
	Items       []services.NotificationItem `json:"items"`
	UnreadCount int                         `json:"unread_count"`
}

// GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	ctx := requestContext(c)
	var items []services.NotificationItem
	if parseBoolQuery(c, "refresh") {
		items = h.svc.Refresh(ctx, viewer)
	} else {
		items = h.svc.List(ctx, viewer)
	}

	response.Success(c, http.StatusOK, inboxResponse{Items: items, UnreadCount: countUnread(items)})
}

// POST /api/notifications/refresh
func (h *NotificationHandler) Refresh(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	items := h.svc.Refresh(requestContext(c), viewer)
	response.Success(c, http.StatusOK, inboxResponse{Items: items, UnreadCount: countUnread(items)})
}

// GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	response.Success(c, http.StatusOK, gin.H{"unread_count": h.svc.UnreadCount(requestContext(c), viewer)})
}

// POST /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.Error(c, errors.NewBadRequest("notification id is required"))
		return
	}

	ctx := requestContext(c)
	if err := h.svc.MarkAsRead(ctx, viewer, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"unread_count": h.svc.UnreadCount(ctx, viewer)})
}

// POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	ctx := requestContext(c)
	if err := h.svc.MarkAllAsRead(ctx, viewer); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"unread_count": h.svc.UnreadCount(ctx, viewer)})
}

func countUnread(items []services.NotificationItem) int {
	unread := 0
	for _, item := range items {
		if !item.IsRead {
			unread++
		}
	}
	return unread
}
