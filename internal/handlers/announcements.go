package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/forms"
	"github.com/charlesng35/campushub/internal/models"
	"github.com/charlesng35/campushub/internal/services"
	"github.com/charlesng35/campushub/pkg/response"
)

// AnnouncementHandler publishes and lists announcements.
type AnnouncementHandler struct {
	db  *gorm.DB
	svc *services.AnnouncementService
}

// NewAnnouncementHandler constructs an AnnouncementHandler.
func NewAnnouncementHandler(db *gorm.DB, svc *services.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{db: db, svc: svc}
}

// GET /api/announcements?class_id=&limit=
func (h *AnnouncementHandler) List(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	items, err := h.svc.List(requestContext(c), viewer, strings.TrimSpace(c.Query("class_id")), parseIntQuery(c, "limit", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// POST /api/announcements
func (h *AnnouncementHandler) Create(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	var req forms.AnnouncementInput
	if !bindJSON(c, &req) {
		return
	}

	var created *models.Announcement
	modal := forms.NewAnnouncementModal(func(ctx context.Context, values forms.AnnouncementInput) error {
		announcement, err := h.svc.Create(ctx, viewer, values)
		created = announcement
		return err
	})
	if !submitForm(c, modal, req) {
		return
	}

	response.Created(c, created)
}

// DELETE /api/announcements/:id
func (h *AnnouncementHandler) Delete(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	if err := h.svc.Delete(requestContext(c), viewer, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
