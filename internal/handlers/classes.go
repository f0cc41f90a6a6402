package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/forms"
	"github.com/charlesng35/campushub/internal/models"
	"github.com/charlesng35/campushub/internal/services"
	"github.com/charlesng35/campushub/pkg/errors"
	"github.com/charlesng35/campushub/pkg/logger"
	"github.com/charlesng35/campushub/pkg/response"
)

// ClassHandler serves class listings, enrollment and the class page.
type ClassHandler struct {
	db  *gorm.DB
	svc *services.ClassService
	log *zap.Logger
}

// NewClassHandler constructs a ClassHandler.
func NewClassHandler(db *gorm.DB, svc *services.ClassService) *ClassHandler {
	return &ClassHandler{db: db, svc: svc, log: logger.WithModule("classes")}
}

// POST /api/classes
func (h *ClassHandler) Create(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	var req forms.ClassInput
	if !bindJSON(c, &req) {
		return
	}

	var created *models.Class
	modal := forms.NewClassModal(func(ctx context.Context, values forms.ClassInput) error {
		class, err := h.svc.Create(ctx, viewer, values)
		created = class
		return err
	})
	if !submitForm(c, modal, req) {
		return
	}

	response.Created(c, created)
}

// GET /api/classes/owned
func (h *ClassHandler) ListOwned(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	classes, err := h.svc.ListOwned(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, classes)
}

// GET /api/classes/enrolled
func (h *ClassHandler) ListEnrolled(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	classes, err := h.svc.ListEnrolled(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, classes)
}

// GET /api/classes/explore
func (h *ClassHandler) ListExplore(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	classes, err := h.svc.ListExplore(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, classes)
}

// POST /api/classes/:id/enroll
func (h *ClassHandler) Enroll(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	lists, err := h.svc.Enroll(requestContext(c), viewer, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lists)
}

// GET /api/classes/:id
func (h *ClassHandler) Details(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	classID := strings.TrimSpace(c.Param("id"))
	details, err := h.svc.Details(requestContext(c), classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !h.authorize(c, viewer, classID) {
		return
	}

	response.Success(c, http.StatusOK, details)
}

// Watch streams the class page as server-sent events. The current page is sent first and a fresh
// copy follows every announcement, assignment, post, enrollment, document or message change.
//
// GET /api/classes/:id/watch
func (h *ClassHandler) Watch(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	ctx := requestContext(c)
	classID := strings.TrimSpace(c.Param("id"))
	initial, err := h.svc.Details(ctx, classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !h.authorize(c, viewer, classID) {
		return
	}

	updates := make(chan *services.ClassDetails, 1)
	watch, err := h.svc.Watch(ctx, classID, func(details *services.ClassDetails, err error) {
		if err != nil {
			h.log.Warn("reload class page failed", zap.String("class_id", classID), zap.Error(err))
			return
		}
		// Keep only the newest page when the client falls behind.
		for {
			select {
			case updates <- details:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	defer watch.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("details", initial)
	c.Writer.Flush()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-watch.Done():
			return false
		case details := <-updates:
			c.SSEvent("details", details)
			return true
		}
	})
}

func (h *ClassHandler) authorize(c *gin.Context, viewer services.Viewer, classID string) bool {
	allowed, err := h.svc.CanAccess(requestContext(c), viewer, classID)
	if err != nil {
		response.Error(c, err)
		return false
	}
	if !allowed {
		response.Error(c, errors.NewForbidden("You are not a member of this class"))
		return false
	}
	return true
}
