package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/forms"
	"github.com/charlesng35/campushub/internal/models"
	"github.com/charlesng35/campushub/internal/services"
	"github.com/charlesng35/campushub/pkg/response"
)

// PostHandler creates and lists posts.
type PostHandler struct {
	db  *gorm.DB
	svc *services.PostService
}

// NewPostHandler constructs a PostHandler.
func NewPostHandler(db *gorm.DB, svc *services.PostService) *PostHandler {
	return &PostHandler{db: db, svc: svc}
}

// GET /api/posts?limit=
func (h *PostHandler) List(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	posts, err := h.svc.List(requestContext(c), viewer, parseIntQuery(c, "limit", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, posts)
}

// POST /api/posts
func (h *PostHandler) Create(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	var req forms.PostInput
	if !bindJSON(c, &req) {
		return
	}

	var created *models.Post
	modal := forms.NewPostModal(func(ctx context.Context, values forms.PostInput) error {
		post, err := h.svc.Create(ctx, viewer, values)
		created = post
		return err
	})
	if !submitForm(c, modal, req) {
		return
	}

	response.Created(c, created)
}

// DELETE /api/posts/:id
func (h *PostHandler) Delete(c *gin.Context) {
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
