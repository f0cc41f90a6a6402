package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/services"
	"github.com/charlesng35/campushub/pkg/errors"
	"github.com/charlesng35/campushub/pkg/response"
)

// DocumentHandler serves the shared document library.
type DocumentHandler struct {
	db  *gorm.DB
	svc *services.DocumentService
}

// NewDocumentHandler constructs a DocumentHandler.
func NewDocumentHandler(db *gorm.DB, svc *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{db: db, svc: svc}
}

// GET /api/documents?filter=all|recent|mine|teacher&q=&class_id=&limit=
func (h *DocumentHandler) List(c *gin.Context) {
	filter, valid := services.ParseDocumentFilter(c.Query("filter"))
	if !valid {
		response.Error(c, errors.NewBadRequest("filter must be one of all, recent, mine, teacher"))
		return
	}

	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	documents, err := h.svc.List(requestContext(c), viewer, services.ListDocumentsInput{
		Filter:  filter,
		Query:   c.Query("q"),
		ClassID: c.Query("class_id"),
		Limit:   parseIntQuery(c, "limit", 0),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, documents)
}

// POST /api/documents (multipart: file, name, description, class_id)
func (h *DocumentHandler) Upload(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errors.NewBadRequest("file is required"))
		return
	}

	document, err := h.svc.Upload(requestContext(c), viewer, services.UploadDocumentInput{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		ClassID:     c.PostForm("class_id"),
		File:        uploadFileFromHeader(fh),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, document)
}

type visibilityRequest struct {
	Hidden bool `json:"hidden"`
}

// PATCH /api/documents/:id
func (h *DocumentHandler) SetHidden(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	var req visibilityRequest
	if !bindJSON(c, &req) {
		return
	}

	document, err := h.svc.SetHidden(requestContext(c), viewer, c.Param("id"), req.Hidden)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, document)
}

// DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
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
