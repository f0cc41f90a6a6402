package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campushub/internal/services"
	"github.com/charlesng35/campushub/pkg/response"
)

// DirectoryHandler lists campuses and departments for form pickers.
type DirectoryHandler struct {
	svc *services.DirectoryService
}

func NewDirectoryHandler(svc *services.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{svc: svc}
}

// GET /api/campuses
func (h *DirectoryHandler) Campuses(c *gin.Context) {
	campuses, err := h.svc.ListCampuses(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, campuses)
}

// GET /api/departments?campus_id=
func (h *DirectoryHandler) Departments(c *gin.Context) {
	departments, err := h.svc.ListDepartments(requestContext(c), c.Query("campus_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, departments)
}
