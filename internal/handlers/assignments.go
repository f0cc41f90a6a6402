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

// AssignmentHandler manages assignments and their submissions.
type AssignmentHandler struct {
	db  *gorm.DB
	svc *services.AssignmentService
}

// NewAssignmentHandler constructs an AssignmentHandler.
func NewAssignmentHandler(db *gorm.DB, svc *services.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{db: db, svc: svc}
}

// POST /api/assignments
func (h *AssignmentHandler) Create(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	var req forms.AssignmentInput
	if !bindJSON(c, &req) {
		return
	}

	var created *models.Assignment
	modal := forms.NewAssignmentModal(func(ctx context.Context, values forms.AssignmentInput) error {
		assignment, err := h.svc.Create(ctx, viewer, values)
		created = assignment
		return err
	})
	if !submitForm(c, modal, req) {
		return
	}

	response.Created(c, created)
}

// POST /api/assignments/:id/publish
func (h *AssignmentHandler) Publish(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	assignment, err := h.svc.Publish(requestContext(c), viewer, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, assignment)
}

// GET /api/classes/:id/assignments
func (h *AssignmentHandler) ListByClass(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	assignments, err := h.svc.ListByClass(requestContext(c), viewer, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, assignments)
}

type submitRequest struct {
	TextAnswer string                  `json:"text_answer"`
	FileURLs   []string                `json:"file_urls"`
	Status     models.SubmissionStatus `json:"status"`
}

// POST /api/assignments/:id/submissions
func (h *AssignmentHandler) Submit(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	var req submitRequest
	if !bindJSON(c, &req) {
		return
	}

	in := services.SubmitAssignmentInput{
		AssignmentID: c.Param("id"),
		TextAnswer:   req.TextAnswer,
		FileURLs:     req.FileURLs,
		Status:       req.Status,
	}
	if !validStruct(c, &in) {
		return
	}

	submission, err := h.svc.Submit(requestContext(c), viewer, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, submission)
}

// GET /api/assignments/:id/submissions
func (h *AssignmentHandler) ListSubmissions(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	submissions, err := h.svc.ListSubmissions(requestContext(c), viewer, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, submissions)
}

type gradeRequest struct {
	Grade    float64 `json:"grade"`
	Feedback string  `json:"feedback"`
	Return   bool    `json:"return"`
}

// POST /api/submissions/:id/grade
func (h *AssignmentHandler) Grade(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	var req gradeRequest
	if !bindJSON(c, &req) {
		return
	}

	in := services.GradeSubmissionInput{
		SubmissionID: c.Param("id"),
		Grade:        req.Grade,
		Feedback:     req.Feedback,
		Return:       req.Return,
	}
	if !validStruct(c, &in) {
		return
	}

	submission, err := h.svc.Grade(requestContext(c), viewer, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, submission)
}
