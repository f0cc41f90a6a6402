package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/campushub/internal/forms"
	"github.com/charlesng35/campushub/internal/models"
	"github.com/charlesng35/campushub/internal/realtime"
	apperrors "github.com/charlesng35/campushub/pkg/errors"
)

// Assignment events published on class streams.
const (
	EventAssignmentCreated  = "assignment.created"
	EventSubmissionSaved    = "submission.saved"
	EventSubmissionGraded   = "submission.graded"
	EventAssignmentReleased = "assignment.published"
)

// SubmitAssignmentInput carries a student's answer.
type SubmitAssignmentInput struct {
	AssignmentID string                  `json:"assignment_id" validate:"required"`
	TextAnswer   string                  `json:"text_answer" validate:"max=20000"`
	FileURLs     []string                `json:"file_urls" validate:"max=10"`
	Status       models.SubmissionStatus `json:"status" validate:"omitempty,oneof=draft submitted"`
}

// GradeSubmissionInput carries a teacher's grade.
type GradeSubmissionInput struct {
	SubmissionID string  `json:"submission_id" validate:"required"`
	Grade        float64 `json:"grade" validate:"gte=0"`
	Feedback     string  `json:"feedback" validate:"max=5000"`
	Return       bool    `json:"return"`
}

// AssignmentService manages assignments, submissions and grading.
type AssignmentService struct {
	db     *gorm.DB
	events *ChangePublisher
	clock  Clock
}

// NewAssignmentService constructs an AssignmentService. events may be nil.
func NewAssignmentService(db *gorm.DB, events *ChangePublisher) (*AssignmentService, error) {
	if db == nil {
		return nil, errors.New("assignment service: db is required")
	}
	return &AssignmentService{db: db, events: events, clock: systemClock}, nil
}

// Create stores an assignment in a class taught by the viewer.
func (s *AssignmentService) Create(ctx context.Context, viewer Viewer, in forms.AssignmentInput) (*models.Assignment, error) {
	ctx = ensureContext(ctx)
	if !viewer.IsTeacher() {
		return nil, apperrors.NewForbidden("Only teachers can create assignments")
	}

	class, err := s.ownedClass(ctx, viewer, in.ClassID)
	if err != nil {
		return nil, err
	}

	assignment := &models.Assignment{
		Title:       in.Title,
		Description: in.Description,
		ClassID:     class.ID,
		TeacherID:   viewer.UserID,
		DueAt:       in.DueAt.UTC(),
		TotalPoints: in.TotalPoints,
		IsPublished: in.IsPublished,
	}
	if err := s.db.WithContext(ctx).Create(assignment).Error; err != nil {
		return nil, fmt.Errorf("assignment service: create: %w", err)
	}

	s.events.ClassChanged(ctx, class.ID, realtime.KindAssignments, EventAssignmentCreated, assignment)
	return assignment, nil
}

// Publish makes a draft assignment visible to students.
func (s *AssignmentService) Publish(ctx context.Context, viewer Viewer, assignmentID string) (*models.Assignment, error) {
	ctx = ensureContext(ctx)

	assignment, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.TeacherID != viewer.UserID && viewer.Role != models.RoleAdmin {
		return nil, apperrors.NewForbidden("You can only publish your own assignments")
	}
	if assignment.IsPublished {
		return assignment, nil
	}

	if err := s.db.WithContext(ctx).Model(assignment).Update("is_published", true).Error; err != nil {
		return nil, fmt.Errorf("assignment service: publish: %w", err)
	}
	assignment.IsPublished = true

	s.events.ClassChanged(ctx, assignment.ClassID, realtime.KindAssignments, EventAssignmentReleased, assignment)
	return assignment, nil
}

// ListByClass returns the class assignments visible to the viewer, soonest due first.
func (s *AssignmentService) ListByClass(ctx context.Context, viewer Viewer, classID string) ([]models.Assignment, error) {
	ctx = ensureContext(ctx)

	member, err := isClassMember(ctx, s.db, viewer, classID)
	if err != nil {
		return nil, fmt.Errorf("assignment service: check membership: %w", err)
	}
	if !member {
		return nil, apperrors.NewForbidden("You are not a member of this class")
	}

	var rows []models.Assignment
	if err := s.db.WithContext(ctx).
		Scopes(assignmentScope(viewer, []string{classID})).
		Order("assignments.due_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("assignment service: list: %w", err)
	}
	return rows, nil
}

// Submit saves the viewer's answer. A submitted answer can no longer be changed once graded.
func (s *AssignmentService) Submit(ctx context.Context, viewer Viewer, in SubmitAssignmentInput) (*models.AssignmentSubmission, error) {
	ctx = ensureContext(ctx)
	if viewer.Role != models.RoleStudent {
		return nil, apperrors.NewForbidden("Only students can submit assignments")
	}

	assignment, err := s.load(ctx, in.AssignmentID)
	if err != nil {
		return nil, err
	}
	if !assignment.IsPublished {
		return nil, apperrors.NewNotFound("Assignment not found")
	}
	member, err := isClassMember(ctx, s.db, viewer, assignment.ClassID)
	if err != nil {
		return nil, fmt.Errorf("assignment service: check membership: %w", err)
	}
	if !member {
		return nil, apperrors.NewForbidden("You are not enrolled in this class")
	}

	status := in.Status
	if status == "" {
		status = models.SubmissionSubmitted
	}

	var submission models.AssignmentSubmission
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&submission, "assignment_id = ? AND student_id = ?", assignment.ID, viewer.UserID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if submission.Status == models.SubmissionGraded {
			return apperrors.NewConflict("Submission has already been graded")
		}

		submission.AssignmentID = assignment.ID
		submission.StudentID = viewer.UserID
		submission.TextAnswer = strings.TrimSpace(in.TextAnswer)
		submission.FileURLs = models.EncodeStrings(normaliseIDs(in.FileURLs))
		submission.Status = status
		if status == models.SubmissionSubmitted {
			now := s.clock()
			submission.SubmittedAt = &now
		}
		return tx.Save(&submission).Error
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("assignment service: submit: %w", err)
	}

	s.events.ClassChanged(ctx, assignment.ClassID, realtime.KindAssignments, EventSubmissionSaved, map[string]string{
		"assignment_id": assignment.ID,
		"submission_id": submission.ID,
	})
	return &submission, nil
}

// ListSubmissions returns the submissions of an assignment for its teacher.
func (s *AssignmentService) ListSubmissions(ctx context.Context, viewer Viewer, assignmentID string) ([]models.AssignmentSubmission, error) {
	ctx = ensureContext(ctx)

	assignment, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.TeacherID != viewer.UserID && viewer.Role != models.RoleAdmin {
		return nil, apperrors.NewForbidden("Only the class teacher can view submissions")
	}

	var rows []models.AssignmentSubmission
	if err := s.db.WithContext(ctx).
		Preload("Student").
		Where("assignment_id = ? AND status <> ?", assignment.ID, models.SubmissionDraft).
		Order("submitted_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("assignment service: list submissions: %w", err)
	}
	return rows, nil
}

// Grade records a grade no higher than the assignment's total points.
func (s *AssignmentService) Grade(ctx context.Context, viewer Viewer, in GradeSubmissionInput) (*models.AssignmentSubmission, error) {
	ctx = ensureContext(ctx)
	if !viewer.IsTeacher() {
		return nil, apperrors.NewForbidden("Only teachers can grade submissions")
	}

	var submission models.AssignmentSubmission
	if err := s.db.WithContext(ctx).Preload("Assignment").Take(&submission, "id = ?", in.SubmissionID).Error; err != nil {
		return nil, notFoundOr(err, "Submission not found")
	}
	assignment := submission.Assignment
	if assignment == nil {
		return nil, apperrors.NewNotFound("Assignment not found")
	}
	if assignment.TeacherID != viewer.UserID && viewer.Role != models.RoleAdmin {
		return nil, apperrors.NewForbidden("Only the class teacher can grade this submission")
	}
	if submission.Status == models.SubmissionDraft {
		return nil, apperrors.NewBadRequest("Draft submissions cannot be graded")
	}
	if in.Grade < 0 || in.Grade > float64(assignment.TotalPoints) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("grade must be between 0 and %d", assignment.TotalPoints))
	}

	now := s.clock()
	grade := in.Grade
	grader := viewer.UserID
	status := models.SubmissionGraded
	if in.Return {
		status = models.SubmissionReturned
	}

	updates := map[string]any{
		"grade":     grade,
		"feedback":  strings.TrimSpace(in.Feedback),
		"graded_by": grader,
		"graded_at": now,
		"status":    status,
	}
	if err := s.db.WithContext(ctx).Model(&submission).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("assignment service: grade: %w", err)
	}
	submission.Grade = &grade
	submission.Feedback = strings.TrimSpace(in.Feedback)
	submission.GradedBy = &grader
	submission.GradedAt = &now
	submission.Status = status

	s.events.ClassChanged(ctx, assignment.ClassID, realtime.KindAssignments, EventSubmissionGraded, map[string]string{
		"assignment_id": assignment.ID,
		"submission_id": submission.ID,
	})
	return &submission, nil
}

func (s *AssignmentService) load(ctx context.Context, id string) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := s.db.WithContext(ctx).Take(&assignment, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("Assignment not found")
		}
		return nil, fmt.Errorf("assignment service: load: %w", err)
	}
	return &assignment, nil
}

func (s *AssignmentService) ownedClass(ctx context.Context, viewer Viewer, classID string) (*models.Class, error) {
	var class models.Class
	if err := s.db.WithContext(ctx).Take(&class, "id = ?", strings.TrimSpace(classID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewBadRequest("Class not found")
		}
		return nil, fmt.Errorf("assignment service: load class: %w", err)
	}
	if class.TeacherID != viewer.UserID && viewer.Role != models.RoleAdmin {
		return nil, apperrors.NewForbidden("You can only add assignments to your own classes")
	}
	return &class, nil
}
