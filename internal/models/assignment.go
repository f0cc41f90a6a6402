package models

import (
	"time"

	"gorm.io/datatypes"
)

// DefaultTotalPoints is applied when an assignment is created without a score ceiling.
const DefaultTotalPoints = 100

// Assignment is graded coursework attached to a class.
type Assignment struct {
	BaseModel

	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`

	ClassID   string `gorm:"type:uuid;index;not null" json:"class_id"`
	Class     *Class `json:"class,omitempty"`
	TeacherID string `gorm:"type:uuid;index;not null" json:"teacher_id"`
	Teacher   *User  `json:"teacher,omitempty"`

	DueAt       time.Time `gorm:"index" json:"due_at"`
	TotalPoints int       `gorm:"default:100" json:"total_points"`
	IsPublished bool      `gorm:"default:false;index" json:"is_published"`
}

// SubmissionStatus tracks a submission through grading.
type SubmissionStatus string

const (
	SubmissionDraft     SubmissionStatus = "draft"
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionGraded    SubmissionStatus = "graded"
	SubmissionReturned  SubmissionStatus = "returned"
)

// AssignmentSubmission is one student's answer to an assignment.
type AssignmentSubmission struct {
	BaseModel

	AssignmentID string      `gorm:"type:uuid;not null;uniqueIndex:idx_submission_pair" json:"assignment_id"`
	Assignment   *Assignment `json:"assignment,omitempty"`
	StudentID    string      `gorm:"type:uuid;not null;uniqueIndex:idx_submission_pair;index" json:"student_id"`
	Student      *User       `json:"student,omitempty"`

	TextAnswer  string           `gorm:"type:text" json:"text_answer"`
	FileURLs    datatypes.JSON   `json:"file_urls"`
	Status      SubmissionStatus `gorm:"type:varchar(16);index;not null;default:draft" json:"status"`
	SubmittedAt *time.Time       `json:"submitted_at"`

	Grade    *float64   `json:"grade"`
	Feedback string     `gorm:"type:text" json:"feedback"`
	GradedBy *string    `gorm:"type:uuid" json:"graded_by"`
	GradedAt *time.Time `json:"graded_at"`
}
