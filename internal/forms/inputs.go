package forms

import (
	"strings"
	"time"

	"github.com/charlesng35/campushub/internal/models"
)

// Default values applied when a form omits them.
const (
	DefaultTotalPoints   = 100
	DefaultCredits       = 3
	DefaultDurationHours = 1
	DefaultMaxStudents   = 30
)

// AnnouncementInput is the payload of the announcement creation form.
type AnnouncementInput struct {
	Title        string            `json:"title" validate:"required,max=200"`
	Content      string            `json:"content" validate:"required"`
	Visibility   models.Visibility `json:"visibility" validate:"required,oneof=public department class private"`
	ClassID      string            `json:"class_id" validate:"required_if=Visibility class"`
	DepartmentID string            `json:"department_id" validate:"required_if=Visibility department"`
	IsUrgent     bool              `json:"is_urgent"`
}

// NormalizeAnnouncement trims text and defaults visibility to class.
func NormalizeAnnouncement(in AnnouncementInput) AnnouncementInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.ClassID = strings.TrimSpace(in.ClassID)
	in.DepartmentID = strings.TrimSpace(in.DepartmentID)
	in.Visibility = models.Visibility(strings.ToLower(strings.TrimSpace(string(in.Visibility))))
	if in.Visibility == "" {
		in.Visibility = models.VisibilityClass
	}
	return in
}

// NewAnnouncementModal wires an announcement form to submit.
func NewAnnouncementModal(submit SubmitFunc[AnnouncementInput], opts ...Option[AnnouncementInput]) *Modal[AnnouncementInput] {
	base := []Option[AnnouncementInput]{
		WithDefaults(func() AnnouncementInput {
			return AnnouncementInput{Visibility: models.VisibilityClass}
		}),
		WithNormalizer(NormalizeAnnouncement),
	}
	return NewModal(submit, append(base, opts...)...)
}

// AssignmentInput is the payload of the assignment creation form.
type AssignmentInput struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"required"`
	ClassID     string    `json:"class_id" validate:"required"`
	DueAt       time.Time `json:"due_at" validate:"required"`
	TotalPoints int       `json:"total_points" validate:"min=1,max=1000"`
	IsPublished bool      `json:"is_published"`
}

// NormalizeAssignment trims text and defaults total points.
func NormalizeAssignment(in AssignmentInput) AssignmentInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ClassID = strings.TrimSpace(in.ClassID)
	if in.TotalPoints == 0 {
		in.TotalPoints = DefaultTotalPoints
	}
	return in
}

// NewAssignmentModal wires an assignment form to submit.
func NewAssignmentModal(submit SubmitFunc[AssignmentInput], opts ...Option[AssignmentInput]) *Modal[AssignmentInput] {
	base := []Option[AssignmentInput]{
		WithDefaults(func() AssignmentInput {
			return AssignmentInput{TotalPoints: DefaultTotalPoints}
		}),
		WithNormalizer(NormalizeAssignment),
	}
	return NewModal(submit, append(base, opts...)...)
}

// PostInput is the payload of the post creation form.
type PostInput struct {
	Content    string                `json:"content" validate:"required,max=5000"`
	Visibility models.PostVisibility `json:"visibility" validate:"required,oneof=class all_users"`
	ClassID    string                `json:"class_id" validate:"required_if=Visibility class,excluded_if=Visibility all_users"`
	ImageURLs  []string              `json:"image_urls" validate:"max=10"`
}

// NormalizePost trims text, drops blank image urls and defaults visibility to class.
func NormalizePost(in PostInput) PostInput {
	in.Content = strings.TrimSpace(in.Content)
	in.ClassID = strings.TrimSpace(in.ClassID)
	in.Visibility = models.PostVisibility(strings.ToLower(strings.TrimSpace(string(in.Visibility))))
	if in.Visibility == "" {
		in.Visibility = models.PostVisibilityClass
	}
	urls := make([]string, 0, len(in.ImageURLs))
	for _, u := range in.ImageURLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	in.ImageURLs = urls
	return in
}

// NewPostModal wires a post form to submit.
func NewPostModal(submit SubmitFunc[PostInput], opts ...Option[PostInput]) *Modal[PostInput] {
	base := []Option[PostInput]{
		WithDefaults(func() PostInput {
			return PostInput{Visibility: models.PostVisibilityClass}
		}),
		WithNormalizer(NormalizePost),
	}
	return NewModal(submit, append(base, opts...)...)
}

// ClassInput is the payload of the class creation form.
type ClassInput struct {
	Name          string   `json:"name" validate:"required,max=200"`
	Code          string   `json:"code" validate:"required,max=32"`
	Description   string   `json:"description"`
	Credits       int      `json:"credits" validate:"min=1,max=20"`
	DurationHours int      `json:"duration_hours" validate:"min=1,max=8"`
	MaxStudents   int      `json:"max_students" validate:"min=1,max=200"`
	Semesters     []int    `json:"semesters" validate:"min=1,dive,min=1,max=12"`
	DepartmentIDs []string `json:"department_ids" validate:"min=1,dive,required"`
}

// DepartmentID returns the primary department, the first one selected.
func (in ClassInput) DepartmentID() string {
	if len(in.DepartmentIDs) == 0 {
		return ""
	}
	return in.DepartmentIDs[0]
}

// NormalizeClass trims text and defaults numeric fields.
func NormalizeClass(in ClassInput) ClassInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Description = strings.TrimSpace(in.Description)
	if in.Credits == 0 {
		in.Credits = DefaultCredits
	}
	if in.DurationHours == 0 {
		in.DurationHours = DefaultDurationHours
	}
	if in.MaxStudents == 0 {
		in.MaxStudents = DefaultMaxStudents
	}
	ids := make([]string, 0, len(in.DepartmentIDs))
	for _, id := range in.DepartmentIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	in.DepartmentIDs = ids
	return in
}

// NewClassModal wires a class form to submit.
func NewClassModal(submit SubmitFunc[ClassInput], opts ...Option[ClassInput]) *Modal[ClassInput] {
	base := []Option[ClassInput]{
		WithDefaults(func() ClassInput {
			return ClassInput{
				Credits:       DefaultCredits,
				DurationHours: DefaultDurationHours,
				MaxStudents:   DefaultMaxStudents,
			}
		}),
		WithNormalizer(NormalizeClass),
	}
	return NewModal(submit, append(base, opts...)...)
}
