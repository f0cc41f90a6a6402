package models

import "time"

// Visibility scopes who may read an announcement.
type Visibility string

const (
	VisibilityPublic     Visibility = "public"
	VisibilityDepartment Visibility = "department"
	VisibilityClass      Visibility = "class"
	VisibilityPrivate    Visibility = "private"
)

// DefaultUrgentWindow is how long an urgent announcement stays surfaced as a notification.
const DefaultUrgentWindow = 48 * time.Hour

// Announcement is a teacher or admin broadcast scoped by Visibility.
type Announcement struct {
	BaseModel

	Title string `gorm:"not null" json:"title"`
	Body  string `gorm:"type:text;not null" json:"body"`

	AuthorID     string      `gorm:"type:uuid;index;not null" json:"author_id"`
	Author       *User       `json:"author,omitempty"`
	ClassID      *string     `gorm:"type:uuid;index" json:"class_id"`
	Class        *Class      `json:"class,omitempty"`
	DepartmentID *string     `gorm:"type:uuid;index" json:"department_id"`
	Department   *Department `json:"department,omitempty"`

	Visibility Visibility `gorm:"type:varchar(16);index;not null;default:class" json:"visibility"`
	IsUrgent   bool       `gorm:"default:false;index" json:"is_urgent"`
	IsDeleted  bool       `gorm:"default:false;index" json:"-"`
}

// UrgentActive reports whether the announcement is urgent and still inside the urgent window.
func (a Announcement) UrgentActive(now time.Time, window time.Duration) bool {
	if !a.IsUrgent {
		return false
	}
	if window <= 0 {
		window = DefaultUrgentWindow
	}
	return now.Sub(a.CreatedAt) < window
}
