package models

import (
	"time"

	"gorm.io/datatypes"
)

// Class is a course section taught by a single teacher.
type Class struct {
	BaseModel

	Name        string `gorm:"not null" json:"name"`
	Code        string `gorm:"uniqueIndex;not null" json:"code"`
	Description string `gorm:"type:text" json:"description"`

	TeacherID    string      `gorm:"type:uuid;index;not null" json:"teacher_id"`
	Teacher      *User       `json:"teacher,omitempty"`
	DepartmentID *string     `gorm:"type:uuid;index" json:"department_id"`
	Department   *Department `json:"department,omitempty"`

	Credits       int            `gorm:"default:3" json:"credits"`
	DurationHours int            `gorm:"default:1" json:"duration_hours"`
	MaxStudents   int            `gorm:"default:30" json:"max_students"`
	Semesters     datatypes.JSON `json:"semesters"`
	IsArchived    bool           `gorm:"default:false;index" json:"is_archived"`
}

// ClassEnrollment links a student to a class. The pair is unique.
type ClassEnrollment struct {
	BaseModel

	ClassID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_class_enrollment_pair" json:"class_id"`
	Class      *Class    `json:"class,omitempty"`
	StudentID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_class_enrollment_pair;index" json:"student_id"`
	Student    *User     `json:"student,omitempty"`
	EnrolledAt time.Time `json:"enrolled_at"`
}
