package models

import (
	"strings"
	"time"
)

// Role identifies the kind of account and drives row visibility.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role is a known account role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// User is an authenticated account. Role specific details live in the profile tables.
type User struct {
	BaseModel

	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FullName  string `gorm:"not null" json:"full_name"`
	AvatarURL string `json:"avatar_url"`
	Role      Role   `gorm:"type:varchar(16);index;not null;default:student" json:"role"`
	IsActive  bool   `gorm:"default:true" json:"is_active"`

	StudentProfile *StudentProfile `gorm:"foreignKey:UserID" json:"student_profile,omitempty"`
	TeacherProfile *TeacherProfile `gorm:"foreignKey:UserID" json:"teacher_profile,omitempty"`

	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `json:"-"`

	FailedAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil    *time.Time `json:"-"`
}

// DisplayName returns the full name, falling back to the email local part.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}
