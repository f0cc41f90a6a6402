package models

// StudentProfile carries the academic details of a student account.
type StudentProfile struct {
	BaseModel

	UserID       string      `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	DepartmentID *string     `gorm:"type:uuid;index" json:"department_id"`
	Department   *Department `json:"department,omitempty"`

	Major          string `json:"major"`
	Level          string `json:"level"`
	EnrollmentYear int    `json:"enrollment_year"`
	Semester       int    `json:"semester"`
	GraduationYear int    `json:"graduation_year"`
}

// TeacherProfile carries the faculty details of a teacher account.
type TeacherProfile struct {
	BaseModel

	UserID       string      `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	DepartmentID *string     `gorm:"type:uuid;index" json:"department_id"`
	Department   *Department `json:"department,omitempty"`

	Title string `json:"title"`
	Bio   string `gorm:"type:text" json:"bio"`
}
