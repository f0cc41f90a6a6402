package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/models"
	"github.com/charlesng35/campushub/pkg/crypto"
)

// DefaultPassword is the plaintext password assigned to fixture users.
const DefaultPassword = "correct-horse-battery"

// CreateUser inserts an active user with the supplied role and a random email.
func CreateUser(t *testing.T, db *gorm.DB, role models.Role, fullName string) *models.User {
	t.Helper()

	hashed, err := crypto.HashPassword(DefaultPassword)
	require.NoError(t, err)

	user := &models.User{
		Email:    string(role) + "-" + uuid.NewString() + "@example.edu",
		Password: hashed,
		FullName: fullName,
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateDepartment inserts a department with a random code.
func CreateDepartment(t *testing.T, db *gorm.DB, name string) *models.Department {
	t.Helper()

	department := &models.Department{
		Code: "D-" + uuid.NewString()[:8],
		Name: name,
	}
	require.NoError(t, db.Create(department).Error)
	return department
}

// CreateStudentProfile attaches a student profile in the given department.
func CreateStudentProfile(t *testing.T, db *gorm.DB, userID string, departmentID *string) *models.StudentProfile {
	t.Helper()

	profile := &models.StudentProfile{UserID: userID, DepartmentID: departmentID, Semester: 1}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

// CreateClass inserts a class owned by the teacher with a random code.
func CreateClass(t *testing.T, db *gorm.DB, teacherID, name string) *models.Class {
	t.Helper()

	class := &models.Class{
		Name:          name,
		Code:          "C-" + uuid.NewString()[:8],
		TeacherID:     teacherID,
		Credits:       3,
		DurationHours: 2,
		MaxStudents:   30,
		Semesters:     models.EncodeInts([]int{1}),
	}
	require.NoError(t, db.Create(class).Error)
	return class
}

// Enroll links a student to a class.
func Enroll(t *testing.T, db *gorm.DB, classID, studentID string) *models.ClassEnrollment {
	t.Helper()

	enrollment := &models.ClassEnrollment{ClassID: classID, StudentID: studentID, EnrolledAt: time.Now().UTC()}
	require.NoError(t, db.Create(enrollment).Error)
	return enrollment
}
