package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/models"
	apperrors "github.com/charlesng35/campushub/pkg/errors"
)

// Viewer identifies the account a query runs on behalf of.
type Viewer struct {
	UserID       string
	Role         models.Role
	DepartmentID string
}

// IsTeacher reports whether the viewer may author class content.
func (v Viewer) IsTeacher() bool {
	return v.Role == models.RoleTeacher || v.Role == models.RoleAdmin
}

// LoadViewer resolves the role and department of a user. The department comes from the
// student profile first, then the teacher profile.
func LoadViewer(ctx context.Context, db *gorm.DB, userID string) (Viewer, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Viewer{}, apperrors.ErrUnauthorized
	}

	var user models.User
	err := db.WithContext(ctx).
		Preload("StudentProfile").
		Preload("TeacherProfile").
		Take(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Viewer{}, apperrors.ErrUnauthorized
		}
		return Viewer{}, fmt.Errorf("visibility: load viewer: %w", err)
	}

	viewer := Viewer{UserID: user.ID, Role: user.Role}
	switch {
	case user.StudentProfile != nil && user.StudentProfile.DepartmentID != nil:
		viewer.DepartmentID = *user.StudentProfile.DepartmentID
	case user.TeacherProfile != nil && user.TeacherProfile.DepartmentID != nil:
		viewer.DepartmentID = *user.TeacherProfile.DepartmentID
	}
	return viewer, nil
}

// memberClassIDs returns the classes the viewer belongs to: owned classes for teachers,
// enrolled classes for students and every class for admins.
func memberClassIDs(ctx context.Context, db *gorm.DB, viewer Viewer) ([]string, error) {
	tx := db.WithContext(ctx).Model(&models.Class{}).Where("is_archived = ?", false)

	var ids []string
	switch viewer.Role {
	case models.RoleAdmin:
		if err := tx.Pluck("id", &ids).Error; err != nil {
			return nil, err
		}
	case models.RoleTeacher:
		if err := tx.Where("teacher_id = ?", viewer.UserID).Pluck("id", &ids).Error; err != nil {
			return nil, err
		}
	default:
		enrolled := db.Model(&models.ClassEnrollment{}).Select("class_id").Where("student_id = ?", viewer.UserID)
		if err := tx.Where("id IN (?)", enrolled).Pluck("id", &ids).Error; err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// classMemberIDs returns the teacher and enrolled students of a class.
func classMemberIDs(ctx context.Context, db *gorm.DB, classID string) ([]string, error) {
	var class models.Class
	if err := db.WithContext(ctx).Select("id", "teacher_id").Take(&class, "id = ?", classID).Error; err != nil {
		return nil, err
	}

	var students []string
	if err := db.WithContext(ctx).Model(&models.ClassEnrollment{}).
		Where("class_id = ?", classID).
		Pluck("student_id", &students).Error; err != nil {
		return nil, err
	}
	return normaliseIDs(append([]string{class.TeacherID}, students...)), nil
}

// isClassMember reports whether the viewer owns or is enrolled in the class. Admins always are.
func isClassMember(ctx context.Context, db *gorm.DB, viewer Viewer, classID string) (bool, error) {
	if viewer.Role == models.RoleAdmin {
		var count int64
		err := db.WithContext(ctx).Model(&models.Class{}).Where("id = ?", classID).Count(&count).Error
		return count > 0, err
	}

	var owned int64
	if err := db.WithContext(ctx).Model(&models.Class{}).
		Where("id = ? AND teacher_id = ?", classID, viewer.UserID).
		Count(&owned).Error; err != nil {
		return false, err
	}
	if owned > 0 {
		return true, nil
	}

	var enrolled int64
	if err := db.WithContext(ctx).Model(&models.ClassEnrollment{}).
		Where("class_id = ? AND student_id = ?", classID, viewer.UserID).
		Count(&enrolled).Error; err != nil {
		return false, err
	}
	return enrolled > 0, nil
}

// announcementScope limits announcements to what the viewer may read.
func announcementScope(viewer Viewer, classIDs []string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		tx = tx.Where("announcements.is_deleted = ?", false)
		if viewer.Role == models.RoleAdmin {
			return tx
		}

		group := tx.Session(&gorm.Session{NewDB: true}).
			Where("announcements.visibility = ?", models.VisibilityPublic).
			Or("announcements.author_id = ?", viewer.UserID)
		if viewer.DepartmentID != "" {
			group = group.Or("announcements.visibility = ? AND announcements.department_id = ?", models.VisibilityDepartment, viewer.DepartmentID)
		}
		if len(classIDs) > 0 {
			group = group.Or("announcements.visibility = ? AND announcements.class_id IN ?", models.VisibilityClass, classIDs)
		}
		return tx.Where(group)
	}
}

// postScope limits posts to those shared with everyone or with one of the viewer's classes.
func postScope(viewer Viewer, classIDs []string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		tx = tx.Where("posts.is_deleted = ?", false)
		if viewer.Role == models.RoleAdmin {
			return tx
		}

		group := tx.Session(&gorm.Session{NewDB: true}).
			Where("posts.visibility = ?", models.PostVisibilityAllUsers).
			Or("posts.author_id = ?", viewer.UserID)
		if len(classIDs) > 0 {
			group = group.Or("posts.class_id IN ?", classIDs)
		}
		return tx.Where(group)
	}
}

// assignmentScope limits assignments to the viewer's classes. Drafts are visible to their teacher only.
func assignmentScope(viewer Viewer, classIDs []string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if len(classIDs) == 0 {
			return tx.Where("1 = 0")
		}
		tx = tx.Where("assignments.class_id IN ?", classIDs)
		if viewer.Role == models.RoleAdmin {
			return tx
		}
		return tx.Where(tx.Session(&gorm.Session{NewDB: true}).
			Where("assignments.is_published = ?", true).
			Or("assignments.teacher_id = ?", viewer.UserID))
	}
}
