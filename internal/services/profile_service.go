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

// ProfileKind names which role profile an account carries.
type ProfileKind string

const (
	ProfileStudent ProfileKind = "student"
	ProfileTeacher ProfileKind = "teacher"
	ProfileNone    ProfileKind = "none"
)

// Profile is the account plus its role profile.
type Profile struct {
	User    models.User            `json:"user"`
	Kind    ProfileKind            `json:"kind"`
	Student *models.StudentProfile `json:"student,omitempty"`
	Teacher *models.TeacherProfile `json:"teacher,omitempty"`
}

// UpdateProfileInput lists the editable profile fields. Nil fields are left unchanged.
type UpdateProfileInput struct {
	FullName       *string `json:"full_name" validate:"omitempty,min=1,max=200"`
	AvatarURL      *string `json:"avatar_url" validate:"omitempty,max=500"`
	DepartmentID   *string `json:"department_id"`
	Major          *string `json:"major" validate:"omitempty,max=120"`
	Level          *string `json:"level" validate:"omitempty,max=60"`
	Semester       *int    `json:"semester" validate:"omitempty,gte=1,lte=12"`
	GraduationYear *int    `json:"graduation_year" validate:"omitempty,gte=1990,lte=2100"`
	Title          *string `json:"title" validate:"omitempty,max=120"`
	Bio            *string `json:"bio" validate:"omitempty,max=2000"`
}

// ProfileService reads and edits account profiles.
type ProfileService struct {
	db *gorm.DB
}

// NewProfileService constructs a ProfileService.
func NewProfileService(db *gorm.DB) (*ProfileService, error) {
	if db == nil {
		return nil, errors.New("profile service: db is required")
	}
	return &ProfileService{db: db}, nil
}

// Get loads the account and checks the student profile first, then the teacher profile.
func (s *ProfileService) Get(ctx context.Context, userID string) (*Profile, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).
		Preload("StudentProfile.Department").
		Preload("TeacherProfile.Department").
		Take(&user, "id = ?", strings.TrimSpace(userID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("Profile not found")
		}
		return nil, fmt.Errorf("profile service: load user: %w", err)
	}

	profile := &Profile{User: user, Kind: ProfileNone}
	switch {
	case user.StudentProfile != nil:
		profile.Kind = ProfileStudent
		profile.Student = user.StudentProfile
	case user.TeacherProfile != nil:
		profile.Kind = ProfileTeacher
		profile.Teacher = user.TeacherProfile
	}
	profile.User.StudentProfile = nil
	profile.User.TeacherProfile = nil
	return profile, nil
}

// Update applies the supplied changes and returns the refreshed profile.
func (s *ProfileService) Update(ctx context.Context, userID string, in UpdateProfileInput) (*Profile, error) {
	ctx = ensureContext(ctx)

	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.DepartmentID != nil && strings.TrimSpace(*in.DepartmentID) != "" {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Department{}).Where("id = ?", strings.TrimSpace(*in.DepartmentID)).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("profile service: check department: %w", err)
		}
		if count == 0 {
			return nil, apperrors.NewBadRequest("Department not found")
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userUpdates := map[string]any{}
		if in.FullName != nil {
			userUpdates["full_name"] = strings.TrimSpace(*in.FullName)
		}
		if in.AvatarURL != nil {
			userUpdates["avatar_url"] = strings.TrimSpace(*in.AvatarURL)
		}
		if len(userUpdates) > 0 {
			if err := tx.Model(&models.User{}).Where("id = ?", current.User.ID).Updates(userUpdates).Error; err != nil {
				return err
			}
		}

		profileUpdates := map[string]any{}
		if in.DepartmentID != nil {
			profileUpdates["department_id"] = optionalString(*in.DepartmentID)
		}

		switch current.Kind {
		case ProfileStudent:
			if in.Major != nil {
				profileUpdates["major"] = strings.TrimSpace(*in.Major)
			}
			if in.Level != nil {
				profileUpdates["level"] = strings.TrimSpace(*in.Level)
			}
			if in.Semester != nil {
				profileUpdates["semester"] = *in.Semester
			}
			if in.GraduationYear != nil {
				profileUpdates["graduation_year"] = *in.GraduationYear
			}
			if len(profileUpdates) > 0 {
				return tx.Model(&models.StudentProfile{}).Where("user_id = ?", current.User.ID).Updates(profileUpdates).Error
			}
		case ProfileTeacher:
			if in.Title != nil {
				profileUpdates["title"] = strings.TrimSpace(*in.Title)
			}
			if in.Bio != nil {
				profileUpdates["bio"] = strings.TrimSpace(*in.Bio)
			}
			if len(profileUpdates) > 0 {
				return tx.Model(&models.TeacherProfile{}).Where("user_id = ?", current.User.ID).Updates(profileUpdates).Error
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("profile service: update: %w", err)
	}

	return s.Get(ctx, userID)
}
