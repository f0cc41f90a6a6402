package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/auth/providers"
	"github.com/charlesng35/campushub/internal/models"
	apperrors "github.com/charlesng35/campushub/pkg/errors"
	"github.com/charlesng35/campushub/pkg/validator"
)

// StudentSignUp carries the optional academic details collected at sign-up.
type StudentSignUp struct {
	DepartmentID   string `json:"department_id"`
	Major          string `json:"major" validate:"max=120"`
	Semester       int    `json:"semester" validate:"gte=0,lte=12"`
	GraduationYear int    `json:"graduation_year" validate:"omitempty,gte=1990,lte=2100"`
}

// TeacherSignUp carries the optional faculty details collected at sign-up.
type TeacherSignUp struct {
	DepartmentID string `json:"department_id"`
	Title        string `json:"title" validate:"max=120"`
}

// SignUpInput is the sign-up request.
type SignUpInput struct {
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,min=8,max=128"`
	FullName string         `json:"full_name" validate:"required,max=200"`
	Role     models.Role    `json:"role" validate:"omitempty,oneof=student teacher"`
	Student  *StudentSignUp `json:"student"`
	Teacher  *TeacherSignUp `json:"teacher"`
}

// AccountService registers accounts together with their role profile.
type AccountService struct {
	db       *gorm.DB
	provider *providers.LocalProvider
}

// NewAccountService constructs an AccountService.
func NewAccountService(db *gorm.DB, provider *providers.LocalProvider) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	if provider == nil {
		return nil, errors.New("account service: local provider is required")
	}
	return &AccountService{db: db, provider: provider}, nil
}

// SignUp creates the user and its student or teacher profile in one transaction.
func (s *AccountService) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	if in.Role == models.RoleAdmin {
		return nil, apperrors.NewForbidden("Admin accounts cannot be self registered")
	}
	if err := validator.ValidateStruct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, apperrors.NewValidation(verrs.Fields())
		}
		return nil, apperrors.NewBadRequest(err.Error())
	}

	role := in.Role
	if role == "" {
		role = models.RoleStudent
	}

	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.provider.WithDB(tx).Register(ctx, providers.RegisterInput{
			Email:    in.Email,
			Password: in.Password,
			FullName: in.FullName,
			Role:     role,
		})
		if err != nil {
			return err
		}

		switch role {
		case models.RoleTeacher:
			profile := models.TeacherProfile{UserID: created.ID}
			if in.Teacher != nil {
				profile.Title = strings.TrimSpace(in.Teacher.Title)
				profile.DepartmentID = optionalString(in.Teacher.DepartmentID)
			}
			if err := s.checkDepartment(tx, profile.DepartmentID); err != nil {
				return err
			}
			if err := tx.Create(&profile).Error; err != nil {
				return err
			}
			created.TeacherProfile = &profile
		default:
			profile := models.StudentProfile{UserID: created.ID, Semester: 1}
			if in.Student != nil {
				profile.DepartmentID = optionalString(in.Student.DepartmentID)
				profile.Major = strings.TrimSpace(in.Student.Major)
				profile.GraduationYear = in.Student.GraduationYear
				if in.Student.Semester > 0 {
					profile.Semester = in.Student.Semester
				}
			}
			if err := s.checkDepartment(tx, profile.DepartmentID); err != nil {
				return err
			}
			if err := tx.Create(&profile).Error; err != nil {
				return err
			}
			created.StudentProfile = &profile
		}

		user = created
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		switch {
		case errors.Is(err, providers.ErrEmailTaken):
			return nil, apperrors.NewConflict("An account with this email already exists")
		case errors.As(err, &appErr):
			return nil, err
		}
		return nil, fmt.Errorf("account service: sign up: %w", err)
	}
	return user, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *AccountService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if len(next) < 8 {
		return apperrors.NewBadRequest("new password must be at least 8 characters")
	}
	if err := s.provider.ChangePassword(ensureContext(ctx), userID, current, next); err != nil {
		if errors.Is(err, providers.ErrInvalidCredentials) {
			return apperrors.ErrInvalidCredentials
		}
		return fmt.Errorf("account service: change password: %w", err)
	}
	return nil
}

func (s *AccountService) checkDepartment(tx *gorm.DB, departmentID *string) error {
	if departmentID == nil {
		return nil
	}
	var count int64
	if err := tx.Model(&models.Department{}).Where("id = ?", *departmentID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperrors.NewBadRequest("Department not found")
	}
	return nil
}
