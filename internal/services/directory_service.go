package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/models"
)

// DirectoryService lists campuses and departments for pickers.
type DirectoryService struct {
	db *gorm.DB
}

// NewDirectoryService constructs a DirectoryService.
func NewDirectoryService(db *gorm.DB) (*DirectoryService, error) {
	if db == nil {
		return nil, errors.New("directory service: db is required")
	}
	return &DirectoryService{db: db}, nil
}

// ListCampuses returns active campuses ordered by name.
func (s *DirectoryService) ListCampuses(ctx context.Context) ([]models.Campus, error) {
	var rows []models.Campus
	if err := s.db.WithContext(ensureContext(ctx)).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("directory service: list campuses: %w", err)
	}
	return rows, nil
}

// ListDepartments returns departments, optionally restricted to a campus.
func (s *DirectoryService) ListDepartments(ctx context.Context, campusID string) ([]models.Department, error) {
	query := s.db.WithContext(ensureContext(ctx)).Order("name ASC")
	if campusID = strings.TrimSpace(campusID); campusID != "" {
		query = query.Where("campus_id = ?", campusID)
	}

	var rows []models.Department
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("directory service: list departments: %w", err)
	}
	return rows, nil
}
