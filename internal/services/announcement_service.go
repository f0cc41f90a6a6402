package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/forms"
	"github.com/charlesng35/campushub/internal/models"
	"github.com/charlesng35/campushub/internal/realtime"
	apperrors "github.com/charlesng35/campushub/pkg/errors"
)

// Announcement events published on class streams.
const (
	EventAnnouncementCreated = "announcement.created"
	EventAnnouncementDeleted = "announcement.deleted"
)

// AnnouncementService creates and lists announcements.
type AnnouncementService struct {
	db     *gorm.DB
	events *ChangePublisher
}

// NewAnnouncementService constructs an AnnouncementService. events may be nil.
func NewAnnouncementService(db *gorm.DB, events *ChangePublisher) (*AnnouncementService, error) {
	if db == nil {
		return nil, errors.New("announcement service: db is required")
	}
	return &AnnouncementService{db: db, events: events}, nil
}

// Create stores an announcement authored by the viewer. Class announcements require ownership of
// the class unless the viewer is an admin.
func (s *AnnouncementService) Create(ctx context.Context, viewer Viewer, in forms.AnnouncementInput) (*models.Announcement, error) {
	ctx = ensureContext(ctx)
	if !viewer.IsTeacher() {
		return nil, apperrors.NewForbidden("Only teachers can publish announcements")
	}

	announcement := &models.Announcement{
		Title:      in.Title,
		Body:       in.Content,
		AuthorID:   viewer.UserID,
		Visibility: in.Visibility,
		IsUrgent:   in.IsUrgent,
	}

	switch in.Visibility {
	case models.VisibilityClass:
		if err := s.requireOwnedClass(ctx, viewer, in.ClassID); err != nil {
			return nil, err
		}
		announcement.ClassID = optionalString(in.ClassID)
	case models.VisibilityDepartment:
		var department models.Department
		if err := s.db.WithContext(ctx).Select("id").Take(&department, "id = ?", in.DepartmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NewBadRequest("Department not found")
			}
			return nil, fmt.Errorf("announcement service: load department: %w", err)
		}
		announcement.DepartmentID = optionalString(in.DepartmentID)
	}

	if err := s.db.WithContext(ctx).Create(announcement).Error; err != nil {
		return nil, fmt.Errorf("announcement service: create: %w", err)
	}

	s.publish(ctx, announcement, EventAnnouncementCreated)
	return announcement, nil
}

// List returns the announcements visible to the viewer, newest first.
func (s *AnnouncementService) List(ctx context.Context, viewer Viewer, classID string, limit int) ([]models.Announcement, error) {
	ctx = ensureContext(ctx)

	classIDs, err := memberClassIDs(ctx, s.db, viewer)
	if err != nil {
		return nil, fmt.Errorf("announcement service: resolve classes: %w", err)
	}

	query := s.db.WithContext(ctx).
		Preload("Author").Preload("Class").Preload("Department").
		Scopes(announcementScope(viewer, classIDs))
	if classID != "" {
		query = query.Where("announcements.class_id = ?", classID)
	}

	var rows []models.Announcement
	if err := query.Order("announcements.created_at DESC").
		Limit(clampLimit(limit, 25, 100)).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("announcement service: list: %w", err)
	}
	return rows, nil
}

// Delete soft deletes an announcement. Only its author or an admin may delete it.
func (s *AnnouncementService) Delete(ctx context.Context, viewer Viewer, id string) error {
	ctx = ensureContext(ctx)

	var announcement models.Announcement
	if err := s.db.WithContext(ctx).Take(&announcement, "id = ? AND is_deleted = ?", id, false).Error; err != nil {
		return notFoundOr(err, "Announcement not found")
	}
	if announcement.AuthorID != viewer.UserID && viewer.Role != models.RoleAdmin {
		return apperrors.NewForbidden("You can only delete your own announcements")
	}

	if err := s.db.WithContext(ctx).Model(&announcement).Update("is_deleted", true).Error; err != nil {
		return fmt.Errorf("announcement service: delete: %w", err)
	}

	s.publish(ctx, &announcement, EventAnnouncementDeleted)
	return nil
}

func (s *AnnouncementService) requireOwnedClass(ctx context.Context, viewer Viewer, classID string) error {
	var class models.Class
	if err := s.db.WithContext(ctx).Select("id", "teacher_id").Take(&class, "id = ?", classID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewBadRequest("Class not found")
		}
		return fmt.Errorf("announcement service: load class: %w", err)
	}
	if class.TeacherID != viewer.UserID && viewer.Role != models.RoleAdmin {
		return apperrors.NewForbidden("You can only announce to your own classes")
	}
	return nil
}

func (s *AnnouncementService) publish(ctx context.Context, announcement *models.Announcement, event string) {
	if classID := derefString(announcement.ClassID); classID != "" {
		s.events.ClassChanged(ctx, classID, realtime.KindAnnouncements, event, announcement)
		return
	}
	s.events.GlobalChanged(ctx)
}
