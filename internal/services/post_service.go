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

// Post events published on class streams.
const (
	EventPostCreated = "post.created"
	EventPostDeleted = "post.deleted"
)

// PostService creates and lists timeline posts.
type PostService struct {
	db     *gorm.DB
	events *ChangePublisher
}

// NewPostService constructs a PostService. events may be nil.
func NewPostService(db *gorm.DB, events *ChangePublisher) (*PostService, error) {
	if db == nil {
		return nil, errors.New("post service: db is required")
	}
	return &PostService{db: db, events: events}, nil
}

// Create stores a post. Class posts require membership of the class.
func (s *PostService) Create(ctx context.Context, viewer Viewer, in forms.PostInput) (*models.Post, error) {
	ctx = ensureContext(ctx)

	post := &models.Post{
		Content:    in.Content,
		AuthorID:   viewer.UserID,
		Visibility: in.Visibility,
		ImageURLs:  models.EncodeStrings(in.ImageURLs),
	}

	if in.Visibility == models.PostVisibilityClass {
		member, err := isClassMember(ctx, s.db, viewer, in.ClassID)
		if err != nil {
			return nil, fmt.Errorf("post service: check membership: %w", err)
		}
		if !member {
			return nil, apperrors.NewForbidden("You are not a member of this class")
		}
		post.ClassID = optionalString(in.ClassID)
	}

	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("post service: create: %w", err)
	}

	s.publish(ctx, post, EventPostCreated)
	return post, nil
}

// List returns the posts visible to the viewer, newest first.
func (s *PostService) List(ctx context.Context, viewer Viewer, limit int) ([]models.Post, error) {
	ctx = ensureContext(ctx)

	classIDs, err := memberClassIDs(ctx, s.db, viewer)
	if err != nil {
		return nil, fmt.Errorf("post service: resolve classes: %w", err)
	}

	var rows []models.Post
	if err := s.db.WithContext(ctx).
		Preload("Author").Preload("Class").
		Scopes(postScope(viewer, classIDs)).
		Order("posts.created_at DESC").
		Limit(clampLimit(limit, 25, 100)).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("post service: list: %w", err)
	}
	return rows, nil
}

// Delete soft deletes a post owned by the viewer.
func (s *PostService) Delete(ctx context.Context, viewer Viewer, id string) error {
	ctx = ensureContext(ctx)

	var post models.Post
	if err := s.db.WithContext(ctx).Take(&post, "id = ? AND is_deleted = ?", id, false).Error; err != nil {
		return notFoundOr(err, "Post not found")
	}
	if post.AuthorID != viewer.UserID && viewer.Role != models.RoleAdmin {
		return apperrors.NewForbidden("You can only delete your own posts")
	}

	if err := s.db.WithContext(ctx).Model(&post).Update("is_deleted", true).Error; err != nil {
		return fmt.Errorf("post service: delete: %w", err)
	}

	s.publish(ctx, &post, EventPostDeleted)
	return nil
}

func (s *PostService) publish(ctx context.Context, post *models.Post, event string) {
	if classID := derefString(post.ClassID); classID != "" {
		s.events.ClassChanged(ctx, classID, realtime.KindPosts, event, post)
		return
	}
	s.events.GlobalChanged(ctx)
}
