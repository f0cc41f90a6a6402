package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/campushub/pkg/logger"
)

const defaultFeedSourceLimit = 50

// FeedConfig tunes feed composition.
type FeedConfig struct {
	UrgentWindow time.Duration
	SourceLimit  int
	Clock        Clock
}

// FeedService loads the rows visible to a viewer and composes the home feed.
type FeedService struct {
	db    *gorm.DB
	cache *FeedCache
	cfg   FeedConfig
	log   *zap.Logger
}

// NewFeedService constructs a FeedService. cache may be nil.
func NewFeedService(db *gorm.DB, cache *FeedCache, cfg FeedConfig) (*FeedService, error) {
	if db == nil {
		return nil, errors.New("feed service: db is required")
	}
	if cfg.UrgentWindow <= 0 {
		cfg.UrgentWindow = defaultUrgentWindow
	}
	if cfg.SourceLimit <= 0 {
		cfg.SourceLimit = defaultFeedSourceLimit
	}
	cfg.Clock = ensureClock(cfg.Clock)
	return &FeedService{db: db, cache: cache, cfg: cfg, log: logger.WithModule("feed")}, nil
}

// Feed returns the ranked feed of the viewer filtered to tab. Failures degrade to an empty feed.
func (s *FeedService) Feed(ctx context.Context, viewer Viewer, tab FeedTab) []FeedItem {
	ctx = ensureContext(ctx)

	items, ok, err := s.cache.Load(ctx, viewer.UserID)
	if err != nil {
		s.log.Warn("feed cache load failed", zap.String("user_id", viewer.UserID), zap.Error(err))
	}
	if !ok {
		items, err = s.Compose(ctx, viewer)
		if err != nil {
			s.log.Warn("feed compose failed", zap.String("user_id", viewer.UserID), zap.Error(err))
			return []FeedItem{}
		}
		if err := s.cache.Save(ctx, viewer.UserID, items); err != nil {
			s.log.Warn("feed cache save failed", zap.String("user_id", viewer.UserID), zap.Error(err))
		}
	}

	if items == nil {
		items = []FeedItem{}
	}
	return FilterFeed(items, tab)
}

// Compose queries the visible rows and ranks them, bypassing the cache.
func (s *FeedService) Compose(ctx context.Context, viewer Viewer) ([]FeedItem, error) {
	ctx = ensureContext(ctx)

	classIDs, err := memberClassIDs(ctx, s.db, viewer)
	if err != nil {
		return nil, fmt.Errorf("feed service: resolve classes: %w", err)
	}

	var src FeedSources
	if err := s.db.WithContext(ctx).
		Preload("Author").Preload("Class").Preload("Department").
		Scopes(announcementScope(viewer, classIDs)).
		Order("announcements.created_at DESC").
		Limit(s.cfg.SourceLimit).
		Find(&src.Announcements).Error; err != nil {
		return nil, fmt.Errorf("feed service: load announcements: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Preload("Author").Preload("Class").
		Scopes(postScope(viewer, classIDs)).
		Order("posts.created_at DESC").
		Limit(s.cfg.SourceLimit).
		Find(&src.Posts).Error; err != nil {
		return nil, fmt.Errorf("feed service: load posts: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Preload("Teacher").Preload("Class").
		Scopes(assignmentScope(viewer, classIDs)).
		Order("assignments.created_at DESC").
		Limit(s.cfg.SourceLimit).
		Find(&src.Assignments).Error; err != nil {
		return nil, fmt.Errorf("feed service: load assignments: %w", err)
	}

	return ComposeFeed(src, s.cfg.Clock(), s.cfg.UrgentWindow), nil
}

// Invalidate drops cached feeds affected by a change. A class scoped change touches the class
// members and teacher; anything else bumps the global generation.
func (s *FeedService) Invalidate(ctx context.Context, classID string) error {
	ctx = ensureContext(ctx)
	if classID == "" {
		return s.cache.InvalidateAll(ctx)
	}

	members, err := classMemberIDs(ctx, s.db, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("feed service: resolve members: %w", err)
	}
	return s.cache.InvalidateUsers(ctx, members...)
}
