package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/campushub/internal/models"
)

// ReadStateStore persists notification read receipts across inbox refreshes.
type ReadStateStore interface {
	// ReadIDs returns the subset of ids the user has read.
	ReadIDs(ctx context.Context, userID string, ids []string) (map[string]struct{}, error)
	// MarkRead records read receipts for ids.
	MarkRead(ctx context.Context, userID string, ids []string, at time.Time) error
}

// DatabaseReadStateStore stores read receipts in the notification_reads table.
type DatabaseReadStateStore struct {
	db *gorm.DB
}

// NewDatabaseReadStateStore constructs a gorm backed read state store.
func NewDatabaseReadStateStore(db *gorm.DB) (*DatabaseReadStateStore, error) {
	if db == nil {
		return nil, errors.New("read state store: db is required")
	}
	return &DatabaseReadStateStore{db: db}, nil
}

// ReadIDs implements ReadStateStore.
func (s *DatabaseReadStateStore) ReadIDs(ctx context.Context, userID string, ids []string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	ids = normaliseIDs(ids)
	if len(ids) == 0 {
		return out, nil
	}

	var rows []string
	if err := s.db.WithContext(ensureContext(ctx)).
		Model(&models.NotificationRead{}).
		Where("user_id = ? AND notification_id IN ?", userID, ids).
		Pluck("notification_id", &rows).Error; err != nil {
		return nil, fmt.Errorf("read state store: load: %w", err)
	}
	for _, id := range rows {
		out[id] = struct{}{}
	}
	return out, nil
}

// MarkRead implements ReadStateStore. Existing receipts are left untouched.
func (s *DatabaseReadStateStore) MarkRead(ctx context.Context, userID string, ids []string, at time.Time) error {
	ids = normaliseIDs(ids)
	if len(ids) == 0 {
		return nil
	}

	rows := make([]models.NotificationRead, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, models.NotificationRead{UserID: userID, NotificationID: id, ReadAt: at})
	}

	if err := s.db.WithContext(ensureContext(ctx)).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "notification_id"}},
			DoNothing: true,
		}).
		Create(&rows).Error; err != nil {
		return fmt.Errorf("read state store: mark read: %w", err)
	}
	return nil
}
