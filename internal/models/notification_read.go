package models

import "time"

// NotificationRead is a persisted read receipt for a synthesized notification id.
type NotificationRead struct {
	BaseModel

	UserID         string    `gorm:"type:uuid;not null;uniqueIndex:idx_notification_read_pair" json:"user_id"`
	NotificationID string    `gorm:"not null;size:128;uniqueIndex:idx_notification_read_pair" json:"notification_id"`
	ReadAt         time.Time `gorm:"index" json:"read_at"`
}
