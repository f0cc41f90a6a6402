package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/models"
	"github.com/charlesng35/campushub/internal/realtime"
	"github.com/charlesng35/campushub/pkg/logger"
	"github.com/charlesng35/campushub/pkg/metrics"
)

// NotificationType distinguishes the record a notification was derived from.
type NotificationType string

const (
	NotificationAnnouncement NotificationType = "announcement"
	NotificationAssignment   NotificationType = "assignment"
)

// NotificationPriority ranks notifications for display.
type NotificationPriority string

const (
	PriorityHigh   NotificationPriority = "high"
	PriorityMedium NotificationPriority = "medium"
)

// EventInboxUpdated is pushed on the notifications stream whenever an inbox changes.
const EventInboxUpdated = "inbox.updated"

const (
	defaultUrgentWindow      = 48 * time.Hour
	defaultDueWindow         = 7 * 24 * time.Hour
	defaultAnnouncementLimit = 20
	defaultAssignmentLimit   = 10
	defaultSnapshotTTL       = time.Minute
	defaultInboxIdle         = time.Hour
)

// NotificationItem is a notification derived from an urgent announcement or a due assignment.
type NotificationItem struct {
	ID        string               `json:"id"`
	Type      NotificationType     `json:"type"`
	Title     string               `json:"title"`
	Content   string               `json:"content"`
	ClassName string               `json:"class_name,omitempty"`
	ClassID   string               `json:"class_id,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	IsRead    bool                 `json:"is_read"`
	Priority  NotificationPriority `json:"priority"`
	ActionURL string               `json:"action_url"`
	// ExpiresAt is when the item leaves the inbox: the end of the urgent window for
	// announcements, the due time for assignments.
	ExpiresAt time.Time `json:"expires_at"`
}

func (n NotificationItem) expired(now time.Time) bool {
	return !n.ExpiresAt.IsZero() && !now.Before(n.ExpiresAt)
}

// NotificationConfig tunes the notification windows and query limits.
type NotificationConfig struct {
	UrgentWindow      time.Duration
	DueWindow         time.Duration
	AnnouncementLimit int
	AssignmentLimit   int
	// SnapshotTTL bounds how long a loaded inbox is served before it is fetched again.
	SnapshotTTL time.Duration
	// InboxIdle is how long an untouched inbox is kept in memory.
	InboxIdle time.Duration
	// ReadState persists read receipts. When nil, read flags last until the next refresh.
	ReadState ReadStateStore
	Clock     Clock
}

// Inbox is the notification snapshot of a single user.
type Inbox struct {
	mu        sync.Mutex
	items     []NotificationItem
	loaded    bool
	fetchedAt time.Time

	// lastSeen is guarded by NotificationService.mu.
	lastSeen time.Time
}

func (i *Inbox) snapshot() []NotificationItem {
	out := make([]NotificationItem, len(i.items))
	copy(out, i.items)
	return out
}

func (i *Inbox) prune(now time.Time) {
	kept := i.items[:0]
	for _, item := range i.items {
		if item.expired(now) {
			continue
		}
		if item.Type == NotificationAssignment {
			item.Content = dueContent(item.ExpiresAt, now)
		}
		kept = append(kept, item)
	}
	i.items = kept
}

func (i *Inbox) unread() int {
	count := 0
	for _, item := range i.items {
		if !item.IsRead {
			count++
		}
	}
	return count
}

// NotificationService aggregates urgent announcements and due assignments into per user inboxes.
type NotificationService struct {
	db  *gorm.DB
	hub *realtime.Hub
	cfg NotificationConfig
	log *zap.Logger

	mu        sync.Mutex
	inboxes   map[string]*Inbox
	lastSweep time.Time
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB, hub *realtime.Hub, cfg NotificationConfig) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	if cfg.UrgentWindow <= 0 {
		cfg.UrgentWindow = defaultUrgentWindow
	}
	if cfg.DueWindow <= 0 {
		cfg.DueWindow = defaultDueWindow
	}
	if cfg.AnnouncementLimit <= 0 {
		cfg.AnnouncementLimit = defaultAnnouncementLimit
	}
	if cfg.AssignmentLimit <= 0 {
		cfg.AssignmentLimit = defaultAssignmentLimit
	}
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = defaultSnapshotTTL
	}
	if cfg.InboxIdle <= 0 {
		cfg.InboxIdle = defaultInboxIdle
	}
	cfg.Clock = ensureClock(cfg.Clock)

	return &NotificationService{
		db:        db,
		hub:       hub,
		cfg:       cfg,
		log:       logger.WithModule("notifications"),
		inboxes:   make(map[string]*Inbox),
		lastSweep: cfg.Clock(),
	}, nil
}

// Fetch queries the current notifications for the viewer without touching inbox state.
func (s *NotificationService) Fetch(ctx context.Context, viewer Viewer) ([]NotificationItem, error) {
	ctx = ensureContext(ctx)
	now := s.cfg.Clock()

	var announcements []models.Announcement
	if err := s.db.WithContext(ctx).
		Preload("Class").
		Where("is_urgent = ? AND is_deleted = ?", true, false).
		Where("created_at > ?", now.Add(-s.cfg.UrgentWindow)).
		Where(s.db.Session(&gorm.Session{NewDB: true}).
			Where("class_id IS NULL").
			Or("department_id = ?", viewer.DepartmentID)).
		Order("created_at DESC").
		Limit(s.cfg.AnnouncementLimit).
		Find(&announcements).Error; err != nil {
		return nil, fmt.Errorf("notification service: fetch announcements: %w", err)
	}

	classIDs, err := memberClassIDs(ctx, s.db, viewer)
	if err != nil {
		return nil, fmt.Errorf("notification service: resolve classes: %w", err)
	}

	var assignments []models.Assignment
	if len(classIDs) > 0 {
		if err := s.db.WithContext(ctx).
			Preload("Class").
			Where("is_published = ?", true).
			Where("class_id IN ?", classIDs).
			Where("due_at >= ? AND due_at <= ?", now, now.Add(s.cfg.DueWindow)).
			Order("due_at ASC").
			Limit(s.cfg.AssignmentLimit).
			Find(&assignments).Error; err != nil {
			return nil, fmt.Errorf("notification service: fetch assignments: %w", err)
		}
	}

	items := make([]NotificationItem, 0, len(announcements)+len(assignments))
	for _, announcement := range announcements {
		items = append(items, announcementNotification(announcement, s.cfg.UrgentWindow))
	}
	for _, assignment := range assignments {
		items = append(items, assignmentNotification(assignment, now))
	}

	// Newest first across both sources; the due date order of the assignment query is not kept.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	if s.cfg.ReadState != nil && len(items) > 0 {
		ids := make([]string, len(items))
		for i, item := range items {
			ids[i] = item.ID
		}
		read, err := s.cfg.ReadState.ReadIDs(ctx, viewer.UserID, ids)
		if err != nil {
			return nil, fmt.Errorf("notification service: load read state: %w", err)
		}
		for i := range items {
			_, items[i].IsRead = read[items[i].ID]
		}
	}

	return items, nil
}

// List returns the viewer's inbox. The snapshot is fetched on first use and again once it is
// older than SnapshotTTL; items whose window has closed are dropped on every call.
func (s *NotificationService) List(ctx context.Context, viewer Viewer) []NotificationItem {
	inbox := s.inbox(viewer.UserID)

	inbox.mu.Lock()
	defer inbox.mu.Unlock()

	s.currentLocked(ctx, viewer, inbox)
	return inbox.snapshot()
}

// Refresh re-runs the fetch and replaces the viewer's inbox.
func (s *NotificationService) Refresh(ctx context.Context, viewer Viewer) []NotificationItem {
	inbox := s.inbox(viewer.UserID)

	inbox.mu.Lock()
	s.reloadLocked(ctx, viewer, inbox, false)
	items, unread := inbox.snapshot(), inbox.unread()
	inbox.mu.Unlock()

	s.publish(viewer.UserID, unread)
	return items
}

// UnreadCount reports how many inbox items are unread.
func (s *NotificationService) UnreadCount(ctx context.Context, viewer Viewer) int {
	inbox := s.inbox(viewer.UserID)

	inbox.mu.Lock()
	defer inbox.mu.Unlock()

	s.currentLocked(ctx, viewer, inbox)
	return inbox.unread()
}

// MarkAsRead flags one item as read. Unknown ids are ignored.
func (s *NotificationService) MarkAsRead(ctx context.Context, viewer Viewer, id string) error {
	return s.markRead(ctx, viewer, func(item NotificationItem) bool { return item.ID == id })
}

// MarkAllAsRead flags every inbox item as read.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, viewer Viewer) error {
	return s.markRead(ctx, viewer, func(NotificationItem) bool { return true })
}

func (s *NotificationService) markRead(ctx context.Context, viewer Viewer, match func(NotificationItem) bool) error {
	ctx = ensureContext(ctx)
	inbox := s.inbox(viewer.UserID)

	inbox.mu.Lock()
	s.currentLocked(ctx, viewer, inbox)

	var changed []int
	for i := range inbox.items {
		if !inbox.items[i].IsRead && match(inbox.items[i]) {
			changed = append(changed, i)
		}
	}
	if len(changed) == 0 {
		inbox.mu.Unlock()
		return nil
	}

	// Receipts are stored before the flags flip so a failed write leaves the inbox unread.
	if s.cfg.ReadState != nil {
		ids := make([]string, len(changed))
		for n, i := range changed {
			ids[n] = inbox.items[i].ID
		}
		if err := s.cfg.ReadState.MarkRead(ctx, viewer.UserID, ids, s.cfg.Clock()); err != nil {
			inbox.mu.Unlock()
			return fmt.Errorf("notification service: mark read: %w", err)
		}
	}
	for _, i := range changed {
		inbox.items[i].IsRead = true
	}
	unread := inbox.unread()
	inbox.mu.Unlock()

	s.publish(viewer.UserID, unread)
	return nil
}

// Forget drops the cached inbox of a user. Sign out calls it.
func (s *NotificationService) Forget(userID string) {
	s.mu.Lock()
	delete(s.inboxes, userID)
	s.mu.Unlock()
}

func (s *NotificationService) inbox(userID string) *Inbox {
	now := s.cfg.Clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= s.cfg.InboxIdle {
		s.evictIdleLocked(now.Add(-s.cfg.InboxIdle))
		s.lastSweep = now
	}

	inbox, ok := s.inboxes[userID]
	if !ok {
		inbox = &Inbox{}
		s.inboxes[userID] = inbox
	}
	inbox.lastSeen = now
	return inbox
}

func (s *NotificationService) evictIdleLocked(cutoff time.Time) {
	for userID, inbox := range s.inboxes {
		if inbox.lastSeen.Before(cutoff) {
			delete(s.inboxes, userID)
		}
	}
}

// currentLocked brings the inbox up to date with the clock. A missing or stale snapshot is
// fetched again with read flags carried over, then closed windows are pruned.
func (s *NotificationService) currentLocked(ctx context.Context, viewer Viewer, inbox *Inbox) {
	now := s.cfg.Clock()
	switch {
	case !inbox.loaded:
		s.reloadLocked(ctx, viewer, inbox, false)
	case now.Sub(inbox.fetchedAt) >= s.cfg.SnapshotTTL:
		s.reloadLocked(ctx, viewer, inbox, true)
	}
	inbox.prune(now)
}

// reloadLocked replaces the snapshot with a fresh fetch. With keepRead, items read in the old
// snapshot stay read, and a failed fetch keeps the old snapshot instead of emptying it.
func (s *NotificationService) reloadLocked(ctx context.Context, viewer Viewer, inbox *Inbox, keepRead bool) {
	items, err := s.Fetch(ctx, viewer)
	if err != nil {
		metrics.NotificationFetches.WithLabelValues("degraded").Inc()
		s.log.Warn("notification fetch failed", zap.String("user_id", viewer.UserID), zap.Error(err))
		if keepRead && inbox.loaded {
			inbox.fetchedAt = s.cfg.Clock()
			return
		}
		items = []NotificationItem{}
	} else {
		metrics.NotificationFetches.WithLabelValues("ok").Inc()
	}

	if keepRead {
		read := make(map[string]struct{})
		for _, item := range inbox.items {
			if item.IsRead {
				read[item.ID] = struct{}{}
			}
		}
		for i := range items {
			if _, ok := read[items[i].ID]; ok {
				items[i].IsRead = true
			}
		}
	}

	inbox.items = items
	inbox.loaded = true
	inbox.fetchedAt = s.cfg.Clock()
}

func (s *NotificationService) publish(userID string, unread int) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToUser(realtime.StreamNotifications, userID, realtime.Message{
		Event: EventInboxUpdated,
		Data:  map[string]any{"unread_count": unread},
	})
}

func announcementNotification(a models.Announcement, urgentWindow time.Duration) NotificationItem {
	item := NotificationItem{
		ID:        "announcement-" + a.ID,
		Type:      NotificationAnnouncement,
		Title:     a.Title,
		Content:   a.Body,
		CreatedAt: a.CreatedAt,
		Priority:  PriorityHigh,
		ActionURL: "/",
		ExpiresAt: a.CreatedAt.Add(urgentWindow),
	}
	if a.ClassID != nil && *a.ClassID != "" {
		item.ClassID = *a.ClassID
		item.ActionURL = "/classes/" + *a.ClassID
	}
	if a.Class != nil {
		item.ClassName = a.Class.Name
	}
	return item
}

func assignmentNotification(a models.Assignment, now time.Time) NotificationItem {
	item := NotificationItem{
		ID:        "assignment-" + a.ID,
		Type:      NotificationAssignment,
		Title:     "Assignment Due: " + a.Title,
		Content:   dueContent(a.DueAt, now),
		ClassID:   a.ClassID,
		CreatedAt: a.CreatedAt,
		Priority:  PriorityMedium,
		ActionURL: "/classes/" + a.ClassID,
		ExpiresAt: a.DueAt,
	}
	if a.Class != nil {
		item.ClassName = a.Class.Name
	}
	return item
}

func dueContent(dueAt, now time.Time) string {
	days := int(math.Ceil(dueAt.Sub(now).Hours() / 24))
	return fmt.Sprintf("Due in %d days", days)
}
