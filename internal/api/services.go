package api

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/app"
	"github.com/charlesng35/campushub/internal/auth/providers"
	"github.com/charlesng35/campushub/internal/cache"
	"github.com/charlesng35/campushub/internal/realtime"
	"github.com/charlesng35/campushub/internal/services"
	"github.com/charlesng35/campushub/internal/storage"
)

// Services groups the domain services behind the HTTP handlers.
type Services struct {
	Provider      *providers.LocalProvider
	Accounts      *services.AccountService
	Profiles      *services.ProfileService
	Directory     *services.DirectoryService
	Classes       *services.ClassService
	Announcements *services.AnnouncementService
	Assignments   *services.AssignmentService
	Posts         *services.PostService
	Chat          *services.ChatService
	Uploads       *services.UploadService
	Documents     *services.DocumentService
	Feed          *services.FeedService
	Notifications *services.NotificationService
}

// NewServices wires every domain service against db, the realtime hub, the shared cache and
// object storage.
func NewServices(db *gorm.DB, cfg *app.Config, hub *realtime.Hub, store cache.Store, objects storage.Store) (*Services, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if objects == nil {
		return nil, fmt.Errorf("object storage must be provided")
	}

	var (
		svc Services
		err error
	)

	if svc.Provider, err = providers.NewLocalProvider(db, cfg.Auth.LocalProviderConfig()); err != nil {
		return nil, err
	}
	if svc.Accounts, err = services.NewAccountService(db, svc.Provider); err != nil {
		return nil, err
	}
	if svc.Profiles, err = services.NewProfileService(db); err != nil {
		return nil, err
	}
	if svc.Directory, err = services.NewDirectoryService(db); err != nil {
		return nil, err
	}

	feedCache := services.NewFeedCache(store, cfg.Feed.CacheTTL)
	if svc.Feed, err = services.NewFeedService(db, feedCache, services.FeedConfig{
		UrgentWindow: cfg.Notifications.UrgentWindow,
	}); err != nil {
		return nil, err
	}
	events := services.NewChangePublisher(hub, svc.Feed)

	if svc.Classes, err = services.NewClassService(db, hub, events); err != nil {
		return nil, err
	}
	if svc.Announcements, err = services.NewAnnouncementService(db, events); err != nil {
		return nil, err
	}
	if svc.Assignments, err = services.NewAssignmentService(db, events); err != nil {
		return nil, err
	}
	if svc.Posts, err = services.NewPostService(db, events); err != nil {
		return nil, err
	}
	if svc.Chat, err = services.NewChatService(db, hub, events); err != nil {
		return nil, err
	}
	if svc.Uploads, err = services.NewUploadService(objects, cfg.Storage.UploadPolicy()); err != nil {
		return nil, err
	}
	if svc.Documents, err = services.NewDocumentService(db, svc.Uploads, events); err != nil {
		return nil, err
	}

	notifyCfg := services.NotificationConfig{
		UrgentWindow:      cfg.Notifications.UrgentWindow,
		DueWindow:         cfg.Notifications.DueWindow,
		AnnouncementLimit: cfg.Notifications.AnnouncementLimit,
		AssignmentLimit:   cfg.Notifications.AssignmentLimit,
		SnapshotTTL:       cfg.Notifications.SnapshotTTL,
		InboxIdle:         cfg.Notifications.InboxIdle,
	}
	if cfg.Notifications.PersistReadState {
		readState, err := services.NewDatabaseReadStateStore(db)
		if err != nil {
			return nil, err
		}
		notifyCfg.ReadState = readState
	}
	if svc.Notifications, err = services.NewNotificationService(db, hub, notifyCfg); err != nil {
		return nil, err
	}

	return &svc, nil
}
