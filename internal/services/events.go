package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/charlesng35/campushub/internal/realtime"
	"github.com/charlesng35/campushub/pkg/logger"
)

// ChangePublisher fans write events out to realtime subscribers and invalidates cached feeds.
// A nil publisher is valid and does nothing.
type ChangePublisher struct {
	hub  *realtime.Hub
	feed *FeedService
	log  *zap.Logger
}

// NewChangePublisher constructs a publisher. Either dependency may be nil.
func NewChangePublisher(hub *realtime.Hub, feed *FeedService) *ChangePublisher {
	return &ChangePublisher{hub: hub, feed: feed, log: logger.WithModule("events")}
}

// ClassChanged announces a change on one of the class streams and drops the members' feeds.
func (p *ChangePublisher) ClassChanged(ctx context.Context, classID string, kind realtime.ClassKind, event string, data any) {
	if p == nil || classID == "" {
		return
	}
	if p.hub != nil {
		p.hub.BroadcastStream(realtime.ClassStream(classID, kind), realtime.Message{
			Event: event,
			Data:  data,
			Meta:  map[string]any{"class_id": classID},
		})
	}
	p.invalidate(ctx, classID)
}

// GlobalChanged drops every cached feed, e.g. after a public or department announcement.
func (p *ChangePublisher) GlobalChanged(ctx context.Context) {
	if p == nil {
		return
	}
	p.invalidate(ctx, "")
}

func (p *ChangePublisher) invalidate(ctx context.Context, classID string) {
	if p.feed == nil {
		return
	}
	if err := p.feed.Invalidate(ctx, classID); err != nil {
		p.log.Warn("feed invalidation failed", zap.String("class_id", classID), zap.Error(err))
	}
}
