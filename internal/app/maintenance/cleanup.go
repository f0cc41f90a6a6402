package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	iauth "github.com/charlesng35/campushub/internal/auth"
	"github.com/charlesng35/campushub/internal/models"
	"github.com/charlesng35/campushub/pkg/logger"
)

const (
	defaultReadRetention = 30 * 24 * time.Hour
	defaultSessionSpec   = "@hourly"
	defaultCacheSpec     = "@every 30m"
	defaultReadSpec      = "@daily"
)

// CachePurger removes expired cache rows. Implemented by cache.DatabaseStore.
type CachePurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// RunRecorder receives the outcome of every job run. Implemented by monitoring.JobTracker.
type RunRecorder interface {
	RecordRun(job string, err error, duration time.Duration)
}

// Job names reported to the RunRecorder.
const (
	JobSessions     = "session_cleanup"
	JobCache        = "cache_cleanup"
	JobReadReceipts = "read_receipt_cleanup"
)

// Cleaner coordinates background maintenance tasks such as purging expired sessions,
// dropping stale cache rows, and pruning old notification read receipts.
type Cleaner struct {
	db        *gorm.DB
	sessions  *iauth.SessionService
	cache     CachePurger
	recorder  RunRecorder
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention time.Duration

	sessionSchedule string
	cacheSchedule   string
	readSchedule    string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithRecorder reports job outcomes to r.
func WithRecorder(r RunRecorder) Option {
	return func(cleaner *Cleaner) {
		cleaner.recorder = r
	}
}

// WithReadRetention adjusts how long notification read receipts are kept.
func WithReadRetention(retention time.Duration) Option {
	return func(cleaner *Cleaner) {
		if retention > 0 {
			cleaner.retention = retention
		}
	}
}

// WithSessionSchedule overrides the cron specification for session cleanup.
func WithSessionSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sessionSchedule = spec
		}
	}
}

// WithCacheSchedule overrides the cron specification for cache row cleanup.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// WithReadSchedule overrides the cron specification for read receipt cleanup.
func WithReadSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.readSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency results in
// the corresponding cleanup job being skipped.
func NewCleaner(db *gorm.DB, sessions *iauth.SessionService, purger CachePurger, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:              db,
		sessions:        sessions,
		cache:           purger,
		now:             time.Now,
		retention:       defaultReadRetention,
		sessionSchedule: defaultSessionSpec,
		cacheSchedule:   defaultCacheSpec,
		readSchedule:    defaultReadSpec,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

func (c *Cleaner) enabled() bool {
	return c.sessions != nil || c.cache != nil || c.db != nil
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled() {
		return nil
	}

	if c.sessions != nil {
		if _, err := c.cron.AddFunc(c.sessionSchedule, func() {
			c.run(context.Background(), JobSessions, c.cleanupSessions)
		}); err != nil {
			return err
		}
	}

	if c.cache != nil {
		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			c.run(context.Background(), JobCache, c.purgeCache)
		}); err != nil {
			return err
		}
	}

	if c.db != nil {
		if _, err := c.cron.AddFunc(c.readSchedule, func() {
			c.run(context.Background(), JobReadReceipts, c.pruneReadReceipts)
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.sessions != nil {
		errs = multierr.Append(errs, c.run(ctx, JobSessions, c.cleanupSessions))
	}
	if c.cache != nil {
		errs = multierr.Append(errs, c.run(ctx, JobCache, c.purgeCache))
	}
	if c.db != nil {
		errs = multierr.Append(errs, c.run(ctx, JobReadReceipts, c.pruneReadReceipts))
	}

	return errs
}

func (c *Cleaner) run(ctx context.Context, job string, fn func(context.Context) (int64, error)) error {
	start := time.Now()
	removed, err := fn(ctx)
	if c.recorder != nil {
		c.recorder.RecordRun(job, err, time.Since(start))
	}
	if err != nil {
		c.log.Warn("maintenance job failed", zap.String("job", job), zap.Error(err))
		return err
	}
	if removed > 0 {
		c.log.Debug("maintenance job removed rows", zap.String("job", job), zap.Int64("count", removed))
	}
	return nil
}

func (c *Cleaner) cleanupSessions(ctx context.Context) (int64, error) {
	return c.sessions.CleanupExpired(ctx)
}

func (c *Cleaner) purgeCache(ctx context.Context) (int64, error) {
	return c.cache.PurgeExpired(ctx, c.now())
}

func (c *Cleaner) pruneReadReceipts(ctx context.Context) (int64, error) {
	return CleanupReadReceipts(ctx, c.db, c.now().Add(-c.retention))
}

// CleanupReadReceipts removes notification read receipts recorded before cutoff.
func CleanupReadReceipts(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup read receipts: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).Where("read_at < ?", cutoff).Delete(&models.NotificationRead{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup read receipts: %w", result.Error)
	}
	return result.RowsAffected, nil
}
