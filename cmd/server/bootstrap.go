package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/api"
	"github.com/charlesng35/campushub/internal/app"
	"github.com/charlesng35/campushub/internal/app/maintenance"
	iauth "github.com/charlesng35/campushub/internal/auth"
	"github.com/charlesng35/campushub/internal/cache"
	"github.com/charlesng35/campushub/internal/database"
	"github.com/charlesng35/campushub/internal/monitoring"
	"github.com/charlesng35/campushub/internal/monitoring/checks"
	"github.com/charlesng35/campushub/internal/realtime"
	"github.com/charlesng35/campushub/internal/storage"
	"github.com/charlesng35/campushub/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Redis      *cache.RedisStore
	Cache      cache.Store
	Storage    storage.Store
	Monitoring *monitoring.Module
	Hub        *realtime.Hub
	SessionSvc *iauth.SessionService
	Cleaner    *maintenance.Cleaner
	Router     *gin.Engine
}

// bootstrapRuntime initialises databases, caches, storage, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			if shutdownErr := stack.Shutdown(context.Background()); shutdownErr != nil {
				log.Warn("partial bootstrap cleanup", zap.Error(shutdownErr))
			}
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)
	stack.Cache = dbStore

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed cache", zap.Error(err))
		} else {
			stack.Cache = stack.Redis
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	stack.Storage, err = storage.New(ctx, cfg.Storage.StoreConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise storage: %w", err)
	}
	var files http.FileSystem
	if fsStore, ok := stack.Storage.(*storage.FSStore); ok {
		files = fsStore.HTTPFileSystem()
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	sessionCfg := cfg.Auth.SessionServiceConfig()
	if stack.Redis != nil {
		sessionCfg.Cache = iauth.NewRedisSessionCache(stack.Redis)
	} else {
		sessionCfg.Cache = iauth.NewDatabaseSessionCache(dbStore)
	}

	stack.SessionSvc, err = iauth.NewSessionService(stack.DB, jwtSvc, sessionCfg)
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	stack.Monitoring = newMonitoring(cfg, stack)

	stack.Cleaner = maintenance.NewCleaner(stack.DB, stack.SessionSvc, dbStore,
		maintenance.WithRecorder(stack.Monitoring.Jobs()),
		maintenance.WithSessionSchedule(cfg.Maintenance.SessionSchedule),
		maintenance.WithCacheSchedule(cfg.Maintenance.CacheSchedule),
		maintenance.WithReadSchedule(cfg.Maintenance.ReadSchedule),
		maintenance.WithReadRetention(cfg.Maintenance.ReadRetention),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Hub = realtime.NewHub()

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:         stack.DB,
		Config:     cfg,
		JWT:        jwtSvc,
		Sessions:   stack.SessionSvc,
		Hub:        stack.Hub,
		Cache:      stack.Cache,
		Storage:    stack.Storage,
		Files:      files,
		Monitoring: stack.Monitoring,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func newMonitoring(cfg *app.Config, stack *runtimeStack) *monitoring.Module {
	mon := monitoring.NewModule(monitoring.Options{})
	health := mon.Health()

	health.RegisterLiveness(monitoring.NewCheck("process", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	health.RegisterReadiness(checks.Database(stack.DB, 0))

	// A nil *RedisStore must not reach the probe as a non-nil interface.
	var redisPinger checks.RedisPinger
	if stack.Redis != nil {
		redisPinger = stack.Redis
	}
	health.RegisterReadiness(checks.Redis(redisPinger, cfg.Cache.Redis.Enabled, cfg.Cache.Redis.Timeout))
	health.RegisterReadiness(checks.Storage(stack.Storage, 0))
	health.RegisterReadiness(checks.Maintenance(mon.Jobs(), 0))

	return mon
}

// Shutdown stops background jobs and releases resources. A final maintenance pass runs before
// connections are closed.
func (s *runtimeStack) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}

	var errs error
	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			<-stopCtx.Done()
		}
		errs = multierr.Append(errs, s.Cleaner.RunOnce(ctx))
	}

	if s.Redis != nil {
		errs = multierr.Append(errs, s.Redis.Close())
	}

	if s.DB != nil {
		errs = multierr.Append(errs, closeDatabase(s.DB))
	}

	return errs
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseOpenConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		_ = closeDatabase(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func closeDatabase(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("obtain sql handle: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
