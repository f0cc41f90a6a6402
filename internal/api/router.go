package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/app"
	iauth "github.com/charlesng35/campushub/internal/auth"
	"github.com/charlesng35/campushub/internal/cache"
	"github.com/charlesng35/campushub/internal/handlers"
	"github.com/charlesng35/campushub/internal/middleware"
	"github.com/charlesng35/campushub/internal/monitoring"
	"github.com/charlesng35/campushub/internal/realtime"
	"github.com/charlesng35/campushub/internal/storage"
)

const (
	defaultAuthRateLimit  = 20
	defaultAuthRateWindow = time.Minute
)

// Dependencies are the collaborators NewRouter wires into the HTTP surface.
type Dependencies struct {
	DB       *gorm.DB
	Config   *app.Config
	JWT      *iauth.JWTService
	Sessions *iauth.SessionService

	// Hub defaults to a fresh realtime hub.
	Hub *realtime.Hub
	// Cache backs feed caching and rate limits. Defaults to the database cache.
	Cache cache.Store
	// RateStore overrides the rate limit counter store derived from Cache.
	RateStore middleware.RateStore
	Storage   storage.Store
	// Files, when set, is served under /files for the filesystem storage backend.
	Files      http.FileSystem
	Monitoring *monitoring.Module
	// Services replaces the services built from the other dependencies.
	Services *Services
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	cfg := deps.Config
	if deps.Hub == nil {
		deps.Hub = realtime.NewHub()
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewDatabaseStore(deps.DB)
	}
	if deps.RateStore == nil {
		deps.RateStore = middleware.NewCacheRateStore(deps.Cache)
	}

	svc := deps.Services
	if svc == nil {
		built, err := NewServices(deps.DB, cfg, deps.Hub, deps.Cache, deps.Storage)
		if err != nil {
			return nil, err
		}
		svc = built
	}
	deps.Hub.SetAuthorizer(svc.Classes.AuthorizeStream)

	metricsPath := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics(metricsPath, "/health", "/ws"))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORSOrigins...))

	registerHealthRoutes(r, cfg, deps.Monitoring)

	if cfg.Monitoring.Prometheus.Enabled && deps.Monitoring != nil {
		r.GET(metricsPath, gin.WrapH(deps.Monitoring.Handler()))
	}

	if deps.Files != nil {
		r.StaticFS("/files", deps.Files)
	}

	realtimeHandler := handlers.NewRealtimeHandler(deps.Hub, deps.JWT)
	r.GET("/ws", realtimeHandler.Stream)
	r.GET("/ws/:stream", realtimeHandler.Stream)

	limit, window := cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window
	if limit <= 0 {
		limit = defaultAuthRateLimit
	}
	if window <= 0 {
		window = defaultAuthRateWindow
	}

	authHandler := handlers.NewAuthHandler(svc.Provider, deps.Sessions, svc.Accounts, svc.Profiles, svc.Notifications, deps.Hub)

	// Public auth routes
	public := r.Group("/api/auth")
	public.Use(middleware.RateLimitWithStore(deps.RateStore, limit, window))
	{
		public.POST("/signup", authHandler.SignUp)
		public.POST("/signin", authHandler.SignIn)
		public.POST("/refresh", authHandler.Refresh)
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWT))

	registerAuthRoutes(api, authHandler)
	registerDirectoryRoutes(api, handlers.NewDirectoryHandler(svc.Directory))
	registerProfileRoutes(api, handlers.NewProfileHandler(svc.Profiles))
	registerFeedRoutes(api, handlers.NewFeedHandler(deps.DB, svc.Feed))
	registerNotificationRoutes(api, handlers.NewNotificationHandler(deps.DB, svc.Notifications))
	assignmentHandler := handlers.NewAssignmentHandler(deps.DB, svc.Assignments)
	registerClassRoutes(api, handlers.NewClassHandler(deps.DB, svc.Classes), assignmentHandler)
	registerAnnouncementRoutes(api, handlers.NewAnnouncementHandler(deps.DB, svc.Announcements))
	registerAssignmentRoutes(api, assignmentHandler)
	registerPostRoutes(api, handlers.NewPostHandler(deps.DB, svc.Posts))
	registerChatRoutes(api, handlers.NewChatHandler(deps.DB, svc.Chat))
	registerDocumentRoutes(api, handlers.NewDocumentHandler(deps.DB, svc.Documents))
	registerUploadRoutes(api, handlers.NewUploadHandler(svc.Uploads))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
