package testutil

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/api"
	"github.com/charlesng35/campushub/internal/app"
	iauth "github.com/charlesng35/campushub/internal/auth"
	sharedtestutil "github.com/charlesng35/campushub/internal/database/testutil"
	"github.com/charlesng35/campushub/internal/middleware"
	"github.com/charlesng35/campushub/internal/models"
	"github.com/charlesng35/campushub/internal/monitoring"
	"github.com/charlesng35/campushub/internal/monitoring/checks"
	"github.com/charlesng35/campushub/internal/realtime"
	"github.com/charlesng35/campushub/internal/storage"
	"github.com/charlesng35/campushub/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T       *testing.T
	DB      *gorm.DB
	Router  *gin.Engine
	JWT     *iauth.JWTService
	Hub     *realtime.Hub
	Storage *storage.FSStore
}

// NewEnv provisions a fresh handler test environment with migrations and seed data applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	cfg := &app.Config{
		Server: app.ServerConfig{
			CORSOrigins: []string{"*"},
			RateLimit:   app.RateLimitConfig{Requests: 1000, Window: time.Minute},
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
			Session: app.SessionSettings{
				RefreshTTL:    24 * time.Hour,
				RefreshLength: 48,
			},
			Local: app.LocalAuthSettings{
				LockoutThreshold: 5,
				LockoutDuration:  15 * time.Minute,
			},
		},
		Notifications: app.NotificationsConfig{
			UrgentWindow:      48 * time.Hour,
			DueWindow:         7 * 24 * time.Hour,
			AnnouncementLimit: 20,
			AssignmentLimit:   10,
		},
		Storage: app.StorageConfig{
			Driver:        "fs",
			PublicBaseURL: "/files",
			MaxSize:       1 << 20,
			AllowedTypes:  []string{"image/*", "application/pdf", "text/plain"},
		},
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	sessionSvc, err := iauth.NewSessionService(db, jwtSvc, cfg.Auth.SessionServiceConfig())
	require.NoError(t, err)

	objects, err := storage.NewFSStore(afero.NewMemMapFs(), "uploads", cfg.Storage.PublicBaseURL)
	require.NoError(t, err)

	mon := monitoring.NewModule(monitoring.Options{})
	mon.Health().RegisterReadiness(checks.Database(db, time.Second))
	mon.Health().RegisterReadiness(checks.Storage(objects, time.Second))

	hub := realtime.NewHub()

	router, err := api.NewRouter(api.Dependencies{
		DB:         db,
		Config:     cfg,
		JWT:        jwtSvc,
		Sessions:   sessionSvc,
		Hub:        hub,
		RateStore:  middleware.NewMemoryRateStore(),
		Storage:    objects,
		Files:      objects.HTTPFileSystem(),
		Monitoring: mon,
	})
	require.NoError(t, err)

	return &Env{
		T:       t,
		DB:      db,
		Router:  router,
		JWT:     jwtSvc,
		Hub:     hub,
		Storage: objects,
	}
}

// CreateUser inserts an active user with the fixture password.
func (e *Env) CreateUser(role models.Role, fullName string) *models.User {
	e.T.Helper()
	return sharedtestutil.CreateUser(e.T, e.DB, role, fullName)
}

// CreateClass inserts a class taught by teacherID.
func (e *Env) CreateClass(teacherID, name string) *models.Class {
	e.T.Helper()
	return sharedtestutil.CreateClass(e.T, e.DB, teacherID, name)
}

// Enroll links the student to the class.
func (e *Env) Enroll(classID, studentID string) {
	e.T.Helper()
	sharedtestutil.Enroll(e.T, e.DB, classID, studentID)
}

// SessionResult bundles the JSON response from the sign-in and sign-up endpoints.
type SessionResult struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    time.Time   `json:"expires_at"`
	User         models.User `json:"user"`
}

// SignIn authenticates using the local provider and returns the issued token pair.
func (e *Env) SignIn(email, password string) SessionResult {
	e.T.Helper()

	payload := map[string]string{
		"email":    email,
		"password": password,
	}

	w := e.Request(http.MethodPost, "/api/auth/signin", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result SessionResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.AccessToken)
	require.NotEmpty(e.T, result.RefreshToken)
	require.Equal(e.T, email, result.User.Email)

	return result
}

// SignInAs creates a fixture user of the given role and returns an access token for it.
func (e *Env) SignInAs(role models.Role, fullName string) (*models.User, string) {
	e.T.Helper()

	user := e.CreateUser(role, fullName)
	session := e.SignIn(user.Email, sharedtestutil.DefaultPassword)
	return user, session.AccessToken
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	buf := bytes.NewBuffer(nil)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.serve(req, token)
}

// MultipartFile describes one file part of a multipart request.
type MultipartFile struct {
	Field    string
	Filename string
	Content  []byte
}

// Upload sends a multipart form with the supplied fields and files.
func (e *Env) Upload(path string, fields map[string]string, files []MultipartFile, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(e.T, writer.WriteField(key, value))
	}
	for _, file := range files {
		part, err := writer.CreateFormFile(file.Field, file.Filename)
		require.NoError(e.T, err)
		_, err = part.Write(file.Content)
		require.NoError(e.T, err)
	}
	require.NoError(e.T, writer.Close())

	req, err := http.NewRequest(http.MethodPost, path, &body)
	require.NoError(e.T, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return e.serve(req, token)
}

func (e *Env) serve(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
