package handlers

import (
	stdErrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/charlesng35/campushub/internal/auth"
	"github.com/charlesng35/campushub/internal/auth/providers"
	"github.com/charlesng35/campushub/internal/middleware"
	"github.com/charlesng35/campushub/internal/models"
	"github.com/charlesng35/campushub/internal/realtime"
	"github.com/charlesng35/campushub/internal/services"
	"github.com/charlesng35/campushub/pkg/errors"
	"github.com/charlesng35/campushub/pkg/logger"
	"github.com/charlesng35/campushub/pkg/metrics"
	"github.com/charlesng35/campushub/pkg/response"
)

// Session events published on the session stream.
const (
	EventSessionCreated = "session.created"
	EventSessionRevoked = "session.revoked"
)

// AuthHandler manages sign-up, sign-in, token refresh, sign-out and the current account.
type AuthHandler struct {
	provider      *providers.LocalProvider
	sessions      *iauth.SessionService
	accounts      *services.AccountService
	profiles      *services.ProfileService
	notifications *services.NotificationService
	hub           *realtime.Hub
	log           *zap.Logger
}

// NewAuthHandler constructs an AuthHandler. notifications and hub may be nil.
func NewAuthHandler(provider *providers.LocalProvider, sessions *iauth.SessionService, accounts *services.AccountService, profiles *services.ProfileService, notifications *services.NotificationService, hub *realtime.Hub) *AuthHandler {
	return &AuthHandler{
		provider:      provider,
		sessions:      sessions,
		accounts:      accounts,
		profiles:      profiles,
		notifications: notifications,
		hub:           hub,
		log:           logger.WithModule("auth"),
	}
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         *models.User `json:"user,omitempty"`
}

// POST /api/auth/signup
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req services.SignUpInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.accounts.SignUp(requestContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.startSession(c, user, http.StatusCreated)
}

// POST /api/auth/signin
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.provider.Authenticate(requestContext(c), providers.AuthenticateInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		switch {
		case stdErrors.Is(err, providers.ErrAccountLocked):
			response.Error(c, errors.ErrAccountLocked)
		case stdErrors.Is(err, providers.ErrInvalidCredentials), stdErrors.Is(err, providers.ErrAccountDisabled):
			response.Error(c, errors.ErrInvalidCredentials)
		default:
			h.log.Error("authenticate failed", zap.Error(err))
			response.Error(c, errors.ErrInternalServer)
		}
		return
	}

	h.startSession(c, user, http.StatusOK)
}

func (h *AuthHandler) startSession(c *gin.Context, user *models.User, status int) {
	pair, _, err := h.sessions.CreateSession(requestContext(c), user, iauth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		h.log.Error("create session failed", zap.String("user_id", user.ID), zap.Error(err))
		response.Error(c, errors.ErrInternalServer)
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	h.publish(user.ID, EventSessionCreated)

	response.Success(c, status, sessionResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
		User:         user,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		response.Error(c, errors.NewBadRequest("refresh token is required"))
		return
	}

	pair, _, err := h.sessions.RefreshSession(requestContext(c), req.RefreshToken)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, sessionResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	})
}

// POST /api/auth/signout
func (h *AuthHandler) SignOut(c *gin.Context) {
	sid := c.GetString(middleware.CtxSessionIDKey)
	if sid == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.sessions.RevokeSession(requestContext(c), sid); err != nil {
		if stdErrors.Is(err, iauth.ErrSessionNotFound) {
			response.Error(c, errors.ErrUnauthorized)
			return
		}
		response.Error(c, errors.ErrInternalServer)
		return
	}

	if userID, ok := currentUserID(c); ok {
		if h.notifications != nil {
			h.notifications.Forget(userID)
		}
		h.publish(userID, EventSessionRevoked)
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	profile, err := h.profiles.Get(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// POST /api/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req changePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.accounts.ChangePassword(requestContext(c), userID, req.CurrentPassword, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

func (h *AuthHandler) publish(userID, event string) {
	if h.hub == nil || userID == "" {
		return
	}
	h.hub.BroadcastToUser(realtime.StreamSession, userID, realtime.Message{
		Event: event,
		Data:  gin.H{"user_id": userID},
	})
}
