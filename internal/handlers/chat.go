package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/models"
	"github.com/charlesng35/campushub/internal/services"
	"github.com/charlesng35/campushub/pkg/errors"
	"github.com/charlesng35/campushub/pkg/response"
)

// ChatHandler serves chat rooms and messages.
type ChatHandler struct {
	db  *gorm.DB
	svc *services.ChatService
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(db *gorm.DB, svc *services.ChatService) *ChatHandler {
	return &ChatHandler{db: db, svc: svc}
}

// GET /api/chat/rooms
func (h *ChatHandler) ListRooms(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	rooms, err := h.svc.ListRooms(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, rooms)
}

// POST /api/chat/rooms
func (h *ChatHandler) CreateRoom(c *gin.Context) {
	viewer, ok := viewerFrom(c, h.db)
	if !ok {
		return
	}

	var req services.CreateRoomInput
	if !bindAndValidate(c, &req) {
		return
	}

	room, err := h.svc.CreateRoom(requestContext(c), viewer, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, room)
}

// GET /api/chat/rooms/:id/messages?limit=
func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	messages, err := h.svc.ListMessages(requestContext(c), userID, c.Param("id"), parseIntQuery(c, "limit", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, messages)
}

type sendMessageRequest struct {
	Content string             `json:"content"`
	Type    models.MessageType `json:"type"`
	FileURL string             `json:"file_url"`
}

// POST /api/chat/rooms/:id/messages
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req sendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	in := services.SendMessageInput{
		RoomID:  c.Param("id"),
		Content: req.Content,
		Type:    req.Type,
		FileURL: req.FileURL,
	}
	if !validStruct(c, &in) {
		return
	}

	message, err := h.svc.SendMessage(requestContext(c), userID, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, message)
}

// POST /api/chat/rooms/:id/read
func (h *ChatHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.svc.MarkRead(requestContext(c), userID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"read": true})
}

// DELETE /api/chat/messages/:id
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.svc.DeleteMessage(requestContext(c), userID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
