package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/models"
	"github.com/charlesng35/campushub/internal/realtime"
	apperrors "github.com/charlesng35/campushub/pkg/errors"
)

// Chat events delivered on the chat stream.
const (
	EventChatMessage       = "chat.message"
	EventChatMessageDelete = "chat.message.deleted"
	EventChatRoomCreated   = "chat.room.created"
)

// CreateRoomInput describes a new chat room.
type CreateRoomInput struct {
	Name           string              `json:"name" validate:"max=120"`
	Type           models.ChatRoomType `json:"type" validate:"required,oneof=direct class group"`
	ClassID        string              `json:"class_id" validate:"required_if=Type class"`
	ParticipantIDs []string            `json:"participant_ids"`
}

// SendMessageInput carries a chat message.
type SendMessageInput struct {
	RoomID  string             `json:"room_id" validate:"required"`
	Content string             `json:"content" validate:"max=5000"`
	Type    models.MessageType `json:"type" validate:"omitempty,oneof=text file image"`
	FileURL string             `json:"file_url"`
}

// ChatRoomView is a room with the caller's unread count.
type ChatRoomView struct {
	models.ChatRoom
	UnreadCount int64 `json:"unread_count"`
}

// ChatService manages chat rooms and messages.
type ChatService struct {
	db     *gorm.DB
	hub    *realtime.Hub
	events *ChangePublisher
	clock  Clock
}

// NewChatService constructs a ChatService. hub and events may be nil.
func NewChatService(db *gorm.DB, hub *realtime.Hub, events *ChangePublisher) (*ChatService, error) {
	if db == nil {
		return nil, errors.New("chat service: db is required")
	}
	return &ChatService{db: db, hub: hub, events: events, clock: systemClock}, nil
}

// ListRooms returns the rooms the user participates in, most recently created first.
func (s *ChatService) ListRooms(ctx context.Context, userID string) ([]ChatRoomView, error) {
	ctx = ensureContext(ctx)

	var participants []models.ChatParticipant
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&participants).Error; err != nil {
		return nil, fmt.Errorf("chat service: list participation: %w", err)
	}
	if len(participants) == 0 {
		return []ChatRoomView{}, nil
	}

	roomIDs := make([]string, len(participants))
	for i, p := range participants {
		roomIDs[i] = p.RoomID
	}

	var rooms []models.ChatRoom
	if err := s.db.WithContext(ctx).
		Preload("Participants").Preload("Participants.User").
		Where("id IN ? AND is_archived = ?", roomIDs, false).
		Order("created_at DESC").
		Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("chat service: list rooms: %w", err)
	}

	out := make([]ChatRoomView, 0, len(rooms))
	for _, room := range rooms {
		view := ChatRoomView{ChatRoom: room}
		for _, p := range participants {
			if p.RoomID != room.ID {
				continue
			}
			query := s.db.WithContext(ctx).Model(&models.Message{}).
				Where("room_id = ? AND is_deleted = ? AND sender_id <> ?", room.ID, false, userID)
			if p.LastReadAt != nil {
				query = query.Where("created_at > ?", *p.LastReadAt)
			}
			if err := query.Count(&view.UnreadCount).Error; err != nil {
				return nil, fmt.Errorf("chat service: count unread: %w", err)
			}
		}
		out = append(out, view)
	}
	return out, nil
}

// CreateRoom creates a room with the creator as first participant. Class rooms include every
// class member; direct rooms need exactly one other participant.
func (s *ChatService) CreateRoom(ctx context.Context, viewer Viewer, in CreateRoomInput) (*models.ChatRoom, error) {
	ctx = ensureContext(ctx)

	members := normaliseIDs(append([]string{viewer.UserID}, in.ParticipantIDs...))
	room := &models.ChatRoom{
		Name:      strings.TrimSpace(in.Name),
		Type:      in.Type,
		CreatedBy: viewer.UserID,
	}

	switch in.Type {
	case models.ChatRoomClass:
		if err := s.requireClassOwner(ctx, viewer, in.ClassID); err != nil {
			return nil, err
		}
		classMembers, err := classMemberIDs(ctx, s.db, in.ClassID)
		if err != nil {
			return nil, fmt.Errorf("chat service: resolve class members: %w", err)
		}
		members = normaliseIDs(append(members, classMembers...))
		room.ClassID = optionalString(in.ClassID)
	case models.ChatRoomDirect:
		if len(members) != 2 {
			return nil, apperrors.NewBadRequest("Direct chats need exactly one other participant")
		}
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id IN ?", members).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("chat service: check participants: %w", err)
	}
	if int(count) != len(members) {
		return nil, apperrors.NewBadRequest("Unknown participant")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		participants := make([]models.ChatParticipant, 0, len(members))
		for _, id := range members {
			participants = append(participants, models.ChatParticipant{RoomID: room.ID, UserID: id})
		}
		if err := tx.Create(&participants).Error; err != nil {
			return err
		}
		room.Participants = participants
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("chat service: create room: %w", err)
	}

	s.broadcast(members, EventChatRoomCreated, room)
	if room.ClassID != nil {
		s.events.ClassChanged(ctx, *room.ClassID, realtime.KindMessages, EventChatRoomCreated, room)
	}
	return room, nil
}

// ListMessages returns up to limit messages of a room, oldest first.
func (s *ChatService) ListMessages(ctx context.Context, userID, roomID string, limit int) ([]models.Message, error) {
	ctx = ensureContext(ctx)
	if _, err := s.participant(ctx, roomID, userID); err != nil {
		return nil, err
	}

	var rows []models.Message
	if err := s.db.WithContext(ctx).
		Preload("Sender").
		Where("room_id = ? AND is_deleted = ?", roomID, false).
		Order("created_at DESC").
		Limit(clampLimit(limit, 50, 200)).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("chat service: list messages: %w", err)
	}

	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// SendMessage stores a message and pushes it to every participant.
func (s *ChatService) SendMessage(ctx context.Context, userID string, in SendMessageInput) (*models.Message, error) {
	ctx = ensureContext(ctx)

	content := strings.TrimSpace(in.Content)
	msgType := in.Type
	if msgType == "" {
		msgType = models.MessageText
	}
	if msgType == models.MessageText && content == "" {
		return nil, apperrors.NewBadRequest("message content is required")
	}
	if msgType != models.MessageText && strings.TrimSpace(in.FileURL) == "" {
		return nil, apperrors.NewBadRequest("file url is required")
	}

	if _, err := s.participant(ctx, in.RoomID, userID); err != nil {
		return nil, err
	}

	message := &models.Message{
		RoomID:   in.RoomID,
		SenderID: userID,
		Content:  content,
		Type:     msgType,
		FileURL:  strings.TrimSpace(in.FileURL),
	}
	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, fmt.Errorf("chat service: send message: %w", err)
	}

	now := s.clock()
	if err := s.db.WithContext(ctx).Model(&models.ChatParticipant{}).
		Where("room_id = ? AND user_id = ?", in.RoomID, userID).
		Update("last_read_at", now).Error; err != nil {
		return nil, fmt.Errorf("chat service: update read marker: %w", err)
	}

	s.fanOut(ctx, in.RoomID, EventChatMessage, message)
	return message, nil
}

// MarkRead moves the user's read marker to now.
func (s *ChatService) MarkRead(ctx context.Context, userID, roomID string) error {
	ctx = ensureContext(ctx)
	participant, err := s.participant(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(participant).Update("last_read_at", s.clock()).Error; err != nil {
		return fmt.Errorf("chat service: mark read: %w", err)
	}
	return nil
}

// DeleteMessage soft deletes a message sent by the user.
func (s *ChatService) DeleteMessage(ctx context.Context, userID, messageID string) error {
	ctx = ensureContext(ctx)

	var message models.Message
	if err := s.db.WithContext(ctx).Take(&message, "id = ? AND is_deleted = ?", messageID, false).Error; err != nil {
		return notFoundOr(err, "Message not found")
	}
	if message.SenderID != userID {
		return apperrors.NewForbidden("You can only delete your own messages")
	}
	if err := s.db.WithContext(ctx).Model(&message).Update("is_deleted", true).Error; err != nil {
		return fmt.Errorf("chat service: delete message: %w", err)
	}

	s.fanOut(ctx, message.RoomID, EventChatMessageDelete, map[string]string{"id": message.ID, "room_id": message.RoomID})
	return nil
}

func (s *ChatService) participant(ctx context.Context, roomID, userID string) (*models.ChatParticipant, error) {
	var participant models.ChatParticipant
	err := s.db.WithContext(ctx).Take(&participant, "room_id = ? AND user_id = ?", strings.TrimSpace(roomID), userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("Chat room not found")
		}
		return nil, fmt.Errorf("chat service: load participant: %w", err)
	}
	return &participant, nil
}

func (s *ChatService) requireClassOwner(ctx context.Context, viewer Viewer, classID string) error {
	var class models.Class
	if err := s.db.WithContext(ctx).Select("id", "teacher_id").Take(&class, "id = ?", classID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewBadRequest("Class not found")
		}
		return fmt.Errorf("chat service: load class: %w", err)
	}
	if class.TeacherID != viewer.UserID && viewer.Role != models.RoleAdmin {
		return apperrors.NewForbidden("Only the class teacher can open a class discussion")
	}
	return nil
}

func (s *ChatService) fanOut(ctx context.Context, roomID, event string, payload any) {
	var room models.ChatRoom
	if err := s.db.WithContext(ctx).Preload("Participants").Take(&room, "id = ?", roomID).Error; err != nil {
		return
	}
	members := make([]string, 0, len(room.Participants))
	for _, p := range room.Participants {
		members = append(members, p.UserID)
	}
	s.broadcast(members, event, payload)

	if classID := derefString(room.ClassID); classID != "" {
		s.events.ClassChanged(ctx, classID, realtime.KindMessages, event, payload)
	}
}

func (s *ChatService) broadcast(userIDs []string, event string, payload any) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToUsers(realtime.StreamChat, userIDs, realtime.Message{Event: event, Data: payload})
}
