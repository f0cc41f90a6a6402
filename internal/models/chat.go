package models

import "time"

// ChatRoomType distinguishes one-to-one, class wide and ad-hoc group rooms.
type ChatRoomType string

const (
	ChatRoomDirect ChatRoomType = "direct"
	ChatRoomClass  ChatRoomType = "class"
	ChatRoomGroup  ChatRoomType = "group"
)

// ChatRoom is a conversation container.
type ChatRoom struct {
	BaseModel

	Name       string       `json:"name"`
	Type       ChatRoomType `gorm:"type:varchar(16);index;not null" json:"type"`
	ClassID    *string      `gorm:"type:uuid;index" json:"class_id"`
	CreatedBy  string       `gorm:"type:uuid;index;not null" json:"created_by"`
	IsArchived bool         `gorm:"default:false" json:"is_archived"`

	Participants []ChatParticipant `gorm:"foreignKey:RoomID" json:"participants,omitempty"`
}

// ChatParticipant records room membership and the last read marker.
type ChatParticipant struct {
	BaseModel

	RoomID     string     `gorm:"type:uuid;not null;uniqueIndex:idx_chat_participant_pair" json:"room_id"`
	UserID     string     `gorm:"type:uuid;not null;uniqueIndex:idx_chat_participant_pair;index" json:"user_id"`
	User       *User      `json:"user,omitempty"`
	LastReadAt *time.Time `json:"last_read_at"`
}

// MessageType identifies how a chat message body is rendered.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageFile   MessageType = "file"
	MessageImage  MessageType = "image"
	MessageSystem MessageType = "system"
)

// Message is a single chat entry.
type Message struct {
	BaseModel

	RoomID    string      `gorm:"type:uuid;index;not null" json:"room_id"`
	SenderID  string      `gorm:"type:uuid;index;not null" json:"sender_id"`
	Sender    *User       `json:"sender,omitempty"`
	Content   string      `gorm:"type:text" json:"content"`
	Type      MessageType `gorm:"type:varchar(16);not null;default:text" json:"type"`
	FileURL   string      `json:"file_url,omitempty"`
	IsDeleted bool        `gorm:"default:false;index" json:"-"`
}
