package models

import "gorm.io/datatypes"

// PostVisibility scopes a post to a class or to every user.
type PostVisibility string

const (
	PostVisibilityClass    PostVisibility = "class"
	PostVisibilityAllUsers PostVisibility = "all_users"
)

// Post is a free-form timeline entry with optional image attachments.
type Post struct {
	BaseModel

	Content  string  `gorm:"type:text;not null" json:"content"`
	AuthorID string  `gorm:"type:uuid;index;not null" json:"author_id"`
	Author   *User   `json:"author,omitempty"`
	ClassID  *string `gorm:"type:uuid;index" json:"class_id"`
	Class    *Class  `json:"class,omitempty"`

	Visibility PostVisibility `gorm:"type:varchar(16);index;not null;default:class" json:"visibility"`
	ImageURLs  datatypes.JSON `json:"image_urls"`
	IsDeleted  bool           `gorm:"default:false;index" json:"-"`
}
