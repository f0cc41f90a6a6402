package models

// Document is a stored file shared with a class or the uploader's audience.
type Document struct {
	BaseModel

	Name        string `gorm:"not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	FileURL     string `gorm:"not null" json:"file_url"`
	StorageKey  string `gorm:"not null" json:"-"`
	MimeType    string `json:"mime_type"`
	FileSize    int64  `json:"file_size"`

	ClassID    *string `gorm:"type:uuid;index" json:"class_id"`
	Class      *Class  `json:"class,omitempty"`
	UploaderID string  `gorm:"type:uuid;index;not null" json:"uploader_id"`
	Uploader   *User   `json:"uploader,omitempty"`
	IsHidden   bool    `gorm:"default:false" json:"is_hidden"`
}
