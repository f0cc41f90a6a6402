package models

// Campus groups departments at a physical site.
type Campus struct {
	BaseModel

	Name     string `gorm:"uniqueIndex;not null" json:"name"`
	Timezone string `gorm:"default:'UTC'" json:"timezone"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}

// Department is an academic unit owning classes and scoping announcements.
type Department struct {
	BaseModel

	CampusID *string `gorm:"type:uuid;index" json:"campus_id"`
	Campus   *Campus `json:"campus,omitempty"`
	Code     string  `gorm:"uniqueIndex;not null" json:"code"`
	Name     string  `gorm:"not null" json:"name"`
}
