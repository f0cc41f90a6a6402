package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BaseModel provides shared fields for all persistent models.
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures UUID identifiers are generated automatically.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// EncodeStrings stores a string list in a JSON column. Nil encodes as an empty array.
func EncodeStrings(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(payload)
}

// DecodeStrings reads a string list from a JSON column, tolerating empty or malformed data.
func DecodeStrings(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil || values == nil {
		return []string{}
	}
	return values
}

// EncodeInts stores an integer list in a JSON column.
func EncodeInts(values []int) datatypes.JSON {
	if values == nil {
		values = []int{}
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(payload)
}

// DecodeInts reads an integer list from a JSON column.
func DecodeInts(raw datatypes.JSON) []int {
	if len(raw) == 0 {
		return []int{}
	}
	var values []int
	if err := json.Unmarshal(raw, &values); err != nil || values == nil {
		return []int{}
	}
	return values
}
