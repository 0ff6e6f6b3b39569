package models

import (
	"time"

	"gorm.io/datatypes"
)

// Manufacturer is a selectable brand for quote options and add-ons.
type Manufacturer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
}

// Event is a persisted workflow notification, read back by the activity feed.
type Event struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	Name      string         `gorm:"size:100;index;not null" json:"name"`
	EntityID  uint           `gorm:"index" json:"entity_id,omitempty"`
	Payload   datatypes.JSON `json:"payload"`
}

// QuoteSequence is a named counter for databases without native sequences.
type QuoteSequence struct {
	Name  string `gorm:"primaryKey;size:50"`
	Value int64  `gorm:"not null"`
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&Customer{},
		&Submittal{},
		&QuoteOption{},
		&Job{},
		&AddOn{},
		&Manufacturer{},
		&Event{},
		&QuoteSequence{},
	}
}
