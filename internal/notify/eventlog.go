package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/diewo77/go-submittals/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventLog persists events to the events table.
type EventLog struct {
	db *gorm.DB
}

func NewEventLog(db *gorm.DB) *EventLog {
	return &EventLog{db: db}
}

func (l *EventLog) Publish(ctx context.Context, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}
	row := models.Event{
		Name:     event,
		EntityID: entityID(payload),
		Payload:  datatypes.JSON(body),
	}
	return l.db.WithContext(ctx).Create(&row).Error
}

// Recent returns the newest events, newest first.
func (l *EventLog) Recent(ctx context.Context, limit int) ([]models.Event, error) {
	var events []models.Event
	err := l.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&events).Error
	return events, err
}
