package model

import (
	"encoding/json"
	"time"
)

// Category names one kind of notification the application emits.
type Category string

const (
	CategoryTask         Category = "task"
	CategoryAnnouncement Category = "announcement"
	CategoryReminder     Category = "reminder"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryTask, CategoryAnnouncement, CategoryReminder:
		return true
	}
	return false
}

// DeliveryStatus is the terminal outcome of one send attempt.
type DeliveryStatus string

const (
	StatusSent   DeliveryStatus = "sent"
	StatusFailed DeliveryStatus = "failed"
)

// NotificationRecord is one delivery-log row: one send attempt to one token.
// The log is append-only. Rows are never updated after creation; a re-send
// produces a new row rather than mutating the old one.
type NotificationRecord struct {
	ID        string          `gorm:"primaryKey;size:36"`
	UserID    string          `gorm:"size:64;not null;index"`
	Title     string          `gorm:"size:256;not null"`
	Body      string          `gorm:"not null"`
	Payload   json.RawMessage `gorm:"serializer:json;type:text"`
	Category  Category        `gorm:"size:32;not null"`
	RelatedID string          `gorm:"size:64;index"`
	Token     string          `gorm:"not null"`
	Status    DeliveryStatus  `gorm:"size:16;not null"`
	Error     string
	SentAt    time.Time `gorm:"not null;index"`
}
