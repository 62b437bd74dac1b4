package model

import "time"

// SectionMember maps a user into a section. Rows are owned by the academic
// CRUD layer; this service only reads them during audience resolution.
type SectionMember struct {
	SectionID string    `gorm:"primaryKey;size:64"`
	UserID    string    `gorm:"primaryKey;size:64"`
	CreatedAt time.Time `gorm:"not null"`
}
