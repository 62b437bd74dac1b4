package model

import "time"

// NotificationPreference stores a user's opt-out switches. Users without a
// row get the all-enabled defaults, so the table only ever grows when someone
// actually changes something.
type NotificationPreference struct {
	UserID              string `gorm:"primaryKey;size:64"`
	Enabled             bool   `gorm:"not null"`
	TaskEnabled         bool   `gorm:"not null"`
	AnnouncementEnabled bool   `gorm:"not null"`
	ReminderEnabled     bool   `gorm:"not null"`
	// Quiet hours are minutes since local midnight. Nil means the user never
	// configured a window; equal start and end means the window is disabled.
	QuietHoursStart *int
	QuietHoursEnd   *int
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// DefaultPreference returns the implicit preferences of a user who never
// saved any: everything on, no quiet hours.
func DefaultPreference(userID string) NotificationPreference {
	return NotificationPreference{
		UserID:              userID,
		Enabled:             true,
		TaskEnabled:         true,
		AnnouncementEnabled: true,
		ReminderEnabled:     true,
	}
}

// Allows reports whether notifications of the given category may reach this
// user at all. The master flag overrides every per-category flag.
func (p *NotificationPreference) Allows(c Category) bool {
	if !p.Enabled {
		return false
	}
	switch c {
	case CategoryTask:
		return p.TaskEnabled
	case CategoryAnnouncement:
		return p.AnnouncementEnabled
	case CategoryReminder:
		return p.ReminderEnabled
	}
	return false
}

// InQuietHours reports whether t falls inside the user's quiet-hours window.
// The window may wrap past midnight (22:00 to 07:00).
func (p *NotificationPreference) InQuietHours(t time.Time) bool {
	if p.QuietHoursStart == nil || p.QuietHoursEnd == nil {
		return false
	}
	start, end := *p.QuietHoursStart, *p.QuietHoursEnd
	if start == end {
		return false
	}
	minute := t.Hour()*60 + t.Minute()
	if start < end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}
