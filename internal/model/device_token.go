package model

import "time"

// DeviceClass buckets push endpoints by the platform that issued them.
type DeviceClass string

const (
	DeviceMobile     DeviceClass = "mobile"
	DeviceDesktopWeb DeviceClass = "desktop-web"
	DeviceOther      DeviceClass = "other"
)

// Valid reports whether c is one of the known device classes.
func (c DeviceClass) Valid() bool {
	switch c {
	case DeviceMobile, DeviceDesktopWeb, DeviceOther:
		return true
	}
	return false
}

// DeviceToken is one push-capable endpoint owned by one of a user's devices.
// The token string itself is the identity: push platforms guarantee it is
// globally unique, so it doubles as the primary key.
type DeviceToken struct {
	Token       string      `gorm:"primaryKey"`
	UserID      string      `gorm:"size:64;not null;index:idx_tokens_user_class"`
	DeviceClass DeviceClass `gorm:"size:16;not null;index:idx_tokens_user_class"`
	DeviceInfo  string      `gorm:"size:256"`
	IsActive    bool        `gorm:"not null;index"`
	CreatedAt   time.Time   `gorm:"not null"`
	UpdatedAt   time.Time   `gorm:"not null"`
	LastUsedAt  time.Time   `gorm:"not null;index"`
}

// Fresh reports whether the token was refreshed within the given window,
// measured from now. Only fresh tokens are reused during registration.
func (t *DeviceToken) Fresh(now time.Time, window time.Duration) bool {
	return t.IsActive && now.Sub(t.LastUsedAt) < window
}
