package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/model"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Store defines the interface for all database operations.
type Store interface {
	// Device tokens.
	RegisterToken(ctx context.Context, t *model.DeviceToken) error
	FindFreshToken(ctx context.Context, userID string, class model.DeviceClass, window time.Duration) (*model.DeviceToken, error)
	TouchToken(ctx context.Context, token string) error
	DeactivateToken(ctx context.Context, token string) error
	DeactivateUserTokens(ctx context.Context, userID string, class model.DeviceClass) error
	DeactivateStaleTokens(ctx context.Context, olderThan time.Time) (int64, error)

	// Audience resolution.
	ResolveAudience(ctx context.Context, sectionID string, category model.Category, now time.Time) ([]Recipient, error)

	// Delivery log. Append-only: there is deliberately no update path.
	CreateRecord(ctx context.Context, rec *model.NotificationRecord) error
	RecordsByUser(ctx context.Context, userID string, limit int) ([]model.NotificationRecord, error)
	RecordsByRelatedID(ctx context.Context, relatedID string) ([]model.NotificationRecord, error)

	// Preferences.
	GetPreference(ctx context.Context, userID string) (model.NotificationPreference, error)
	SavePreference(ctx context.Context, p *model.NotificationPreference) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// RegisterToken is the single canonical dedup rule for device tokens: within
// one transaction it retires every other active token the user holds for the
// same device class, then upserts the new one. Clients never clean up after
// themselves; racing registrations still converge on one active row per
// (user, device class).
func (s *gormStore) RegisterToken(ctx context.Context, t *model.DeviceToken) error {
	now := time.Now().UTC()
	t.IsActive = true
	t.LastUsedAt = now
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.DeviceToken{}).
			Where("user_id = ? AND device_class = ? AND is_active = ? AND token <> ?",
				t.UserID, t.DeviceClass, true, t.Token).
			Updates(map[string]interface{}{"is_active": false, "updated_at": now}).Error; err != nil {
			return fmt.Errorf("deactivate prior tokens for user %s: %w", t.UserID, err)
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"user_id", "device_class", "device_info", "is_active", "last_used_at", "updated_at",
			}),
		}).Create(t).Error; err != nil {
			return fmt.Errorf("upsert token for user %s: %w", t.UserID, err)
		}
		return nil
	})
}

// FindFreshToken returns the user's most recently used active token of the
// given class, provided it was refreshed within the freshness window.
// Returns (nil, nil) when no such token exists.
func (s *gormStore) FindFreshToken(ctx context.Context, userID string, class model.DeviceClass, window time.Duration) (*model.DeviceToken, error) {
	cutoff := time.Now().UTC().Add(-window)
	var t model.DeviceToken
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND device_class = ? AND is_active = ? AND last_used_at > ?",
			userID, class, true, cutoff).
		Order("last_used_at DESC").
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find fresh token for user %s: %w", userID, err)
	}
	return &t, nil
}

// TouchToken refreshes last_used_at on an active token, keeping it clear of
// the retention sweep. Returns gorm.ErrRecordNotFound when the token is
// missing or already inactive.
func (s *gormStore) TouchToken(ctx context.Context, token string) error {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&model.DeviceToken{}).
		Where("token = ? AND is_active = ?", token, true).
		Updates(map[string]interface{}{"last_used_at": now, "updated_at": now})
	if res.Error != nil {
		return fmt.Errorf("touch token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeactivateToken flips a single token inactive. Idempotent: deactivating an
// already-inactive token affects zero rows and is not an error, so racing
// self-healing writes are harmless.
func (s *gormStore) DeactivateToken(ctx context.Context, token string) error {
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Model(&model.DeviceToken{}).
		Where("token = ? AND is_active = ?", token, true).
		Updates(map[string]interface{}{"is_active": false, "updated_at": now}).Error
	if err != nil {
		return fmt.Errorf("deactivate token: %w", err)
	}
	return nil
}

// DeactivateUserTokens retires all of a user's active tokens, optionally
// narrowed to one device class (empty class means every class).
func (s *gormStore) DeactivateUserTokens(ctx context.Context, userID string, class model.DeviceClass) error {
	now := time.Now().UTC()
	q := s.db.WithContext(ctx).Model(&model.DeviceToken{}).
		Where("user_id = ? AND is_active = ?", userID, true)
	if class != "" {
		q = q.Where("device_class = ?", class)
	}
	if err := q.Updates(map[string]interface{}{"is_active": false, "updated_at": now}).Error; err != nil {
		return fmt.Errorf("deactivate tokens for user %s: %w", userID, err)
	}
	return nil
}

// DeactivateStaleTokens retires every active token not refreshed since
// olderThan and reports how many rows were affected.
func (s *gormStore) DeactivateStaleTokens(ctx context.Context, olderThan time.Time) (int64, error) {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&model.DeviceToken{}).
		Where("is_active = ? AND last_used_at < ?", true, olderThan).
		Updates(map[string]interface{}{"is_active": false, "updated_at": now})
	if res.Error != nil {
		return 0, fmt.Errorf("deactivate stale tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// audienceRow is the raw join row ResolveAudience scans before preference
// filtering. Preference columns are pointers so a missing row (LEFT JOIN
// miss) is distinguishable from saved falses.
type audienceRow struct {
	UserID              string
	Token               string
	DeviceClass         model.DeviceClass
	Enabled             *bool
	TaskEnabled         *bool
	AnnouncementEnabled *bool
	ReminderEnabled     *bool
	QuietHoursStart     *int
	QuietHoursEnd       *int
}

// ResolveAudience computes the deliverable (user, token) set for one section
// and category: every active token of every section member, minus users whose
// master or category toggle is off and users currently inside their
// quiet-hours window. Users without a preference row get the all-enabled
// defaults. The token primary key makes duplicates impossible; an empty
// audience is an empty slice, not an error.
func (s *gormStore) ResolveAudience(ctx context.Context, sectionID string, category model.Category, now time.Time) ([]Recipient, error) {
	var rows []audienceRow
	err := s.db.WithContext(ctx).
		Table("device_tokens").
		Select(`device_tokens.user_id, device_tokens.token, device_tokens.device_class,
			notification_preferences.enabled, notification_preferences.task_enabled,
			notification_preferences.announcement_enabled, notification_preferences.reminder_enabled,
			notification_preferences.quiet_hours_start, notification_preferences.quiet_hours_end`).
		Joins("JOIN section_members ON section_members.user_id = device_tokens.user_id").
		Joins("LEFT JOIN notification_preferences ON notification_preferences.user_id = device_tokens.user_id").
		Where("section_members.section_id = ? AND device_tokens.is_active = ?", sectionID, true).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("resolve audience for section %s: %w", sectionID, err)
	}

	// Quiet hours are local-time arithmetic, so the filter runs here rather
	// than in dialect-specific SQL.
	recipients := make([]Recipient, 0, len(rows))
	for _, r := range rows {
		pref := model.DefaultPreference(r.UserID)
		if r.Enabled != nil {
			pref.Enabled = *r.Enabled
			pref.TaskEnabled = boolOr(r.TaskEnabled, false)
			pref.AnnouncementEnabled = boolOr(r.AnnouncementEnabled, false)
			pref.ReminderEnabled = boolOr(r.ReminderEnabled, false)
			pref.QuietHoursStart = r.QuietHoursStart
			pref.QuietHoursEnd = r.QuietHoursEnd
		}
		if !pref.Allows(category) || pref.InQuietHours(now) {
			continue
		}
		recipients = append(recipients, Recipient{
			UserID:      r.UserID,
			Token:       r.Token,
			DeviceClass: r.DeviceClass,
		})
	}
	return recipients, nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// CreateRecord appends one delivery-log row, assigning an ID and timestamp
// when the caller left them empty.
func (s *gormStore) CreateRecord(ctx context.Context, rec *model.NotificationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create notification record: %w", err)
	}
	return nil
}

// RecordsByUser returns a user's delivery history, newest first.
func (s *gormStore) RecordsByUser(ctx context.Context, userID string, limit int) ([]model.NotificationRecord, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}
	var recs []model.NotificationRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("sent_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("records for user %s: %w", userID, err)
	}
	return recs, nil
}

// RecordsByRelatedID returns every delivery-log row a single trigger (for
// example one task) produced, newest first. Used for admin diagnosis.
func (s *gormStore) RecordsByRelatedID(ctx context.Context, relatedID string) ([]model.NotificationRecord, error) {
	var recs []model.NotificationRecord
	err := s.db.WithContext(ctx).
		Where("related_id = ?", relatedID).
		Order("sent_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("records for related id %s: %w", relatedID, err)
	}
	return recs, nil
}

// GetPreference returns the user's saved preferences, or the all-enabled
// defaults when no row exists.
func (s *gormStore) GetPreference(ctx context.Context, userID string) (model.NotificationPreference, error) {
	var p model.NotificationPreference
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.DefaultPreference(userID), nil
		}
		return model.NotificationPreference{}, fmt.Errorf("get preference for user %s: %w", userID, err)
	}
	return p, nil
}

// SavePreference upserts the user's preference row.
func (s *gormStore) SavePreference(ctx context.Context, p *model.NotificationPreference) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"enabled", "task_enabled", "announcement_enabled", "reminder_enabled",
			"quiet_hours_start", "quiet_hours_end", "updated_at",
		}),
	}).Create(p).Error
	if err != nil {
		return fmt.Errorf("save preference for user %s: %w", p.UserID, err)
	}
	return nil
}
