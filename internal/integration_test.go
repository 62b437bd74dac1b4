package internal

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/dispatch"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/model"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/push"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/registration"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/store"
)

// newSQLiteStore opens a fresh in-memory database with the full schema.
func newSQLiteStore(t *testing.T, name string) (*gorm.DB, store.Store) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, testDB.AutoMigrate(
		&model.DeviceToken{},
		&model.NotificationPreference{},
		&model.NotificationRecord{},
		&model.SectionMember{},
	))
	return testDB, store.NewGormStore(testDB)
}

// grantedPermissions always reports granted, like a browser profile that
// already allowed notifications.
type grantedPermissions struct{}

func (grantedPermissions) Current(ctx context.Context) (registration.Permission, error) {
	return registration.PermissionGranted, nil
}

func (grantedPermissions) Request(ctx context.Context) (registration.Permission, error) {
	return registration.PermissionGranted, nil
}

// sequenceSource mints endpoint-1, endpoint-2, ...
type sequenceSource struct {
	prefix string
	calls  atomic.Int32
}

func (s *sequenceSource) Supported() bool { return true }

func (s *sequenceSource) Generate(ctx context.Context) (string, error) {
	return fmt.Sprintf("%s-%d", s.prefix, s.calls.Add(1)), nil
}

// selectiveSender succeeds except for one token, which fails permanently.
type selectiveSender struct {
	failToken string
	sends     atomic.Int32
}

func (s *selectiveSender) Send(ctx context.Context, msg *push.Message) error {
	s.sends.Add(1)
	if msg.Token == s.failToken {
		return fmt.Errorf("%w: unregistered", push.ErrInvalidToken)
	}
	return nil
}

// TestPushLifecycle walks the whole subsystem end to end on real SQL:
// registration with reuse and forced replacement, audience resolution
// against preferences, fan-out with a permanently dead token, self-healing,
// and the empty re-dispatch afterwards.
func TestPushLifecycle(t *testing.T) {
	ctx := context.Background()
	testDB, appStore := newSQLiteStore(t, "push_lifecycle")

	// Section sec-1 has three members.
	for _, userID := range []string{"u1", "u2", "u3"} {
		require.NoError(t, testDB.Create(&model.SectionMember{SectionID: "sec-1", UserID: userID}).Error)
	}

	// --- Registration: u1 registers a mobile device through the controller.
	source := &sequenceSource{prefix: "u1-endpoint"}
	controller := registration.NewController(
		"u1", model.DeviceMobile, "Pixel 8",
		grantedPermissions{}, source,
		registration.NewStoreTokenService(appStore),
		registration.Config{FreshnessWindow: time.Hour, RetryBackoff: time.Millisecond},
	)

	t.Run("Registration persists one active token", func(t *testing.T) {
		require.NoError(t, controller.Register(ctx, false))
		snap := controller.Snapshot()
		assert.Equal(t, registration.StateRegistered, snap.State)
		assert.Equal(t, "u1-endpoint-1", snap.Token)

		var count int64
		testDB.Model(&model.DeviceToken{}).Where("user_id = ? AND is_active = ?", "u1", true).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Re-registering reuses the fresh token", func(t *testing.T) {
		// A second session starts with no cached state but finds the stored
		// token fresh enough to reuse.
		second := registration.NewController(
			"u1", model.DeviceMobile, "Pixel 8",
			grantedPermissions{}, source,
			registration.NewStoreTokenService(appStore),
			registration.Config{FreshnessWindow: time.Hour},
		)
		require.NoError(t, second.Register(ctx, false))
		assert.Equal(t, "u1-endpoint-1", second.Snapshot().Token)
		assert.Equal(t, int32(1), source.calls.Load(), "reuse must not mint a new endpoint")
	})

	t.Run("Forced re-registration leaves exactly one active row", func(t *testing.T) {
		require.NoError(t, controller.Register(ctx, true))
		require.NoError(t, controller.Register(ctx, true))

		var active []model.DeviceToken
		require.NoError(t, testDB.Where("user_id = ? AND device_class = ? AND is_active = ?",
			"u1", model.DeviceMobile, true).Find(&active).Error)
		require.Len(t, active, 1)
		assert.Equal(t, "u1-endpoint-3", active[0].Token)

		var inactive int64
		testDB.Model(&model.DeviceToken{}).Where("user_id = ? AND is_active = ?", "u1", false).Count(&inactive)
		assert.Equal(t, int64(2), inactive)
	})

	// u2 holds a web token but has the task category switched off; u3 never
	// registered anything.
	require.NoError(t, appStore.RegisterToken(ctx, &model.DeviceToken{
		Token: "u2-endpoint", UserID: "u2", DeviceClass: model.DeviceDesktopWeb,
	}))
	u2Pref := model.DefaultPreference("u2")
	u2Pref.TaskEnabled = false
	require.NoError(t, appStore.SavePreference(ctx, &u2Pref))

	t.Run("Audience excludes disabled categories and tokenless users", func(t *testing.T) {
		audience, err := appStore.ResolveAudience(ctx, "sec-1", model.CategoryTask, time.Now().UTC())
		require.NoError(t, err)
		require.Len(t, audience, 1)
		assert.Equal(t, "u1", audience[0].UserID)
		assert.Equal(t, "u1-endpoint-3", audience[0].Token)
	})

	// u2 turns tasks back on; the audience now has two tokens, and u2's is
	// about to go permanently stale at the gateway.
	u2Pref.TaskEnabled = true
	require.NoError(t, appStore.SavePreference(ctx, &u2Pref))

	sender := &selectiveSender{failToken: "u2-endpoint"}
	dispatcher := dispatch.NewDispatcher(appStore, sender, 4, time.Second)
	dctx, dcancel := context.WithCancel(ctx)
	defer dcancel()
	dispatcher.Start(dctx)

	event := dispatch.TaskEvent{
		TaskID:    "task-1",
		SectionID: "sec-1",
		Title:     "New task",
		Body:      "Lab report due Friday",
		Category:  model.CategoryTask,
	}

	t.Run("Dispatch records every outcome and self-heals", func(t *testing.T) {
		summary, err := dispatcher.Dispatch(ctx, event)
		require.NoError(t, err)
		assert.Equal(t, dispatch.Summary{Sent: 1, Failed: 1, Total: 2}, summary)

		records, err := appStore.RecordsByRelatedID(ctx, "task-1")
		require.NoError(t, err)
		require.Len(t, records, 2)
		byToken := map[string]model.NotificationRecord{}
		for _, rec := range records {
			byToken[rec.Token] = rec
		}
		assert.Equal(t, model.StatusSent, byToken["u1-endpoint-3"].Status)
		assert.Equal(t, model.StatusFailed, byToken["u2-endpoint"].Status)
		assert.Contains(t, byToken["u2-endpoint"].Error, "unregistered")

		// The dead token is out of the audience now.
		var u2Token model.DeviceToken
		require.NoError(t, testDB.First(&u2Token, "token = ?", "u2-endpoint").Error)
		assert.False(t, u2Token.IsActive)

		audience, err := appStore.ResolveAudience(ctx, "sec-1", model.CategoryTask, time.Now().UTC())
		require.NoError(t, err)
		require.Len(t, audience, 1)
		assert.Equal(t, "u1", audience[0].UserID)
	})

	t.Run("Unregister empties the audience and dispatch becomes a no-op", func(t *testing.T) {
		require.NoError(t, controller.Unregister(ctx))
		assert.Equal(t, registration.StateIdle, controller.Snapshot().State)

		event.TaskID = "task-2"
		event.RelatedID = ""
		summary, err := dispatcher.Dispatch(ctx, event)
		require.NoError(t, err)
		assert.Equal(t, dispatch.Summary{Sent: 0, Failed: 0, Total: 0}, summary)

		records, err := appStore.RecordsByRelatedID(ctx, "task-2")
		require.NoError(t, err)
		assert.Empty(t, records, "an empty dispatch writes nothing")
	})
}

// TestRetentionSweep verifies lifecycle rule (c): tokens that stop being
// refreshed fall out of the audience.
func TestRetentionSweep(t *testing.T) {
	ctx := context.Background()
	testDB, appStore := newSQLiteStore(t, "retention_sweep")

	require.NoError(t, testDB.Create(&model.SectionMember{SectionID: "sec-1", UserID: "u1"}).Error)
	require.NoError(t, appStore.RegisterToken(ctx, &model.DeviceToken{
		Token: "old-token", UserID: "u1", DeviceClass: model.DeviceMobile,
	}))

	// Age the token past the retention window.
	stale := time.Now().UTC().Add(-31 * 24 * time.Hour)
	require.NoError(t, testDB.Model(&model.DeviceToken{}).
		Where("token = ?", "old-token").
		Update("last_used_at", stale).Error)

	n, err := appStore.DeactivateStaleTokens(ctx, time.Now().UTC().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	audience, err := appStore.ResolveAudience(ctx, "sec-1", model.CategoryTask, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, audience)

	// Touching an inactive token does not resurrect it.
	assert.Error(t, appStore.TouchToken(ctx, "old-token"))
}
