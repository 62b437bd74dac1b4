package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/dispatch"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/model"
)

func dispatchBody() map[string]interface{} {
	return map[string]interface{}{
		"task_id":    "task-1",
		"section_id": "sec-1",
		"title":      "New task",
		"body":       "Lab report due Friday",
		"category":   "task",
	}
}

func TestDispatchNotification(t *testing.T) {
	t.Run("Requires the section_admin role", func(t *testing.T) {
		router := setupRouter(newFakeStore(), &fakeDispatcher{})

		w := doJSON(t, router, http.MethodPost, "/api/notifications/dispatch", authHeader(t, "u1", "member"), dispatchBody())
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Validates the trigger shape", func(t *testing.T) {
		router := setupRouter(newFakeStore(), &fakeDispatcher{})
		auth := authHeader(t, "admin-1", "section_admin")

		body := dispatchBody()
		delete(body, "section_id")
		w := doJSON(t, router, http.MethodPost, "/api/notifications/dispatch", auth, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		body = dispatchBody()
		body["category"] = "gossip"
		w = doJSON(t, router, http.MethodPost, "/api/notifications/dispatch", auth, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Returns the aggregate summary", func(t *testing.T) {
		fd := &fakeDispatcher{summary: dispatch.Summary{Sent: 2, Failed: 1, Total: 3}}
		router := setupRouter(newFakeStore(), fd)

		w := doJSON(t, router, http.MethodPost, "/api/notifications/dispatch", authHeader(t, "admin-1", "section_admin"), dispatchBody())
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"sent":2,"failed":1,"total":3}`, w.Body.String())

		require.NotNil(t, fd.last)
		assert.Equal(t, "task-1", fd.last.TaskID)
		assert.Equal(t, model.CategoryTask, fd.last.Category)
	})

	t.Run("Resolution failure is a single aggregate error", func(t *testing.T) {
		fd := &fakeDispatcher{err: fmt.Errorf("%w: connection refused", dispatch.ErrAudienceResolution)}
		router := setupRouter(newFakeStore(), fd)

		w := doJSON(t, router, http.MethodPost, "/api/notifications/dispatch", authHeader(t, "admin-1", "section_admin"), dispatchBody())
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "audience resolution failed")
	})
}

func TestDeliveryHistory(t *testing.T) {
	fs := newFakeStore()
	fs.records = []model.NotificationRecord{
		{ID: "r1", UserID: "u1", RelatedID: "task-1", Status: model.StatusSent},
		{ID: "r2", UserID: "u2", RelatedID: "task-1", Status: model.StatusFailed, Error: "unregistered"},
		{ID: "r3", UserID: "u1", RelatedID: "task-2", Status: model.StatusSent},
	}
	router := setupRouter(fs, &fakeDispatcher{})

	t.Run("Users see their own history", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/notifications", authHeader(t, "u1", "member"), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "r1")
		assert.Contains(t, w.Body.String(), "r3")
		assert.NotContains(t, w.Body.String(), "r2")
	})

	t.Run("Admin history requires the role", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/admin/notifications?related_id=task-1", authHeader(t, "u1", "member"), nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Admin queries by trigger", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/admin/notifications?related_id=task-1", authHeader(t, "admin-1", "section_admin"), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "r1")
		assert.Contains(t, w.Body.String(), "r2")
		assert.NotContains(t, w.Body.String(), "r3")
	})

	t.Run("Admin queries need a filter", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/admin/notifications", authHeader(t, "admin-1", "section_admin"), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPreferences(t *testing.T) {
	fs := newFakeStore()
	router := setupRouter(fs, &fakeDispatcher{})
	auth := authHeader(t, "u1", "member")

	t.Run("Defaults for a new user", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/preferences", auth, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{
			"enabled": true,
			"task_enabled": true,
			"announcement_enabled": true,
			"reminder_enabled": true,
			"quiet_hours_start": null,
			"quiet_hours_end": null
		}`, w.Body.String())
	})

	t.Run("Partial update keeps the other toggles", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPut, "/api/preferences", auth, map[string]interface{}{
			"task_enabled": false,
		})
		require.Equal(t, http.StatusOK, w.Code)

		saved := fs.prefs["u1"]
		assert.False(t, saved.TaskEnabled)
		assert.True(t, saved.Enabled)
		assert.True(t, saved.AnnouncementEnabled)
	})

	t.Run("Quiet hours must come as a pair", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPut, "/api/preferences", auth, map[string]interface{}{
			"quiet_hours_start": 22 * 60,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = doJSON(t, router, http.MethodPut, "/api/preferences", auth, map[string]interface{}{
			"quiet_hours_start": 22 * 60,
			"quiet_hours_end":   7 * 60,
		})
		require.Equal(t, http.StatusOK, w.Code)
		saved := fs.prefs["u1"]
		require.NotNil(t, saved.QuietHoursStart)
		assert.Equal(t, 22*60, *saved.QuietHoursStart)
	})

	t.Run("Quiet hours outside one day are rejected", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPut, "/api/preferences", auth, map[string]interface{}{
			"quiet_hours_start": 25 * 60,
			"quiet_hours_end":   7 * 60,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPushPublicKey(t *testing.T) {
	router := setupRouter(newFakeStore(), &fakeDispatcher{})

	// No auth required.
	w := doJSON(t, router, http.MethodGet, "/api/push/public-key", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"test-vapid-public-key"}`, w.Body.String())
}

func TestHealthz(t *testing.T) {
	router := setupRouter(newFakeStore(), &fakeDispatcher{})

	w := doJSON(t, router, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
