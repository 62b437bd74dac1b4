package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/config"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/dispatch"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/model"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/store"
)

const testJWTSecret = "api-test-secret"

// fakeStore is an in-memory store.Store for handler tests.
type fakeStore struct {
	tokens      map[string]*model.DeviceToken
	prefs       map[string]model.NotificationPreference
	records     []model.NotificationRecord
	registerErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tokens: make(map[string]*model.DeviceToken),
		prefs:  make(map[string]model.NotificationPreference),
	}
}

func (f *fakeStore) RegisterToken(ctx context.Context, t *model.DeviceToken) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	for _, existing := range f.tokens {
		if existing.UserID == t.UserID && existing.DeviceClass == t.DeviceClass && existing.Token != t.Token {
			existing.IsActive = false
		}
	}
	t.IsActive = true
	t.LastUsedAt = time.Now().UTC()
	cp := *t
	f.tokens[t.Token] = &cp
	return nil
}

func (f *fakeStore) FindFreshToken(ctx context.Context, userID string, class model.DeviceClass, window time.Duration) (*model.DeviceToken, error) {
	for _, t := range f.tokens {
		if t.UserID == userID && t.DeviceClass == class && t.Fresh(time.Now(), window) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) TouchToken(ctx context.Context, token string) error { return nil }

func (f *fakeStore) DeactivateToken(ctx context.Context, token string) error {
	if t, ok := f.tokens[token]; ok {
		t.IsActive = false
	}
	return nil
}

func (f *fakeStore) DeactivateUserTokens(ctx context.Context, userID string, class model.DeviceClass) error {
	for _, t := range f.tokens {
		if t.UserID == userID && (class == "" || t.DeviceClass == class) {
			t.IsActive = false
		}
	}
	return nil
}

func (f *fakeStore) DeactivateStaleTokens(ctx context.Context, olderThan time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeStore) ResolveAudience(ctx context.Context, sectionID string, category model.Category, now time.Time) ([]store.Recipient, error) {
	return nil, nil
}

func (f *fakeStore) CreateRecord(ctx context.Context, rec *model.NotificationRecord) error {
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeStore) RecordsByUser(ctx context.Context, userID string, limit int) ([]model.NotificationRecord, error) {
	var out []model.NotificationRecord
	for _, rec := range f.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStore) RecordsByRelatedID(ctx context.Context, relatedID string) ([]model.NotificationRecord, error) {
	var out []model.NotificationRecord
	for _, rec := range f.records {
		if rec.RelatedID == relatedID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStore) GetPreference(ctx context.Context, userID string) (model.NotificationPreference, error) {
	if p, ok := f.prefs[userID]; ok {
		return p, nil
	}
	return model.DefaultPreference(userID), nil
}

func (f *fakeStore) SavePreference(ctx context.Context, p *model.NotificationPreference) error {
	f.prefs[p.UserID] = *p
	return nil
}

// fakeDispatcher returns a canned summary or error.
type fakeDispatcher struct {
	summary dispatch.Summary
	err     error
	last    *dispatch.TaskEvent
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, ev dispatch.TaskEvent) (dispatch.Summary, error) {
	f.last = &ev
	return f.summary, f.err
}

func setupRouter(fs *fakeStore, fd *fakeDispatcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(fs, fd, "test-vapid-public-key", time.Hour)
	cfg := &config.Config{}
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Server.CacheTTLSeconds = 1
	cfg.Auth.JWTSecret = testJWTSecret
	return NewRouter(h, cfg)
}

func authHeader(t *testing.T, sub, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func doJSON(t *testing.T, router *gin.Engine, method, path, auth string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
