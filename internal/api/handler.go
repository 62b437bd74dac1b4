package api

import (
	"context"
	"time"

	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/dispatch"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/store"
)

// TaskDispatcher triggers one notification fan-out per task event.
type TaskDispatcher interface {
	Dispatch(ctx context.Context, ev dispatch.TaskEvent) (dispatch.Summary, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store          store.Store
	dispatcher     TaskDispatcher
	pushPublicKey  string
	tokenFreshness time.Duration
	startedAt      time.Time
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, d TaskDispatcher, pushPublicKey string, tokenFreshness time.Duration) *Handler {
	if tokenFreshness <= 0 {
		tokenFreshness = 7 * 24 * time.Hour
	}
	return &Handler{
		store:          s,
		dispatcher:     d,
		pushPublicKey:  pushPublicKey,
		tokenFreshness: tokenFreshness,
		startedAt:      time.Now(),
	}
}
