package registration

import (
	"context"
	"time"

	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/model"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/store"
)

// StoreTokenService is the TokenService for clients that talk to the managed
// data store directly, mirroring the original client SDK architecture.
// Remote clients use the HTTP token endpoints instead; both paths end in the
// same store operations.
type StoreTokenService struct {
	store store.Store
}

// NewStoreTokenService wraps a store as a TokenService.
func NewStoreTokenService(s store.Store) *StoreTokenService {
	return &StoreTokenService{store: s}
}

func (s *StoreTokenService) FreshToken(ctx context.Context, userID string, class model.DeviceClass, window time.Duration) (*model.DeviceToken, error) {
	return s.store.FindFreshToken(ctx, userID, class, window)
}

func (s *StoreTokenService) Register(ctx context.Context, t *model.DeviceToken) error {
	return s.store.RegisterToken(ctx, t)
}

func (s *StoreTokenService) Deactivate(ctx context.Context, userID string, class model.DeviceClass) error {
	return s.store.DeactivateUserTokens(ctx, userID, class)
}

func (s *StoreTokenService) Touch(ctx context.Context, token string) error {
	return s.store.TouchToken(ctx, token)
}
