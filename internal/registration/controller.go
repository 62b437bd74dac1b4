package registration

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/model"
)

// Terminal failures require user action; retryable ones feed the foreground
// retry policy.
var (
	ErrPermissionDenied    = errors.New("registration: notification permission denied")
	ErrPlatformUnsupported = errors.New("registration: platform does not support push")
	ErrTokenGeneration     = errors.New("registration: token generation failed")
	ErrPersistence         = errors.New("registration: token persistence failed")
)

// Permission is the platform's tri-state notification permission.
type Permission string

const (
	PermissionGranted   Permission = "granted"
	PermissionDenied    Permission = "denied"
	PermissionUndecided Permission = "undecided"
)

// PermissionAPI is the platform notification-permission primitive. Request
// suspends on user interaction and may take arbitrary wall-clock time.
type PermissionAPI interface {
	Current(ctx context.Context) (Permission, error)
	Request(ctx context.Context) (Permission, error)
}

// TokenSource mints push endpoints from the platform's push service.
type TokenSource interface {
	Supported() bool
	Generate(ctx context.Context) (string, error)
}

// TokenService is the persistence surface the controller writes through.
// It never cleans up duplicates itself; Register is the one canonical
// deactivate-then-upsert rule, owned server-side.
type TokenService interface {
	FreshToken(ctx context.Context, userID string, class model.DeviceClass, window time.Duration) (*model.DeviceToken, error)
	Register(ctx context.Context, t *model.DeviceToken) error
	Deactivate(ctx context.Context, userID string, class model.DeviceClass) error
	Touch(ctx context.Context, token string) error
}

// Config tunes one controller instance. Zero values fall back to defaults.
type Config struct {
	FreshnessWindow time.Duration // reuse stored tokens younger than this
	GenerateTimeout time.Duration // cap on one endpoint-generation call
	MaxAttempts     int           // automatic retries out of the error state
	RetryBackoff    time.Duration // base delay, doubled per attempt
	RefreshInterval time.Duration // KeepFresh tick
}

func (c *Config) applyDefaults() {
	if c.FreshnessWindow <= 0 {
		c.FreshnessWindow = 7 * 24 * time.Hour
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = 15 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 2 * time.Second
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 6 * time.Hour
	}
}

// Snapshot is the typed status the UI layer renders.
type Snapshot struct {
	State    State
	Token    string
	Err      string
	Attempts int
}

// Controller drives one authenticated session's device-token registration:
// permission acquisition, freshness-based reuse, endpoint generation, and
// persistence. One instance per session; its cached token dies with it.
type Controller struct {
	userID string
	class  model.DeviceClass
	info   string

	perms  PermissionAPI
	source TokenSource
	tokens TokenService
	cfg    Config

	// Coalesces concurrent Register calls per user. The flow runs detached
	// from any single caller's context, so an abandoned caller leaves the
	// flow to finish and the guard to clear on its completion path.
	group singleflight.Group

	mu       sync.Mutex
	state    State
	token    string
	lastErr  error
	attempts int
}

// NewController wires a controller for one user's current device.
func NewController(userID string, class model.DeviceClass, deviceInfo string, perms PermissionAPI, source TokenSource, tokens TokenService, cfg Config) *Controller {
	cfg.applyDefaults()
	return &Controller{
		userID: userID,
		class:  class,
		info:   deviceInfo,
		perms:  perms,
		source: source,
		tokens: tokens,
		cfg:    cfg,
		state:  StateIdle,
	}
}

// Snapshot returns the current state for the UI layer.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{State: c.state, Token: c.token, Attempts: c.attempts}
	if c.lastErr != nil {
		s.Err = c.lastErr.Error()
	}
	return s
}

// transition is the single chokepoint for state changes.
func (c *Controller) transition(to State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == to {
		return nil
	}
	if !canTransition(c.state, to) {
		return fmt.Errorf("registration: illegal transition %s -> %s", c.state, to)
	}
	c.state = to
	return nil
}

// Register runs the registration flow. Without force it is an idempotent
// no-op once registered, and Denied is terminal: no permission prompt, no
// generation, no store write. Concurrent calls for the same user coalesce
// onto one in-flight flow. The caller's ctx only bounds how long this call
// waits; a flow that lost its caller still runs to completion so the
// single-flight guard always clears.
func (c *Controller) Register(ctx context.Context, force bool) error {
	c.mu.Lock()
	switch {
	case c.state == StateRegistered && !force:
		c.mu.Unlock()
		return nil
	case c.state == StateDenied:
		err := c.lastErr
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	ch := c.group.DoChan(c.userID, func() (interface{}, error) {
		return nil, c.doRegister(force)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// doRegister is the one linear flow behind the single-flight guard.
func (c *Controller) doRegister(force bool) error {
	ctx := context.Background()

	if err := c.transition(StateCheckingPermission); err != nil {
		return err
	}

	if !c.source.Supported() {
		return c.failTerminal(ErrPlatformUnsupported)
	}

	perm, err := c.perms.Current(ctx)
	if err != nil {
		return c.failRetryable(fmt.Errorf("check permission: %w", err))
	}
	if perm == PermissionUndecided {
		if err := c.transition(StateRequestingPermission); err != nil {
			return err
		}
		perm, err = c.perms.Request(ctx)
		if err != nil {
			return c.failRetryable(fmt.Errorf("request permission: %w", err))
		}
	}
	if perm != PermissionGranted {
		return c.failTerminal(ErrPermissionDenied)
	}

	// Dedup: a fresh stored token short-circuits the whole generation and
	// persistence leg. A failed lookup is not fatal; the flow falls through
	// to generating a replacement.
	if !force {
		stored, err := c.tokens.FreshToken(ctx, c.userID, c.class, c.cfg.FreshnessWindow)
		if err != nil {
			log.Printf("registration: fresh-token lookup failed for user %s: %v", c.userID, err)
		} else if stored != nil {
			return c.succeed(stored.Token)
		}
	}

	if err := c.transition(StateGeneratingToken); err != nil {
		return err
	}
	genCtx, cancel := context.WithTimeout(ctx, c.cfg.GenerateTimeout)
	endpoint, err := c.source.Generate(genCtx)
	cancel()
	if err != nil {
		return c.failRetryable(fmt.Errorf("%w: %v", ErrTokenGeneration, err))
	}

	if err := c.transition(StateStoringToken); err != nil {
		return err
	}
	if err := c.tokens.Register(ctx, &model.DeviceToken{
		Token:       endpoint,
		UserID:      c.userID,
		DeviceClass: c.class,
		DeviceInfo:  c.info,
	}); err != nil {
		return c.failRetryable(fmt.Errorf("%w: %v", ErrPersistence, err))
	}

	return c.succeed(endpoint)
}

func (c *Controller) succeed(token string) error {
	if err := c.transition(StateRegistered); err != nil {
		return err
	}
	c.mu.Lock()
	c.token = token
	c.lastErr = nil
	c.attempts = 0
	c.mu.Unlock()
	return nil
}

func (c *Controller) failTerminal(cause error) error {
	if err := c.transition(StateDenied); err != nil {
		return err
	}
	c.mu.Lock()
	c.lastErr = cause
	c.mu.Unlock()
	return cause
}

func (c *Controller) failRetryable(cause error) error {
	if err := c.transition(StateError); err != nil {
		return err
	}
	c.mu.Lock()
	c.lastErr = cause
	c.attempts++
	c.mu.Unlock()
	return cause
}

// Unregister deactivates the user's tokens for this device class. Local
// state clears even when the remote deactivation fails, so the session never
// keeps pushing to an endpoint the user asked to silence.
func (c *Controller) Unregister(ctx context.Context) error {
	err := c.tokens.Deactivate(ctx, c.userID, c.class)
	if err != nil {
		log.Printf("registration: remote deactivation failed for user %s: %v", c.userID, err)
	}

	c.mu.Lock()
	c.state = StateIdle
	c.token = ""
	c.lastErr = nil
	c.attempts = 0
	c.mu.Unlock()
	return err
}

// OnForeground re-attempts registration after a transient failure when the
// application regains focus: bounded attempts, exponential backoff, and
// never out of Denied.
func (c *Controller) OnForeground(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateError {
		c.mu.Unlock()
		return nil
	}
	if c.attempts >= c.cfg.MaxAttempts {
		err := c.lastErr
		c.mu.Unlock()
		return err
	}
	delay := c.cfg.RetryBackoff << (c.attempts - 1)
	if max := 2 * time.Minute; delay > max {
		delay = max
	}
	c.mu.Unlock()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	return c.Register(ctx, false)
}

// KeepFresh refreshes the stored token's last-used timestamp while the
// session is alive, keeping it clear of the retention sweep. It returns
// when ctx is cancelled.
func (c *Controller) KeepFresh(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			token := ""
			if c.state == StateRegistered {
				token = c.token
			}
			c.mu.Unlock()
			if token == "" {
				continue
			}
			if err := c.tokens.Touch(ctx, token); err != nil {
				log.Printf("registration: token refresh failed for user %s: %v", c.userID, err)
			}
		}
	}
}
