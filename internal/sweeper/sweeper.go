package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/metrics"
)

// TokenRetirer is the single store operation the sweeper needs.
type TokenRetirer interface {
	DeactivateStaleTokens(ctx context.Context, olderThan time.Time) (int64, error)
}

// Sweeper retires device tokens that have not been refreshed within the
// retention window. Devices that come back simply register again; the
// audience stays free of endpoints nobody is holding anymore.
type Sweeper struct {
	store     TokenRetirer
	retention time.Duration
	interval  time.Duration
}

// New creates a sweeper with the given retention window and sweep interval.
func New(store TokenRetirer, retention, interval time.Duration) *Sweeper {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{store: store, retention: retention, interval: interval}
}

// Run sweeps once immediately and then on every interval until ctx is
// cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	log.Printf("token sweeper started (retention %s, interval %s)", s.retention, s.interval)

	s.SweepOnce(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("token sweeper shutting down")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.interval)
		}
	}
}

// SweepOnce performs a single retention pass.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.retention)
	n, err := s.store.DeactivateStaleTokens(ctx, cutoff)
	if err != nil {
		log.Printf("token sweep failed: %v", err)
		return
	}
	if n > 0 {
		metrics.StaleTokensSwept.Add(float64(n))
		log.Printf("token sweep retired %d stale tokens", n)
	}
}
