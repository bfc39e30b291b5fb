// Package sweeper runs the periodic temp-site expiry sweep.
//
// The sweep itself is exposed by the store; this package only supplies
// the schedule so a single-binary deployment needs no external cron. An
// external scheduler can drive the same operation through the
// maintenance endpoint instead.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/pulse/pkg/logger"
)

// Default sweeper configuration constants.
const (
	defaultInterval        = time.Minute
	defaultShutdownTimeout = 5 * time.Second
)

// Expirer removes expired temp sites and reports how many were swept.
type Expirer interface {
	ExpireTempSites(ctx context.Context, now time.Time) (int, error)
}

// Sweeper invokes the expiry sweep on a fixed interval.
type Sweeper struct {
	expirer  Expirer
	interval time.Duration

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	log logger.Logger
}

// New creates a sweeper with configuration options.
func New(expirer Expirer, opts ...Option) *Sweeper {
	s := &Sweeper{
		expirer:  expirer,
		interval: defaultInterval,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		log:      logger.Named("sweeper"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps until ctx is canceled or Shutdown is called. A failed sweep
// is logged and retried on the next tick; expiry is idempotent.
func (s *Sweeper) Run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-ticker.C:
			n, err := s.expirer.ExpireTempSites(ctx, time.Now().UTC())
			if err != nil {
				s.log.Error(ctx, "expiry sweep failed", logger.Error(err))
				continue
			}
			if n > 0 {
				s.log.Info(ctx, "expired temp sites", logger.Int("count", n))
			}
		}
	}
}

// Shutdown gracefully stops the sweeper.
func (s *Sweeper) Shutdown(ctx context.Context) error {
	close(s.shutdown)

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		s.log.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
