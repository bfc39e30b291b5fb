package sweeper

import (
	"time"

	"github.com/okian/pulse/pkg/logger"
)

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithInterval sets the time between sweeps. Non-positive values keep
// the default.
func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger sets the logger used by the sweeper.
func WithLogger(l logger.Logger) Option {
	return func(s *Sweeper) {
		if l != nil {
			s.log = l
		}
	}
}
