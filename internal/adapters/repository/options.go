package repository

import "time"

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithMaxOpenConns caps the underlying connection pool.
func WithMaxOpenConns(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithBusyTimeout sets how long a write waits on a locked database before
// failing.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *SQLiteStore) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}
