package config

import "errors"

// Sentinel kinds for configuration errors. Loading and validation
// failures wrap one of these so callers can tell them apart.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrLoadConfig    = errors.New("configuration load failed")
)
