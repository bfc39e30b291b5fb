package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrSiteNotFound  = errors.New("site not found")
	ErrSiteExists    = errors.New("site already exists")
	ErrInvalidLimit  = errors.New("invalid list limit")
	ErrInvalidConfig = errors.New("invalid site configuration")
)
