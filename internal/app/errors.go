package service

import "errors"

// Sentinel kinds for collection errors. The HTTP layer maps these onto
// response statuses.
var (
	ErrUnknownSite      = errors.New("unknown site")
	ErrDomainNotAllowed = errors.New("domain not allowed")
	ErrStorage          = errors.New("storage failure")
	ErrNotStarted       = errors.New("service not started")
)
