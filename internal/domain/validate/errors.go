package validate

import "errors"

// Sentinel kinds for validation errors.
var (
	ErrMalformedBody = errors.New("malformed event body")
)
