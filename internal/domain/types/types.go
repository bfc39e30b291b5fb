// Package types contains common types used across the application
package types

// Rejection kinds. Every non-200 outcome of the collection endpoint maps
// to exactly one of these; they label metrics and server-side logs.
const (
	KindMalformedPayload = "malformed_payload"
	KindValidationError  = "validation_error"
	KindUnknownSite      = "unknown_site"
	KindDomainNotAllowed = "domain_not_allowed"
	KindStorageFailure   = "storage_failure"
)
