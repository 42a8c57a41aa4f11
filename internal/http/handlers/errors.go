// HTTP-layer error codes used across all API endpoints. Codes are lowercase
// snake_case and stable; clients branch on them programmatically while the
// message field stays free-form.

package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeInvalidState     = "invalid_state"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeExtractionFailed = "extraction_failed"
	ErrCodeUpstream         = "upstream_error"
)
