package handlers

// Error codes carried in ErrorResponse.Code. Clients branch on these rather
// than on messages.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeCheckFailed      = "check_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeBlockFailed      = "block_failed"
	ErrCodeTokenUnavailable = "token_unavailable"
	ErrCodeHoneypotPinned   = "honeypot_pinned"
)
