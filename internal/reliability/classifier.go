package reliability

// IsRetryableHTTPStatus classifies upstream HTTP status codes that are worth
// retrying against a fallback model.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
