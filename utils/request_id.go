package utils

// RequestIDKey is the gin context key and response header carrying the request id.
const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)
