package handlers

const (
	ErrInvalidRequestBody  = "Invalid request body"
	ErrUnauthorized        = "Unauthorized"
	ErrTooManyRequests     = "Too many requests. Please wait a moment and try again."
	ErrInternalServerError = "Internal server error"

	// maxBodyBytes caps JSON request bodies
	maxBodyBytes = 1 << 20
)
