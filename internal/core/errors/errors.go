package errors

const (
	HttpInternalError         = "internal_error"
	HttpInvalidJsonError      = "invalid_json"
	HttpInvalidRequestError   = "invalid_request"
	HttpInvalidCursorError    = "invalid_page_token"
	HttpDuplicateEventError   = "duplicate_event"
	HttpStoreUnavailableError = "store_unavailable"
	HttpTimeoutError          = "timeout"
)

// ErrorResponse is the error response body for every HTTP error.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
