package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrorCode represents machine-readable error codes
type ErrorCode string

const (
	// General error codes
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeBadRequest      ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeRateLimited     ErrorCode = "RATE_LIMITED"
	ErrCodeRequestTooLarge ErrorCode = "REQUEST_TOO_LARGE"

	// Request error codes
	ErrCodeInvalidJSON  ErrorCode = "INVALID_JSON"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// Decision error codes
	ErrCodeUnknownFeature   ErrorCode = "UNKNOWN_FEATURE"
	ErrCodeEvalError        ErrorCode = "EVAL_ERROR"
	ErrCodeNotDynamicConfig ErrorCode = "NOT_DYNAMIC_CONFIG"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error     string            `json:"error"`                // HTTP status text
	Message   string            `json:"message"`              // Human-readable description
	Code      ErrorCode         `json:"code"`                 // Machine-readable error code
	Fields    map[string]string `json:"fields,omitempty"`     // Field-level errors
	RequestID string            `json:"request_id,omitempty"` // Request ID for debugging
}

// NewErrorResponse creates a new error response
func NewErrorResponse(statusCode int, code ErrorCode, message string) *ErrorResponse {
	return &ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    code,
	}
}

// WithFields adds field-level errors to the response
func (e *ErrorResponse) WithFields(fields map[string]string) *ErrorResponse {
	e.Fields = fields
	return e
}

// writeErrorResponse writes a structured error response to the http response writer
func writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, errResp *ErrorResponse) {
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		errResp.RequestID = reqID
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errResp)
}

// BadRequestError creates a bad request error response
func BadRequestError(w http.ResponseWriter, r *http.Request, code ErrorCode, message string) {
	writeErrorResponse(w, r, http.StatusBadRequest, NewErrorResponse(http.StatusBadRequest, code, message))
}

// MissingFieldError reports a required request field that was not supplied
func MissingFieldError(w http.ResponseWriter, r *http.Request, field, message string) {
	errResp := NewErrorResponse(http.StatusBadRequest, ErrCodeMissingField, "Missing required field").
		WithFields(map[string]string{field: message})
	writeErrorResponse(w, r, http.StatusBadRequest, errResp)
}

// NotFoundError creates a not found error response
func NotFoundError(w http.ResponseWriter, r *http.Request, code ErrorCode, message string) {
	writeErrorResponse(w, r, http.StatusNotFound, NewErrorResponse(http.StatusNotFound, code, message))
}

// EvalErrorResponse reports a context the decision makers could not evaluate
func EvalErrorResponse(w http.ResponseWriter, r *http.Request, message string) {
	writeErrorResponse(w, r, http.StatusUnprocessableEntity,
		NewErrorResponse(http.StatusUnprocessableEntity, ErrCodeEvalError, message))
}

// InternalError creates an internal server error response
func InternalError(w http.ResponseWriter, r *http.Request, message string) {
	writeErrorResponse(w, r, http.StatusInternalServerError,
		NewErrorResponse(http.StatusInternalServerError, ErrCodeInternal, message))
}

// RequestTooLargeError creates a request entity too large error response
func RequestTooLargeError(w http.ResponseWriter, r *http.Request, message string) {
	writeErrorResponse(w, r, http.StatusRequestEntityTooLarge,
		NewErrorResponse(http.StatusRequestEntityTooLarge, ErrCodeRequestTooLarge, message))
}

// RateLimitedError is installed as the rate limiter's rejection handler
func RateLimitedError(w http.ResponseWriter, r *http.Request) {
	writeErrorResponse(w, r, http.StatusTooManyRequests,
		NewErrorResponse(http.StatusTooManyRequests, ErrCodeRateLimited, "Rate limit exceeded, retry later"))
}
