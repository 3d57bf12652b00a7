package model

import "time"

// ResponseMeta travels on every HTTP response, success or error, so callers
// can correlate a response with server logs via RequestID.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// APIResponse is the success envelope for every JSON endpoint.
type APIResponse struct {
	Data any          `json:"data"`
	Meta ResponseMeta `json:"meta"`
}

// ErrorDetail is the body of an APIError. Code is a stable machine-readable
// string derived from an apperr.Kind; Detail carries kind-specific structured
// data (e.g. the conflicting code on a conflict).
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// APIError is the error envelope for every JSON endpoint.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// Error codes surfaced to HTTP clients. These mirror apperr.Kind one-to-one
// (see server.writeAppError) plus two transport-only codes that never
// originate from apperr: ErrCodeUnauthorized and ErrCodeForbidden.
const (
	ErrCodeValidation     = "validation_error"
	ErrCodePolicyViolation = "policy_violation"
	ErrCodeDataInsufficient = "data_insufficient"
	ErrCodeSchemaInvalid  = "schema_validation_error"
	ErrCodeNotImplemented = "not_implemented"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeForbidden      = "forbidden"
)
