// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
// Code is one of the domain error codes (VALIDATION_ERROR, NOT_FOUND, ...)
// or empty for transport-level failures.
type APIError struct {
	Code   string            `json:"code,omitempty"`
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
	Meta   map[string]any    `json:"meta,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// WithCode builds an error carrying a machine-readable code.
func WithCode(code, msg string) *APIError {
	return &APIError{Code: code, Detail: msg}
}

// NewValidation wraps multiple field errors.
func NewValidation(fields map[string]string) *APIError {
	return &APIError{Code: "VALIDATION_ERROR", Detail: "validation failed", Fields: fields}
}

// With attaches a metadata entry, e.g. the conflicting version.
func (e *APIError) With(key string, v any) *APIError {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = v
	return e
}
