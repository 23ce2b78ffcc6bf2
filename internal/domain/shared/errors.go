package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error that preserves the underlying cause
// for errors.Is/As chains while exposing a stable code and message
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidFormat       = NewDomainError("INVALID_FORMAT", "Input is not in the expected format")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrStateConflict       = NewDomainError("STATE_CONFLICT", "Operation not allowed in current state")
)

// Reconciliation and upstream-feed error codes. Handlers map these to
// transport status codes; reconciliation counts (ignored, notFound) are
// ordinary results and never use this taxonomy.
const (
	CodeReconciliationFailed = "RECONCILIATION_FAILED"
	CodeUpstreamUnreachable  = "UPSTREAM_UNREACHABLE"
	CodeUpstreamFormat       = "UPSTREAM_FORMAT"
)
