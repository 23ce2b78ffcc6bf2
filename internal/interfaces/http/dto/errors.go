package dto

import "net/http"

// Error codes exposed on the wire. Domain errors already carry these
// codes, so handlers pass them through without translation.

// General error codes
const (
	// CodeInternal is used for internal server errors
	CodeInternal = "INTERNAL_ERROR"
	// CodeBadRequest is used for malformed requests
	CodeBadRequest = "BAD_REQUEST"
	// CodeValidationFailed is used when request binding or validation fails
	CodeValidationFailed = "VALIDATION_FAILED"
)

// Input error codes
const (
	// CodeInvalidInput is used for input that is well-formed but unacceptable
	CodeInvalidInput = "INVALID_INPUT"
	// CodeInvalidFormat is used for input that cannot be parsed at all
	CodeInvalidFormat = "INVALID_FORMAT"
	// CodeRequestTooLarge is used when the request body exceeds the limit
	CodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// Field-specific input error codes raised by the domain layer
const (
	// CodeInvalidSerial is used for empty or unusable terminal serials
	CodeInvalidSerial = "INVALID_SERIAL"
	// CodeInvalidStatus is used for unknown terminal lifecycle statuses
	CodeInvalidStatus = "INVALID_STATUS"
	// CodeInvalidAmount is used for unparseable payment amounts
	CodeInvalidAmount = "INVALID_AMOUNT"
	// CodeInvalidReceiptRef is used for empty or unusable receipt references
	CodeInvalidReceiptRef = "INVALID_RECEIPT_REF"
)

// Authentication error codes
const (
	// CodeUnauthorized is used when authentication is required but missing
	CodeUnauthorized = "UNAUTHORIZED"
	// CodeForbidden is used when the caller lacks permission
	CodeForbidden = "FORBIDDEN"
	// CodeInvalidCredentials is used when a login attempt fails
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	// CodeTokenExpired is used when the auth token has expired
	CodeTokenExpired = "TOKEN_EXPIRED"
	// CodeTokenInvalid is used when the auth token is malformed or forged
	CodeTokenInvalid = "TOKEN_INVALID"
	// CodeTokenRevoked is used when the auth token has been revoked
	CodeTokenRevoked = "TOKEN_REVOKED"
	// CodeTokenMaxRefresh is used when a refresh chain is exhausted
	CodeTokenMaxRefresh = "TOKEN_MAX_REFRESH"
)

// Resource error codes
const (
	// CodeNotFound is used when a resource is not found
	CodeNotFound = "NOT_FOUND"
	// CodeAlreadyExists is used when trying to create a duplicate resource
	CodeAlreadyExists = "ALREADY_EXISTS"
	// CodeStateConflict is used when an operation is invalid for the
	// terminal's current lifecycle state
	CodeStateConflict = "STATE_CONFLICT"
	// CodeConcurrencyConflict is used when optimistic locking fails
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
)

// Reconciliation and upstream feed error codes
const (
	// CodeReconciliationFailed is used when a reconciliation batch rolls back
	CodeReconciliationFailed = "RECONCILIATION_FAILED"
	// CodeUpstreamUnreachable is used when the payment feed cannot be reached
	CodeUpstreamUnreachable = "UPSTREAM_UNREACHABLE"
	// CodeUpstreamFormat is used when the payment feed returns garbage
	CodeUpstreamFormat = "UPSTREAM_FORMAT"
)

// Rate limiting error codes
const (
	// CodeRateLimitExceeded is used when the per-client rate limit is hit
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	CodeInternal:         http.StatusInternalServerError,
	CodeBadRequest:       http.StatusBadRequest,
	CodeValidationFailed: http.StatusBadRequest,

	// Input errors -> 400 Bad Request
	CodeInvalidInput:      http.StatusBadRequest,
	CodeInvalidFormat:     http.StatusBadRequest,
	CodeInvalidSerial:     http.StatusBadRequest,
	CodeInvalidStatus:     http.StatusBadRequest,
	CodeInvalidAmount:     http.StatusBadRequest,
	CodeInvalidReceiptRef: http.StatusBadRequest,
	CodeRequestTooLarge:   http.StatusRequestEntityTooLarge,

	// Auth errors
	CodeUnauthorized:       http.StatusUnauthorized,
	CodeForbidden:          http.StatusForbidden,
	CodeInvalidCredentials: http.StatusUnauthorized,
	CodeTokenExpired:       http.StatusUnauthorized,
	CodeTokenInvalid:       http.StatusUnauthorized,
	CodeTokenRevoked:       http.StatusUnauthorized,
	CodeTokenMaxRefresh:    http.StatusUnauthorized,

	// Resource errors
	CodeNotFound:            http.StatusNotFound,
	CodeAlreadyExists:       http.StatusConflict,
	CodeStateConflict:       http.StatusConflict,
	CodeConcurrencyConflict: http.StatusConflict,

	// Reconciliation rollback is a server-side failure; upstream feed
	// problems surface as bad gateway
	CodeReconciliationFailed: http.StatusInternalServerError,
	CodeUpstreamUnreachable:  http.StatusBadGateway,
	CodeUpstreamFormat:       http.StatusBadGateway,

	// Rate limiting -> 429 Too Many Requests
	CodeRateLimitExceeded: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
