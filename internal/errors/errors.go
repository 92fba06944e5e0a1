package errors

import "fmt"

// ErrorCode represents a store error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrImportUnreadable ErrorCode = "IMPORT_UNREADABLE" // 422
	ErrTierUnavailable  ErrorCode = "TIER_UNAVAILABLE"  // 503
	ErrEmbeddingFailed  ErrorCode = "EMBEDDING_FAILED"  // 502
	ErrCancelled        ErrorCode = "CANCELLED"         // 499
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// StoreError represents a structured error with code, status, and details.
type StoreError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *StoreError {
	return &StoreError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing record.
func NewNotFound(identifier string) *StoreError {
	return &StoreError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("record not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewImportUnreadable creates a 422 error for an import document that
// cannot be parsed at all. Per-record failures inside a readable document
// are skipped and counted instead of raising this.
func NewImportUnreadable(err error) *StoreError {
	msg := "import document is unreadable"
	if err != nil {
		msg = fmt.Sprintf("import document is unreadable: %v", err)
	}
	return &StoreError{
		Code:    ErrImportUnreadable,
		Status:  422,
		Message: msg,
	}
}

// NewTierUnavailable creates a 503 error for a storage tier I/O failure.
// Callers usually log this and degrade to the remaining tiers.
func NewTierUnavailable(tier string, err error) *StoreError {
	return &StoreError{
		Code:    ErrTierUnavailable,
		Status:  503,
		Message: fmt.Sprintf("tier %q unavailable: %v", tier, err),
		Details: map[string]any{"tier": tier},
	}
}

// NewEmbeddingFailed creates a 502 error for an external embedding or
// generation call failure.
func NewEmbeddingFailed(err error) *StoreError {
	msg := "embedding service call failed"
	if err != nil {
		msg = fmt.Sprintf("embedding service call failed: %v", err)
	}
	return &StoreError{
		Code:    ErrEmbeddingFailed,
		Status:  502,
		Message: msg,
	}
}

// NewCancelled creates a 499 error for a caller-cancelled operation.
func NewCancelled(operation string) *StoreError {
	return &StoreError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("operation cancelled: %s", operation),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *StoreError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &StoreError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a StoreError with the given code.
func Is(err error, code ErrorCode) bool {
	if sErr, ok := err.(*StoreError); ok {
		return sErr.Code == code
	}
	return false
}
