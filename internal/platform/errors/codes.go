// Package errors provides structured error handling with i18n support.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeNotFound reports a missing row for a point lookup or update.
	CodeNotFound Code = "NOT_FOUND"
	// CodeValidationRejected reports input that failed validation before any write.
	CodeValidationRejected Code = "VALIDATION_REJECTED"
	// CodeTransportFailure reports a failed remote call.
	CodeTransportFailure Code = "TRANSPORT_FAILURE"
	// CodeStaleRequest marks a result superseded by a newer request.
	CodeStaleRequest Code = "STALE_REQUEST"
	// CodeInvalidID reports a non-positive or sentinel id.
	CodeInvalidID Code = "INVALID_ID"
	// CodeInvalidReference reports a write pointing at a missing parent row.
	CodeInvalidReference Code = "INVALID_REFERENCE"
	// CodeLoadFailed reports a live query that failed while loading.
	CodeLoadFailed Code = "LOAD_FAILED"
	// CodeStorageFailure reports a failed write.
	CodeStorageFailure Code = "STORAGE_FAILURE"
)

// Retryable reports whether the operation may succeed if repeated unchanged.
func (c Code) Retryable() bool {
	switch c {
	case CodeTransportFailure, CodeLoadFailed, CodeStorageFailure:
		return true
	default:
		return false
	}
}
