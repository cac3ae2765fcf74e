package domain

import "fmt"

// DomainError is an error with a stable code that the HTTP layer maps to a
// status and the job runner records verbatim in FAILURE rows.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// Is matches any DomainError with the same code and message, so a wrapped
// sentinel still satisfies errors.Is against the bare sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code && t.Message == e.Message
}

// Wrap returns a copy of e carrying cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Err: cause}
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidJobKind       = NewDomainError(ErrCodeValidation, "invalid job kind")
	ErrInvalidJobState      = NewDomainError(ErrCodeValidation, "invalid job state")
	ErrInvalidDocumentID    = NewDomainError(ErrCodeValidation, "invalid document id")
	ErrInvalidProjectID     = NewDomainError(ErrCodeValidation, "invalid project id")
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrEmptyUpload          = NewDomainError(ErrCodeValidation, "uploaded file is empty")
)

// Not found errors
var (
	ErrProjectNotFound  = NewDomainError(ErrCodeNotFound, "project not found")
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrJobNotFound      = NewDomainError(ErrCodeNotFound, "job not found")
	ErrTestPlanNotFound = NewDomainError(ErrCodeNotFound, "no test plans yet")
	ErrBlobNotFound     = NewDomainError(ErrCodeNotFound, "document content not found")
)

// Already exists errors
var (
	ErrProjectAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "project already exists")
)

// Operation errors
var (
	ErrInvalidJobTransition = NewDomainError(ErrCodeInvalidOperation, "invalid job state transition")
	ErrStaleGeneration      = NewDomainError(ErrCodeInvalidOperation, "document was re-ingested by a newer job")
	ErrPlanParse            = NewDomainError(ErrCodeValidation, "parse error")
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
)
