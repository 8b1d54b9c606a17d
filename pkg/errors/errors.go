package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an application error for transport mapping.
type ErrorCode int

const (
	// ErrUnauthenticated covers every token or credential failure. The
	// specific cause is carried in Err for logs but never shown to callers.
	ErrUnauthenticated ErrorCode = iota + 1000
	ErrForbidden
	// ErrDeclined is a named business-rule violation; Reason holds a stable
	// code the caller can branch on.
	ErrDeclined
	ErrConflict
	ErrNotFound
	ErrInternal
)

// Stable reason codes for declined operations.
const (
	ReasonUserNotFound         = "user_not_found"
	ReasonInstitutionInvalid   = "institution_invalid"
	ReasonNoPharmacyAssigned   = "pharmacy_assignment_not_found"
	ReasonNotMedicalPractice   = "user_not_in_medical_practice"
	ReasonMedicationInvalid    = "medication_invalid"
	ReasonTimeStatementInvalid = "time_statement_invalid"
	ReasonAlreadyApproved      = "already_approved"
	ReasonBloodworkIncomplete  = "bloodwork_incomplete"
	ReasonWrongInstitution     = "wrong_institution"
	ReasonAlreadyIssued        = "already_issued"
	ReasonNotApproved          = "not_approved"
	ReasonAlreadyCompleted     = "already_completed"
	ReasonInvalidPermissions   = "permissions_invalid"
	ReasonInvalidRoles         = "roles_invalid"
	ReasonRegistrationInvalid  = "registration_invalid"
	ReasonAlreadyExists        = "already_exists"
)

// AppError is the error type every service returns across its boundary.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Reason  string    `json:"reason,omitempty"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Unauthenticated collapses all token and credential failures to one
// externally visible outcome.
func Unauthenticated(err error) *AppError {
	return &AppError{Code: ErrUnauthenticated, Message: "unauthenticated", Err: err}
}

func Forbidden(message string) *AppError {
	if message == "" {
		message = "permission denied"
	}
	return &AppError{Code: ErrForbidden, Message: message}
}

// Declined reports a business-rule violation with a stable reason code.
func Declined(reason, message string) *AppError {
	return &AppError{Code: ErrDeclined, Reason: reason, Message: message}
}

// Conflict reports a duplicate or already-performed action with a stable
// reason code.
func Conflict(reason, message string) *AppError {
	return &AppError{Code: ErrConflict, Reason: reason, Message: message}
}

func NotFound(resource string) *AppError {
	return &AppError{Code: ErrNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

// Internal wraps a storage or infrastructure failure. Callers surface it as
// a retryable condition, never as success.
func Internal(err error) *AppError {
	return &AppError{Code: ErrInternal, Message: "internal error, try again", Err: err}
}

// CodeOf extracts the ErrorCode from an error chain, defaulting to
// ErrInternal for unclassified errors.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// ReasonOf extracts the declined reason from an error chain, if any.
func ReasonOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ""
}
