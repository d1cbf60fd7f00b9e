// Package errors provides the standardized error type shared by the API
// client, the local stores and the loan workflows.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Validation (locally detected, blocks the request)
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeFileTooLarge     ErrorCode = "FILE_TOO_LARGE"
	ErrCodeInvalidStatus    ErrorCode = "INVALID_STATUS_TRANSITION"
	ErrCodeInvalidStep      ErrorCode = "INVALID_STEP"

	// Authentication
	ErrCodeAuthenticationRequired ErrorCode = "AUTHENTICATION_REQUIRED"
	ErrCodeAuthenticationFailed   ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeSessionExpired         ErrorCode = "SESSION_EXPIRED"

	// Network / backend
	ErrCodeNetwork      ErrorCode = "NETWORK_ERROR"
	ErrCodeAPI          ErrorCode = "API_ERROR"
	ErrCodeNotFound     ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeDecodeFailed ErrorCode = "RESPONSE_DECODE_FAILED"
	ErrCodeBusy         ErrorCode = "REQUEST_IN_FLIGHT"

	// Documents
	ErrCodeDocumentURLExpired ErrorCode = "DOCUMENT_URL_EXPIRED"
	ErrCodeUploadFailed       ErrorCode = "DOCUMENT_UPLOAD_FAILED"

	// Local storage
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"

	// Notifications
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Sentinels for errors.Is. Matching is by code only.
var (
	ErrValidationFailed       = &StandardError{Code: ErrCodeValidationFailed}
	ErrFileTooLarge           = &StandardError{Code: ErrCodeFileTooLarge}
	ErrSessionExpired         = &StandardError{Code: ErrCodeSessionExpired}
	ErrAuthenticationRequired = &StandardError{Code: ErrCodeAuthenticationRequired}
	ErrNotFound               = &StandardError{Code: ErrCodeNotFound}
	ErrBusy                   = &StandardError{Code: ErrCodeBusy}
	ErrDocumentURLExpired     = &StandardError{Code: ErrCodeDocumentURLExpired}
)

// StandardError represents a structured application error.
type StandardError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	StatusCode int                    `json:"statusCode,omitempty"`
	Retryable  bool                   `json:"retryable"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	cause      error
}

func (e *StandardError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("StandardError[%s %d]: %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is matches any *StandardError carrying the same code.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns e after recording key=value in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ValidationErrors returns the error list attached to a validation failure.
func (e *StandardError) ValidationErrors() []string {
	if e.Metadata == nil {
		return nil
	}
	list, _ := e.Metadata["errors"].([]string)
	return list
}

// As is a thin alias so callers don't need both errors packages imported.
func As(err error) (*StandardError, bool) {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Is forwards to the standard library.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationFailedError carries the full list of validation messages.
func NewValidationFailedError(errs []string) *StandardError {
	details := ""
	if len(errs) > 0 {
		details = errs[0]
		if len(errs) > 1 {
			details = fmt.Sprintf("%s (and %d more)", errs[0], len(errs)-1)
		}
	}
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Application data validation failed",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"errors": errs},
		Timestamp: time.Now().UTC(),
	}
}

func NewFileTooLargeError(slot string, size, limit int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeFileTooLarge,
		Message:   "File exceeds the local storage size limit",
		Details:   fmt.Sprintf("slot: %s, size: %d, limit: %d", slot, size, limit),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidStatusTransitionError(from, to string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidStatus,
		Message:   "Status change not allowed",
		Details:   fmt.Sprintf("from: %s, to: %s", from, to),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidStepError(step int) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidStep,
		Message:   "Unknown form step",
		Details:   fmt.Sprintf("step: %d", step),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationRequiredError() *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthenticationRequired,
		Message:   "Authentication required",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationFailedError(details string, status int) *StandardError {
	return &StandardError{
		Code:       ErrCodeAuthenticationFailed,
		Message:    "Login failed",
		Details:    details,
		StatusCode: status,
		Retryable:  false,
		Timestamp:  time.Now().UTC(),
	}
}

// NewSessionExpiredError is terminal: the caller must log in again.
func NewSessionExpiredError(details string) *StandardError {
	return &StandardError{
		Code:       ErrCodeSessionExpired,
		Message:    "Session expired. Please log in again.",
		Details:    details,
		StatusCode: 401,
		Retryable:  false,
		Timestamp:  time.Now().UTC(),
	}
}

func NewNetworkError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNetwork,
		Message:   "Network error contacting the loan service",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewAPIError carries the normalized, human-readable backend message.
func NewAPIError(status int, message string) *StandardError {
	code := ErrCodeAPI
	if status == 404 {
		code = ErrCodeNotFound
	}
	if message == "" {
		message = "API error"
	}
	return &StandardError{
		Code:       code,
		Message:    message,
		StatusCode: status,
		Retryable:  status >= 500 || status == 429,
		Timestamp:  time.Now().UTC(),
	}
}

func NewDecodeError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDecodeFailed,
		Message:   "Unexpected response from the loan service",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewBusyError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBusy,
		Message:   "Request already in progress",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewDocumentURLExpiredError(slot string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDocumentURLExpired,
		Message:   "Document preview unavailable",
		Details:   fmt.Sprintf("slot: %s", slot),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUploadFailedError(applicationID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUploadFailed,
		Message:   "Document upload failed",
		Details:   fmt.Sprintf("applicationId: %s, error: %s", applicationID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewStorageError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorage,
		Message:   "Local storage operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Classification
// ==========================

// Category groups codes into the five handling classes.
type Category string

const (
	CategoryValidation     Category = "validation"
	CategoryAuthentication Category = "authentication"
	CategoryNetwork        Category = "network"
	CategoryDocument       Category = "document"
	CategoryStorage        Category = "storage"
	CategoryInternal       Category = "internal"
)

// GetErrorCategory classifies a code.
func GetErrorCategory(code ErrorCode) Category {
	switch code {
	case ErrCodeValidationFailed, ErrCodeFileTooLarge, ErrCodeInvalidStatus, ErrCodeInvalidStep:
		return CategoryValidation
	case ErrCodeAuthenticationRequired, ErrCodeAuthenticationFailed, ErrCodeSessionExpired:
		return CategoryAuthentication
	case ErrCodeNetwork, ErrCodeAPI, ErrCodeNotFound, ErrCodeDecodeFailed, ErrCodeBusy,
		ErrCodeUploadFailed, ErrCodeNotificationSendFailed:
		return CategoryNetwork
	case ErrCodeDocumentURLExpired:
		return CategoryDocument
	case ErrCodeStorage:
		return CategoryStorage
	default:
		return CategoryInternal
	}
}

// CategoryOf classifies any error; non-standard errors are internal.
func CategoryOf(err error) Category {
	if se, ok := As(err); ok {
		return GetErrorCategory(se.Code)
	}
	return CategoryInternal
}

// GetRetryCount returns how many times a user-initiated retry is worth
// attempting automatically for the code. Zero means surface immediately.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeNetwork:
		return 3
	case ErrCodeAPI, ErrCodeUploadFailed, ErrCodeNotificationSendFailed:
		return 2
	case ErrCodeBusy:
		return 1
	default:
		return 0
	}
}
