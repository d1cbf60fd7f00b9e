package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// Logger is the subset of logger.Logger the handler needs.
type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Notice is what the user sees for a failed operation.
type Notice struct {
	Category  Category
	Code      ErrorCode
	Message   string
	Lines     []string
	Retryable bool
}

func (n Notice) String() string {
	if len(n.Lines) == 0 {
		return n.Message
	}
	return n.Message + ":\n  - " + strings.Join(n.Lines, "\n  - ")
}

type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle normalizes err, logs it once with its category and returns the
// user-facing notice.
func (h *ErrorHandler) Handle(operation string, err error) Notice {
	stdErr := h.normalizeError(err)
	category := GetErrorCategory(stdErr.Code)

	notice := Notice{
		Category:  category,
		Code:      stdErr.Code,
		Message:   stdErr.Message,
		Retryable: stdErr.Retryable,
	}

	switch category {
	case CategoryValidation:
		notice.Lines = stdErr.ValidationErrors()
	case CategoryAuthentication:
		if stdErr.Code == ErrCodeSessionExpired {
			notice.Message = "Your session has expired. Please log in again."
		}
	case CategoryNetwork:
		if stdErr.Retryable {
			notice.Message = fmt.Sprintf("%s. Your changes are kept; try again.", strings.TrimSuffix(stdErr.Message, "."))
		}
	}

	h.logError(operation, stdErr, category)
	return notice
}

func (h *ErrorHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := As(err); ok {
		return stdErr
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return &StandardError{
			Code:      ErrCodeNetwork,
			Message:   "The loan service did not respond in time",
			Details:   err.Error(),
			Retryable: true,
			Timestamp: time.Now().UTC(),
			cause:     err,
		}
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func (h *ErrorHandler) logError(operation string, stdErr *StandardError, category Category) {
	if h.logger == nil {
		return
	}
	fields := map[string]interface{}{
		"operation":     operation,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"retries":       GetRetryCount(stdErr.Code),
		"errorCategory": string(category),
	}
	if stdErr.StatusCode != 0 {
		fields["statusCode"] = stdErr.StatusCode
	}

	// Validation failures are user input, not faults.
	if category == CategoryValidation {
		h.logger.Warn("Operation rejected", fields)
		return
	}
	h.logger.Error("Operation failed", fields)
}
