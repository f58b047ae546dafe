package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a classified stage error.
type ErrorCode string

const (
	ErrCodeInvalidConfig    ErrorCode = "invalid_configuration"
	ErrCodeInvalidInput     ErrorCode = "invalid_input"
	ErrCodeNotFound         ErrorCode = "not_found"
	ErrCodeContextCancelled ErrorCode = "context_cancelled"
	ErrCodeExportFailed     ErrorCode = "export_failed"
	ErrCodeUnavailable      ErrorCode = "store_unavailable"
	ErrCodeProcessing       ErrorCode = "processing_error"
)

// StageError is a structured error for a failed stage.
type StageError struct {
	Code    ErrorCode
	Stage   string
	Message string
	Cause   error
}

func (e *StageError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// ClassifyError inspects err and returns a *StageError with the matching code.
// Errors that match nothing known are classified as ErrCodeProcessing.
func ClassifyError(err error, stage string) *StageError {
	if err == nil {
		return nil
	}

	var se *StageError
	if errors.As(err, &se) {
		return se
	}

	se = &StageError{
		Stage:   stage,
		Message: err.Error(),
		Cause:   err,
	}

	switch {
	case IsInvalidConfig(err):
		se.Code = ErrCodeInvalidConfig
		return se
	case IsValidation(err):
		se.Code = ErrCodeInvalidInput
		return se
	case IsNotFound(err):
		se.Code = ErrCodeNotFound
		return se
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		se.Code = ErrCodeContextCancelled
		return se
	}

	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host") || strings.Contains(lower, "i/o timeout") {
		se.Code = ErrCodeUnavailable
		return se
	}

	se.Code = ErrCodeProcessing
	return se
}

// Describe returns the registry entry for the code of err, if it is classified.
func Describe(err error) (ErrorCodeInfo, bool) {
	var se *StageError
	if !errors.As(err, &se) {
		return ErrorCodeInfo{}, false
	}
	info, ok := ErrorCodeRegistry[se.Code]
	return info, ok
}
