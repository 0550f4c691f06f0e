package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on code so wrapped instances compare equal to the sentinels.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

var (
	ErrMedicineNotFound = &AppError{Code: "MED_001", Message: "medicine not found"}
	ErrAlreadyTaken     = &AppError{Code: "MED_002", Message: "medicine already taken"}
	ErrValidation       = &AppError{Code: "MED_003", Message: "invalid medicine data"}

	ErrNoReportData = &AppError{Code: "REPORT_001", Message: "no medicines data available to generate report"}

	ErrStore = &AppError{Code: "STORE_001", Message: "store operation failed"}

	ErrBadRequest = &AppError{Code: "GEN_001", Message: "bad request"}
	ErrInternal   = &AppError{Code: "GEN_002", Message: "internal error"}
)

func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}
