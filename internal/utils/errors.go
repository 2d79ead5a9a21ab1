package utils

import (
	"fmt"

	"github.com/dl-alexandre/zsync/internal/types"
)

// Exit codes
const (
	ExitSuccess = 0
	// Auth errors (10-19)
	ExitAuthRequired = 10
	ExitAuthInvalid  = 12
	// Transfer errors (20-29)
	ExitUploadFailed = 20
	ExitDeleteFailed = 21
	ExitIndexFailed  = 22
	// Network errors (30-39)
	ExitNetworkError = 30
	ExitTimeout      = 31
	// Validation errors (40-49)
	ExitInvalidArgument = 40
	ExitInvalidPath     = 41
	ExitInvalidConfig   = 44
	// Interrupted by the user
	ExitCancelled = 130
	// Unknown
	ExitUnknown = 99
)

// Error codes (tool-owned, stable)
const (
	ErrCodeAuthRequired    = "AUTH_REQUIRED"
	ErrCodeAuthInvalid     = "AUTH_INVALID"
	ErrCodeConnection      = "CONNECTION_FAILED"
	ErrCodeUploadFailed    = "UPLOAD_FAILED"
	ErrCodeDeleteFailed    = "DELETE_FAILED"
	ErrCodeIndexFailed     = "INDEX_FAILED"
	ErrCodeNetworkError    = "NETWORK_ERROR"
	ErrCodeTimeout         = "TIMEOUT"
	ErrCodeInvalidArgument = "INVALID_ARGUMENT"
	ErrCodeInvalidPath     = "INVALID_PATH"
	ErrCodeInvalidConfig   = "INVALID_CONFIG"
	ErrCodeCancelled       = "CANCELLED"
	ErrCodeUnknown         = "UNKNOWN"
)

// CLIErrorBuilder helps construct CLIError instances
type CLIErrorBuilder struct {
	err types.CLIError
}

// NewCLIError creates a new error builder
func NewCLIError(code, message string) *CLIErrorBuilder {
	return &CLIErrorBuilder{
		err: types.CLIError{
			Code:    code,
			Message: message,
		},
	}
}

func (b *CLIErrorBuilder) WithReplyCode(code int) *CLIErrorBuilder {
	b.err.ReplyCode = code
	return b
}

func (b *CLIErrorBuilder) WithRetryable(retryable bool) *CLIErrorBuilder {
	b.err.Retryable = retryable
	return b
}

func (b *CLIErrorBuilder) WithContext(key string, value interface{}) *CLIErrorBuilder {
	if b.err.Context == nil {
		b.err.Context = make(map[string]interface{})
	}
	b.err.Context[key] = value
	return b
}

func (b *CLIErrorBuilder) Build() types.CLIError {
	return b.err
}

// GetExitCode returns the exit code for an error code
func GetExitCode(errorCode string) int {
	mapping := map[string]int{
		ErrCodeAuthRequired:    ExitAuthRequired,
		ErrCodeAuthInvalid:     ExitAuthInvalid,
		ErrCodeConnection:      ExitNetworkError,
		ErrCodeUploadFailed:    ExitUploadFailed,
		ErrCodeDeleteFailed:    ExitDeleteFailed,
		ErrCodeIndexFailed:     ExitIndexFailed,
		ErrCodeNetworkError:    ExitNetworkError,
		ErrCodeTimeout:         ExitTimeout,
		ErrCodeInvalidArgument: ExitInvalidArgument,
		ErrCodeInvalidPath:     ExitInvalidPath,
		ErrCodeInvalidConfig:   ExitInvalidConfig,
		ErrCodeCancelled:       ExitCancelled,
	}
	if code, ok := mapping[errorCode]; ok {
		return code
	}
	return ExitUnknown
}

// AppError is a custom error type that carries CLI error info
type AppError struct {
	CLIError types.CLIError
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.CLIError.Code, e.CLIError.Message)
}

// NewAppError creates an AppError from a CLIError
func NewAppError(cliErr types.CLIError) *AppError {
	return &AppError{CLIError: cliErr}
}
