// Package contextutils provides error handling utilities and standardized error types
// for consistent error management across the translation service.
package contextutils

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a standardized error code for API responses
type ErrorCode string

const (
	// Storage error codes

	// ErrorCodeStorage indicates that a repository read or write failed
	ErrorCodeStorage ErrorCode = "STORAGE_ERROR"
	// ErrorCodeDatabaseConnection indicates a database connection error
	ErrorCodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION_ERROR"
	// ErrorCodeDatabaseQuery indicates a database query error
	ErrorCodeDatabaseQuery ErrorCode = "DATABASE_QUERY_ERROR"
	// ErrorCodeRecordNotFound indicates that a requested record was not found
	ErrorCodeRecordNotFound ErrorCode = "RECORD_NOT_FOUND"

	// Validation error codes

	// ErrorCodeInvalidInput indicates that the provided input is invalid
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrorCodeMissingRequired indicates that a required field is missing
	ErrorCodeMissingRequired ErrorCode = "MISSING_REQUIRED_FIELD"
	// ErrorCodeInvalidFormat indicates that the input format is invalid
	ErrorCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	// ErrorCodeValidationFailed indicates that validation has failed
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Authentication error codes

	// ErrorCodeUnauthorized indicates that the caller is not authorized
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrorCodeInvalidCredentials indicates that the provided credentials are invalid
	ErrorCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"

	// Service error codes

	// ErrorCodeServiceUnavailable indicates that the service is temporarily unavailable
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrorCodeTimeout indicates that a request has timed out
	ErrorCodeTimeout ErrorCode = "REQUEST_TIMEOUT"
	// ErrorCodeRateLimit indicates that the rate limit has been exceeded
	ErrorCodeRateLimit ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrorCodeInternalError indicates an internal server error
	ErrorCodeInternalError ErrorCode = "INTERNAL_SERVER_ERROR"

	// Provider error codes

	// ErrorCodeProviderUnavailable indicates that the translation provider is unavailable
	ErrorCodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	// ErrorCodeProviderRequestFailed indicates that a provider request failed
	ErrorCodeProviderRequestFailed ErrorCode = "PROVIDER_REQUEST_FAILED"
	// ErrorCodeProviderResponseInvalid indicates that the provider answered with something unusable
	ErrorCodeProviderResponseInvalid ErrorCode = "PROVIDER_RESPONSE_INVALID"
	// ErrorCodeProviderNotConfigured indicates that the provider has no credentials
	ErrorCodeProviderNotConfigured ErrorCode = "PROVIDER_NOT_CONFIGURED"
	// ErrorCodeContentRejected indicates that the provider refused the content
	ErrorCodeContentRejected ErrorCode = "CONTENT_REJECTED"
)

// SeverityLevel represents the severity of an error for logging and monitoring
type SeverityLevel string

const (
	// SeverityDebug indicates debug-level errors for development
	SeverityDebug SeverityLevel = "debug"
	// SeverityInfo indicates informational errors
	SeverityInfo SeverityLevel = "info"
	// SeverityWarn indicates warning-level errors
	SeverityWarn SeverityLevel = "warn"
	// SeverityError indicates error-level issues
	SeverityError SeverityLevel = "error"
	// SeverityFatal indicates fatal errors that require immediate attention
	SeverityFatal SeverityLevel = "fatal"
)

// AppError represents a structured error with code, severity, and context
type AppError struct {
	Code     ErrorCode
	Severity SeverityLevel
	Message  string
	Details  string
	Cause    error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison for errors.Is
func (e *AppError) Is(target error) bool {
	if appErr, ok := target.(*AppError); ok {
		return e.Code == appErr.Code
	}
	return false
}

// Error types for consistent error handling with associated codes and severity
var (
	// Storage errors
	ErrStorage = &AppError{
		Code:     ErrorCodeStorage,
		Severity: SeverityError,
		Message:  "Storage operation failed",
	}

	ErrDatabaseConnection = &AppError{
		Code:     ErrorCodeDatabaseConnection,
		Severity: SeverityError,
		Message:  "Database connection failed",
	}

	ErrDatabaseQuery = &AppError{
		Code:     ErrorCodeDatabaseQuery,
		Severity: SeverityError,
		Message:  "Database query failed",
	}

	ErrRecordNotFound = &AppError{
		Code:     ErrorCodeRecordNotFound,
		Severity: SeverityInfo,
		Message:  "Record not found",
	}

	// Validation errors
	ErrInvalidInput = &AppError{
		Code:     ErrorCodeInvalidInput,
		Severity: SeverityWarn,
		Message:  "Invalid input",
	}

	ErrMissingRequired = &AppError{
		Code:     ErrorCodeMissingRequired,
		Severity: SeverityWarn,
		Message:  "Missing required field",
	}

	ErrInvalidFormat = &AppError{
		Code:     ErrorCodeInvalidFormat,
		Severity: SeverityWarn,
		Message:  "Invalid format",
	}

	ErrValidationFailed = &AppError{
		Code:     ErrorCodeValidationFailed,
		Severity: SeverityWarn,
		Message:  "Validation failed",
	}

	// Authentication errors
	ErrUnauthorized = &AppError{
		Code:     ErrorCodeUnauthorized,
		Severity: SeverityWarn,
		Message:  "Unauthorized",
	}

	ErrInvalidCredentials = &AppError{
		Code:     ErrorCodeInvalidCredentials,
		Severity: SeverityWarn,
		Message:  "Invalid credentials",
	}

	// Service errors
	ErrServiceUnavailable = &AppError{
		Code:     ErrorCodeServiceUnavailable,
		Severity: SeverityError,
		Message:  "Service unavailable",
	}

	ErrTimeout = &AppError{
		Code:     ErrorCodeTimeout,
		Severity: SeverityWarn,
		Message:  "Request timeout",
	}

	ErrRateLimit = &AppError{
		Code:     ErrorCodeRateLimit,
		Severity: SeverityWarn,
		Message:  "Rate limit exceeded",
	}

	ErrInternalError = &AppError{
		Code:     ErrorCodeInternalError,
		Severity: SeverityError,
		Message:  "Internal server error",
	}

	// Provider errors
	ErrProviderUnavailable = &AppError{
		Code:     ErrorCodeProviderUnavailable,
		Severity: SeverityError,
		Message:  "Translation provider unavailable",
	}

	ErrProviderRequestFailed = &AppError{
		Code:     ErrorCodeProviderRequestFailed,
		Severity: SeverityError,
		Message:  "Translation request failed",
	}

	ErrProviderResponseInvalid = &AppError{
		Code:     ErrorCodeProviderResponseInvalid,
		Severity: SeverityError,
		Message:  "Translation provider response invalid",
	}

	ErrProviderNotConfigured = &AppError{
		Code:     ErrorCodeProviderNotConfigured,
		Severity: SeverityWarn,
		Message:  "API Key not configured",
	}

	ErrContentRejected = &AppError{
		Code:     ErrorCodeContentRejected,
		Severity: SeverityWarn,
		Message:  "Content rejected by provider",
	}
)

// NewAppError creates a new AppError with the specified code, severity, message and details
func NewAppError(code ErrorCode, severity SeverityLevel, message, details string) *AppError {
	return &AppError{
		Code:     code,
		Severity: severity,
		Message:  message,
		Details:  details,
	}
}

// NewAppErrorWithCause creates a new AppError with an underlying cause
func NewAppErrorWithCause(code ErrorCode, severity SeverityLevel, message, details string, cause error) *AppError {
	return &AppError{
		Code:     code,
		Severity: severity,
		Message:  message,
		Details:  details,
		Cause:    cause,
	}
}

// Newf returns a fresh error of the same kind as base with a formatted message
func Newf(base *AppError, format string, args ...interface{}) error {
	return &AppError{
		Code:     base.Code,
		Severity: base.Severity,
		Message:  fmt.Sprintf(format, args...),
	}
}

// wrap keeps the code and severity of an AppError, anything else becomes INTERNAL
func wrap(err error, message string, cause error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:     appErr.Code,
			Severity: appErr.Severity,
			Message:  message,
			Details:  err.Error(),
			Cause:    cause,
		}
	}
	return &AppError{
		Code:     ErrorCodeInternalError,
		Severity: SeverityError,
		Message:  message,
		Details:  err.Error(),
		Cause:    cause,
	}
}

// WrapError wraps an error with additional context, preserving AppError structure if possible
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return wrap(err, message, err)
}

// WrapErrorf is WrapError with a format string. A %w verb keeps the
// formatted chain inspectable with errors.Is.
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if strings.Contains(format, "%w") {
		wrapped := fmt.Errorf(format, args...)
		return wrap(err, wrapped.Error(), wrapped)
	}
	return wrap(err, fmt.Sprintf(format, args...), err)
}

// FromContext turns an expired deadline into ErrTimeout. Cancellation is
// returned unchanged since a cancelled translation is not a failure.
func FromContext(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return WrapErrorf(ErrTimeout, "translation provider did not answer in time: %w", err)
	case ctx.Err() != nil:
		return ctx.Err()
	}
	return err
}

// AsError attempts to convert an error to an AppError
func AsError(err error, target **AppError) bool {
	return errors.As(err, target)
}

// GetErrorCode returns the error code from an error if it's an AppError, otherwise returns a default code
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrorCodeInternalError
}

// IsRetryable reports whether the user may simply try the same translation again
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case ErrorCodeTimeout, ErrorCodeServiceUnavailable, ErrorCodeDatabaseConnection,
			ErrorCodeProviderUnavailable, ErrorCodeRateLimit:
			return appErr.Severity != SeverityFatal
		}
	}
	return false
}

// genericUserMessage is shown when an error carries nothing fit for the user
const genericUserMessage = "Translation failed. Please try again."

// userMessages maps each code to the message of its sentinel
var userMessages = func() map[ErrorCode]string {
	m := make(map[ErrorCode]string)
	for _, e := range []*AppError{
		ErrStorage, ErrDatabaseConnection, ErrDatabaseQuery, ErrRecordNotFound,
		ErrInvalidInput, ErrMissingRequired, ErrInvalidFormat, ErrValidationFailed,
		ErrUnauthorized, ErrInvalidCredentials,
		ErrServiceUnavailable, ErrTimeout, ErrRateLimit,
		ErrProviderUnavailable, ErrProviderRequestFailed, ErrProviderResponseInvalid,
		ErrProviderNotConfigured, ErrContentRejected,
	} {
		m[e.Code] = e.Message
	}
	return m
}()

// UserMessage returns the short, human readable message for an error as shown next to
// the translation output. Text of plain errors (transport, parsing) never leaks
// through: an AppError that wraps one is described by its code.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return genericUserMessage
	}
	// The innermost message names the problem, outer ones carry call-site context
	for {
		var next *AppError
		if appErr.Cause == nil || !errors.As(appErr.Cause, &next) {
			break
		}
		appErr = next
	}
	if appErr.Cause == nil {
		return appErr.Message
	}
	if msg, ok := userMessages[appErr.Code]; ok {
		return msg
	}
	return genericUserMessage
}

// ToJSON converts an AppError to a JSON-serializable structure for API responses
func (e *AppError) ToJSON() map[string]interface{} {
	result := map[string]interface{}{
		"code":     string(e.Code),
		"message":  e.Message,
		"severity": string(e.Severity),
		"error":    e.Message,
	}

	if e.Details != "" {
		result["details"] = e.Details
	}

	result["retryable"] = IsRetryable(e)

	if e.Cause != nil {
		switch e.Severity {
		case SeverityError, SeverityFatal:
			result["cause"] = e.Cause.Error()
		}
	}

	return result
}

// ContextKey represents a context key type for passing values through context
type ContextKey string

const (
	// SessionIDKey is used to store the translator session id in context
	SessionIDKey ContextKey = "sessionID"
)

// GetSessionIDFromContext extracts the session id from context, returning "" if not found
func GetSessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(SessionIDKey).(string); ok {
		return id
	}
	return ""
}

// WithSessionID returns a new context with the session id set
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}
