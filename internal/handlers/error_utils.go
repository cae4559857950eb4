package handlers

import (
	"fmt"
	"net/http"

	"borneo/internal/middleware"
	contextutils "borneo/internal/utils"

	"github.com/gin-gonic/gin"
)

// statusCodes is the error code reported for a bare HTTP status
var statusCodes = map[int]contextutils.ErrorCode{
	http.StatusBadRequest:            contextutils.ErrorCodeInvalidInput,
	http.StatusUnauthorized:          contextutils.ErrorCodeUnauthorized,
	http.StatusNotFound:              contextutils.ErrorCodeRecordNotFound,
	http.StatusRequestTimeout:        contextutils.ErrorCodeTimeout,
	http.StatusRequestEntityTooLarge: contextutils.ErrorCodeInvalidInput,
	http.StatusUnprocessableEntity:   contextutils.ErrorCodeContentRejected,
	http.StatusTooManyRequests:       contextutils.ErrorCodeRateLimit,
	http.StatusBadGateway:            contextutils.ErrorCodeProviderRequestFailed,
	http.StatusServiceUnavailable:    contextutils.ErrorCodeServiceUnavailable,
}

// StandardizeHTTPError writes the error body for a status that has no AppError behind it
func StandardizeHTTPError(c *gin.Context, statusCode int, message, details string) {
	errorCode, ok := statusCodes[statusCode]
	if !ok {
		errorCode = contextutils.ErrorCodeInternalError
	}

	severity := contextutils.SeverityWarn
	switch {
	case statusCode == http.StatusNotFound:
		severity = contextutils.SeverityInfo
	case statusCode >= http.StatusInternalServerError || !ok:
		severity = contextutils.SeverityError
	}

	appErr := contextutils.NewAppError(errorCode, severity, message, details)
	_ = c.Error(appErr)
	c.JSON(statusCode, appErr.ToJSON())
}

// HandleValidationError reports a request that could not be bound
func HandleValidationError(c *gin.Context, field string, value interface{}, reason string) {
	middleware.StandardizeAppError(c, contextutils.NewAppError(
		contextutils.ErrorCodeInvalidInput,
		contextutils.SeverityWarn,
		fmt.Sprintf("Invalid %s", field),
		fmt.Sprintf("Value '%v' is invalid: %s", value, reason),
	))
}

// HandleAppError writes err with the status its code maps to
func HandleAppError(c *gin.Context, err error) {
	middleware.HandleAppError(c, err)
}
