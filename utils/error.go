package utils

import (
	"errors"
	"net/http"

	"installhub/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// HandleErrors is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				Logger := GetLogger()
				Logger.Error("Unhandled panic", zap.Any("error", err))

				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, details string) {
	Logger := GetLogger()
	Logger.Warn(message, zap.String("details", details))
	c.JSON(status, ErrorResponse{Message: message, Details: details})
}

var statusByCode = map[domain.Code]int{
	domain.CodeAlreadyHeld:       http.StatusConflict,
	domain.CodeConflict:          http.StatusConflict,
	domain.CodeInsufficientFunds: http.StatusPaymentRequired,
	domain.CodeInvalidTransition: http.StatusUnprocessableEntity,
	domain.CodeNotEligible:       http.StatusUnprocessableEntity,
	domain.CodeAlreadyProcessed:  http.StatusOK,
	domain.CodeNoRefundPolicy:    http.StatusFailedDependency,
	domain.CodeFeeMissing:        http.StatusFailedDependency,
	domain.CodeNotFound:          http.StatusNotFound,
	domain.CodeValidation:        http.StatusBadRequest,
	domain.CodeForbidden:         http.StatusForbidden,
	domain.CodeSuspended:         http.StatusForbidden,
	domain.CodeUnavailable:       http.StatusServiceUnavailable,
}

// StatusFor maps an engine error to its HTTP status. Errors without a code
// are treated as a store outage.
func StatusFor(err error) int {
	if status, ok := statusByCode[domain.CodeOf(err)]; ok {
		return status
	}
	return http.StatusServiceUnavailable
}

// RespondError writes err using the standard envelope and logs it at a level
// matching its severity.
func RespondError(c *gin.Context, err error) {
	status := StatusFor(err)
	code := string(domain.CodeOf(err))
	message := err.Error()

	var de *domain.Error
	if errors.As(err, &de) && de.Message != "" {
		message = de.Message
	}
	if code == "" || code == string(domain.CodeUnavailable) {
		code = "service_unavailable"
		GetLogger().Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		message = "The service is temporarily unavailable. Please retry."
	} else {
		GetLogger().Warn("request rejected", zap.String("path", c.FullPath()), zap.String("code", code), zap.String("details", err.Error()))
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Code: code, Message: message})
}
