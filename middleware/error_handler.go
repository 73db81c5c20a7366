// middleware/error_handler.go
package middleware

import (
	"net/http"
	"runtime/debug"

	"memorybox/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorHandler provides centralized panic recovery and error responses
type ErrorHandler struct {
	environment string
	logger      *logrus.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(environment string, logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		environment: environment,
		logger:      logger,
	}
}

// Handle returns the error handling middleware
func (eh *ErrorHandler) Handle() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				eh.handlePanic(c, err)
			}
		}()

		c.Next()

		// Handle errors that were set during request processing
		if len(c.Errors) > 0 {
			eh.handleGinErrors(c)
		}
	})
}

// handlePanic handles panic recovery
func (eh *ErrorHandler) handlePanic(c *gin.Context, err interface{}) {
	eh.logger.WithFields(logrus.Fields{
		"panic":      err,
		"stack":      string(debug.Stack()),
		"request_id": c.GetString("request_id"),
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"user_id":    c.GetString("userID"),
	}).Error("Panic recovered")

	var details interface{}
	if eh.environment == "development" {
		details = gin.H{"panic": err}
	}

	utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error", details)
	c.Abort()
}

// handleGinErrors handles errors added to gin context
func (eh *ErrorHandler) handleGinErrors(c *gin.Context) {
	lastError := c.Errors.Last()
	if lastError == nil {
		return
	}

	for _, ginErr := range c.Errors {
		eh.logError(c, ginErr.Err)
	}

	// Handlers that already wrote a response leave nothing to do here
	if c.Writer.Written() {
		return
	}

	utils.ServiceErrorResponse(c, lastError.Err)
}

// logError logs an error with request context
func (eh *ErrorHandler) logError(c *gin.Context, err error) {
	fields := logrus.Fields{
		"error":      err.Error(),
		"request_id": c.GetString("request_id"),
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"user_id":    c.GetString("userID"),
		"ip":         c.ClientIP(),
	}

	if serviceErr, ok := utils.GetServiceError(err); ok && serviceErr.StatusCode < 500 {
		eh.logger.WithFields(fields).Warn("Client error")
		return
	}

	eh.logger.WithFields(fields).Error("Server error")
}
