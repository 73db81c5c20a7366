package utils

import (
	"memorybox/models"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Success responses
func SuccessResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, models.APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func SuccessResponseWithMeta(c *gin.Context, message string, data interface{}, meta *models.MetaData) {
	c.JSON(http.StatusOK, models.APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Meta:      meta,
		Timestamp: time.Now(),
	})
}

func CreatedResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, models.APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// Error responses
func ErrorResponse(c *gin.Context, statusCode int, message string, details interface{}) {
	c.JSON(statusCode, models.APIResponse{
		Success: false,
		Message: message,
		Error: &models.APIError{
			Code:    getErrorCode(statusCode),
			Message: message,
			Details: details,
		},
		Timestamp: time.Now(),
	})
}

func ValidationErrorResponse(c *gin.Context, validationErrors []ValidationError) {
	c.JSON(http.StatusBadRequest, models.APIResponse{
		Success: false,
		Message: "Validation failed",
		Error: &models.APIError{
			Code:    models.ErrCodeValidation,
			Message: "Validation failed",
			Details: validationErrors,
		},
		Timestamp: time.Now(),
	})
}

func UnauthorizedResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Unauthorized access"
	}
	c.JSON(http.StatusUnauthorized, models.APIResponse{
		Success: false,
		Message: message,
		Error: &models.APIError{
			Code:    models.ErrCodeAuthentication,
			Message: message,
		},
		Timestamp: time.Now(),
	})
}

func ForbiddenResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Access forbidden"
	}
	c.JSON(http.StatusForbidden, models.APIResponse{
		Success: false,
		Message: message,
		Error: &models.APIError{
			Code:    models.ErrCodeAuthorization,
			Message: message,
		},
		Timestamp: time.Now(),
	})
}

func NotFoundResponse(c *gin.Context, resource string) {
	message := resource + " not found"
	c.JSON(http.StatusNotFound, models.APIResponse{
		Success: false,
		Message: message,
		Error: &models.APIError{
			Code:    models.ErrCodeNotFound,
			Message: message,
		},
		Timestamp: time.Now(),
	})
}

func NotImplementedResponse(c *gin.Context, message string) {
	c.JSON(http.StatusNotImplemented, models.APIResponse{
		Success: false,
		Message: message,
		Error: &models.APIError{
			Code:    models.ErrCodeNotImplemented,
			Message: message,
		},
		Timestamp: time.Now(),
	})
}

func InternalServerErrorResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	c.JSON(http.StatusInternalServerError, models.APIResponse{
		Success: false,
		Message: message,
		Error: &models.APIError{
			Code:    models.ErrCodeInternal,
			Message: message,
		},
		Timestamp: time.Now(),
	})
}

// BadRequestResponse sends a 400 Bad Request response
func BadRequestResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, message, nil)
}

// TooManyRequestsResponse sends a 429 Too Many Requests response
func TooManyRequestsResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusTooManyRequests, message, nil)
}

// ServiceErrorResponse translates a ServiceError into its HTTP shape, falling
// back to a 500 for unknown errors.
func ServiceErrorResponse(c *gin.Context, err error) {
	serviceErr, ok := GetServiceError(err)
	if !ok {
		InternalServerErrorResponse(c, "")
		return
	}

	statusCode := serviceErr.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}

	c.JSON(statusCode, models.APIResponse{
		Success: false,
		Message: serviceErr.Message,
		Error: &models.APIError{
			Code:    serviceErr.Code,
			Message: serviceErr.Message,
			Details: serviceErr.Details,
		},
		Timestamp: time.Now(),
	})
}

// Helper functions
func getErrorCode(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return models.ErrCodeValidation
	case http.StatusUnauthorized:
		return models.ErrCodeAuthentication
	case http.StatusForbidden:
		return models.ErrCodeAuthorization
	case http.StatusNotFound:
		return models.ErrCodeNotFound
	case http.StatusConflict:
		return models.ErrCodeConflict
	case http.StatusTooManyRequests:
		return models.ErrCodeRateLimit
	case http.StatusPreconditionFailed:
		return models.ErrCodeConfiguration
	case http.StatusBadGateway:
		return models.ErrCodeProvider
	case http.StatusNotImplemented:
		return models.ErrCodeNotImplemented
	default:
		return models.ErrCodeInternal
	}
}

func CreatePaginationMeta(page, pageSize int, total int64) *models.MetaData {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return &models.MetaData{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}

// HealthCheckResponse creates a health check response
func HealthCheckResponse(services map[string]string, version, uptime string) models.HealthResponse {
	status := "healthy"
	for _, serviceStatus := range services {
		if serviceStatus != "healthy" {
			status = "unhealthy"
			break
		}
	}

	return models.HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Services:  services,
		Version:   version,
		Uptime:    uptime,
	}
}
