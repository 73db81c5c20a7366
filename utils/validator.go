package utils

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

type ValidationService struct {
	validator *validator.Validate
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

func NewValidationService() *ValidationService {
	v := validator.New()

	// Register custom validators
	v.RegisterValidation("phone", validatePhone)
	v.RegisterValidation("template_category", validateTemplateCategory)

	return &ValidationService{
		validator: v,
	}
}

func (vs *ValidationService) ValidateStruct(s interface{}) []ValidationError {
	var validationErrors []ValidationError

	err := vs.validator.Struct(s)
	if err != nil {
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, ValidationError{
				Field:   err.Field(),
				Tag:     err.Tag(),
				Value:   fmt.Sprintf("%v", err.Value()),
				Message: vs.getErrorMessage(err),
			})
		}
	}

	return validationErrors
}

func (vs *ValidationService) getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Invalid email format"
	case "phone":
		return "Invalid phone number format"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "template_category":
		return "Invalid template category"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// Custom validation functions
func validatePhone(fl validator.FieldLevel) bool {
	phone := fl.Field().String()
	// Remove all non-digit characters
	cleaned := regexp.MustCompile(`\D`).ReplaceAllString(phone, "")

	// Check if it's a valid length (10-15 digits)
	if len(cleaned) < 10 || len(cleaned) > 15 {
		return false
	}

	// Basic phone number pattern
	phoneRegex := regexp.MustCompile(`^\+?[1-9]\d{9,14}$`)
	return phoneRegex.MatchString(phone)
}

func validateTemplateCategory(fl validator.FieldLevel) bool {
	category := fl.Field().String()
	validCategories := []string{"welcome", "reminder", "campaign", "notification", "security", "general"}

	for _, validCategory := range validCategories {
		if category == validCategory {
			return true
		}
	}
	return false
}
