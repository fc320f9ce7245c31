package utils

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ProcessValidationErrors flattens gin binding failures into a field->message
// map suitable for a JSON error response.
func ProcessValidationErrors(err error) map[string]string {
	errorResponse := make(map[string]string)

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		errorResponse["error"] = err.Error()
		return errorResponse
	}

	for _, fieldErr := range validationErrors {
		errorResponse[fieldErr.Field()] = fmt.Sprintf("failed on the '%s' rule", fieldErr.Tag())
	}
	return errorResponse
}
