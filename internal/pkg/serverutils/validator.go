package serverutils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ValidateRequest runs struct tag validation and flattens failures into a
// single 400 error.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return NewAppError(fiber.StatusBadRequest, "Invalid request", err)
	}

	var details []string
	for _, fieldErr := range validationErrors {
		details = append(details, fmt.Sprintf("%s failed on %s", fieldErr.Field(), fieldErr.Tag()))
	}
	return NewAppError(fiber.StatusBadRequest, strings.Join(details, "; "), nil)
}
