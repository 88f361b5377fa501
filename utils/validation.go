package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ValidateStruct checks the `validate` tags on s.
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// FormatValidationError turns validator errors into one readable line.
func FormatValidationError(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed %s validation", e.Field(), e.Tag()))
		}
	}
	return strings.Join(messages, ", ")
}

// BindAndValidate parses the JSON body into obj and validates it. On
// failure it writes a 400 response and returns false.
func BindAndValidate(c *fiber.Ctx, obj interface{}) (bool, error) {
	if err := c.BodyParser(obj); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "Failed to parse request body",
			Error:   err.Error(),
		})
	}
	if err := ValidateStruct(obj); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "Validation failed",
			Error:   FormatValidationError(err),
		})
	}
	return true, nil
}
