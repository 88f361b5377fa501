package utils

import "github.com/gofiber/fiber/v2"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Fail writes an ErrorResponse with the given status.
func Fail(c *fiber.Ctx, status int, message, code string) error {
	return c.Status(status).JSON(ErrorResponse{Message: message, Error: code})
}
