package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/hospital-appointments/controllers"
	"github.com/meinhoongagan/hospital-appointments/middleware"
)

// SetupAuthRoutes configures all authentication related routes
func SetupAuthRoutes(router fiber.Router, h *controllers.AuthController, secret string) {
	auth := router.Group("/auth")

	// Public routes
	auth.Post("/login", h.Login)
	auth.Post("/refresh", h.RefreshToken)

	// Protected routes
	auth.Get("/me", middleware.Protected(secret), h.GetUserProfile)
}
