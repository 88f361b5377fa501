package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/hospital-appointments/controllers"
	"github.com/meinhoongagan/hospital-appointments/middleware"
	"github.com/meinhoongagan/hospital-appointments/models"
)

// SetupAppointmentRoutes configures all appointment related routes
func SetupAppointmentRoutes(router fiber.Router, h *controllers.AppointmentController, secret string) {
	appointment := router.Group("/appointments", middleware.Protected(secret))

	appointment.Get("/doctor/:doctorId", h.GetDoctorAppointments)
	appointment.Get("/patient/:patientId", h.GetPatientAppointments)
	appointment.Put("/admin/:id/cancel", middleware.RequireRole(models.RoleAdmin), h.AdminCancelAppointment)

	appointment.Get("/", h.GetAllAppointments)
	appointment.Get("/:id", h.GetAppointment)
	appointment.Post("/", h.CreateAppointment)
	appointment.Put("/:id/cancel", h.CancelAppointment)
	appointment.Put("/:id/accept", middleware.RequireRole(models.RoleDoctor, models.RoleAdmin), h.AcceptAppointment)
	appointment.Put("/:id/reject", middleware.RequireRole(models.RoleDoctor, models.RoleAdmin), h.RejectAppointment)
}
