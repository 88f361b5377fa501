package controllers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/hospital-appointments/middleware"
	"github.com/meinhoongagan/hospital-appointments/models"
	"github.com/meinhoongagan/hospital-appointments/services"
	"github.com/meinhoongagan/hospital-appointments/utils"
	"github.com/sirupsen/logrus"
)

// CreateAppointmentRequest is the body of POST /appointments. Patients may
// omit patientId and doctors may omit doctorId; both default to the caller.
type CreateAppointmentRequest struct {
	PatientID       uint   `json:"patientId" validate:"required"`
	DoctorID        uint   `json:"doctorId" validate:"required"`
	AppointmentDate string `json:"appointmentDate" validate:"required"`
	StartTime       string `json:"startTime" validate:"required"`
	EndTime         string `json:"endTime" validate:"required"`
	Notes           string `json:"notes" validate:"max=1000"`
}

type AppointmentResponse struct {
	ID              uint                     `json:"id"`
	PatientID       uint                     `json:"patientId"`
	PatientName     string                   `json:"patientName,omitempty"`
	DoctorID        uint                     `json:"doctorId"`
	DoctorName      string                   `json:"doctorName,omitempty"`
	AppointmentDate string                   `json:"appointmentDate"`
	StartTime       models.TimeOfDay         `json:"startTime"`
	EndTime         models.TimeOfDay         `json:"endTime"`
	Status          models.AppointmentStatus `json:"status"`
	Notes           string                   `json:"notes,omitempty"`
	Revision        uint                     `json:"revision"`
	CreatedAt       time.Time                `json:"createdAt"`
	UpdatedAt       *time.Time               `json:"updatedAt,omitempty"`
}

type AppointmentController struct {
	Service services.AppointmentService
	Logger  *logrus.Logger
	// Location renders timestamps in the clinic's zone.
	Location *time.Location
}

func NewAppointmentController(service services.AppointmentService, logger *logrus.Logger, loc *time.Location) *AppointmentController {
	return &AppointmentController{Service: service, Logger: logger, Location: loc}
}

// GetAllAppointments godoc
// @Summary List appointments visible to the caller
// @Tags appointments
// @Produce json
// @Success 200 {array} AppointmentResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /appointments [get]
func (h *AppointmentController) GetAllAppointments(c *fiber.Ctx) error {
	caller, _ := middleware.CallerFrom(c)
	appointments, err := h.Service.List(c.UserContext(), caller)
	if err != nil {
		return h.respondError(c, "GetAllAppointments", err)
	}
	return c.JSON(h.toResponses(appointments))
}

// GetAppointment godoc
// @Summary Get an appointment by ID
// @Tags appointments
// @Produce json
// @Param id path int true "Appointment ID"
// @Success 200 {object} AppointmentResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /appointments/{id} [get]
func (h *AppointmentController) GetAppointment(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), "invalid_parameter")
	}
	caller, _ := middleware.CallerFrom(c)
	appointment, err := h.Service.Get(c.UserContext(), caller, id)
	if err != nil {
		return h.respondError(c, "GetAppointment", err)
	}
	return c.JSON(h.toResponse(appointment))
}

// CreateAppointment godoc
// @Summary Book an appointment
// @Description Doctors' bookings start approved, everyone else's start pending.
// @Tags appointments
// @Accept json
// @Produce json
// @Param appointment body CreateAppointmentRequest true "Appointment"
// @Success 201 {object} AppointmentResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /appointments [post]
func (h *AppointmentController) CreateAppointment(c *fiber.Ctx) error {
	caller, _ := middleware.CallerFrom(c)

	var req CreateAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "Failed to parse request body", err.Error())
	}
	switch caller.Role {
	case models.RolePatient:
		if req.PatientID == 0 {
			req.PatientID = caller.Ref
		}
	case models.RoleDoctor:
		if req.DoctorID == 0 {
			req.DoctorID = caller.Ref
		}
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "Validation failed", utils.FormatValidationError(err))
	}

	appointment, err := h.Service.Create(c.UserContext(), caller, services.CreateAppointmentInput{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		AppointmentDate: req.AppointmentDate,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Notes:           req.Notes,
	})
	if err != nil {
		return h.respondError(c, "CreateAppointment", err)
	}
	return c.Status(fiber.StatusCreated).JSON(h.toResponse(appointment))
}

// CancelAppointment godoc
// @Summary Cancel an appointment
// @Description Rejected when the appointment starts within the cancellation window.
// @Tags appointments
// @Param id path int true "Appointment ID"
// @Success 204
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /appointments/{id}/cancel [put]
func (h *AppointmentController) CancelAppointment(c *fiber.Ctx) error {
	return h.transition(c, "CancelAppointment", h.Service.Cancel)
}

// AdminCancelAppointment godoc
// @Summary Cancel an appointment regardless of timing
// @Tags appointments
// @Param id path int true "Appointment ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponse
// @Router /appointments/admin/{id}/cancel [put]
func (h *AppointmentController) AdminCancelAppointment(c *fiber.Ctx) error {
	return h.transition(c, "AdminCancelAppointment", h.Service.AdminCancel)
}

// AcceptAppointment godoc
// @Summary Approve a pending appointment
// @Tags appointments
// @Param id path int true "Appointment ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /appointments/{id}/accept [put]
func (h *AppointmentController) AcceptAppointment(c *fiber.Ctx) error {
	return h.transition(c, "AcceptAppointment", h.Service.Accept)
}

// RejectAppointment godoc
// @Summary Reject a pending appointment
// @Tags appointments
// @Param id path int true "Appointment ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /appointments/{id}/reject [put]
func (h *AppointmentController) RejectAppointment(c *fiber.Ctx) error {
	return h.transition(c, "RejectAppointment", h.Service.Reject)
}

// GetDoctorAppointments godoc
// @Summary List a doctor's appointments
// @Tags appointments
// @Produce json
// @Param doctorId path int true "Doctor ID"
// @Success 200 {array} AppointmentResponse
// @Router /appointments/doctor/{doctorId} [get]
func (h *AppointmentController) GetDoctorAppointments(c *fiber.Ctx) error {
	doctorID, err := idParam(c, "doctorId")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), "invalid_parameter")
	}
	caller, _ := middleware.CallerFrom(c)
	appointments, err := h.Service.ListByDoctor(c.UserContext(), caller, doctorID)
	if err != nil {
		return h.respondError(c, "GetDoctorAppointments", err)
	}
	return c.JSON(h.toResponses(appointments))
}

// GetPatientAppointments godoc
// @Summary List a patient's appointments
// @Tags appointments
// @Produce json
// @Param patientId path int true "Patient ID"
// @Success 200 {array} AppointmentResponse
// @Router /appointments/patient/{patientId} [get]
func (h *AppointmentController) GetPatientAppointments(c *fiber.Ctx) error {
	patientID, err := idParam(c, "patientId")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), "invalid_parameter")
	}
	caller, _ := middleware.CallerFrom(c)
	appointments, err := h.Service.ListByPatient(c.UserContext(), caller, patientID)
	if err != nil {
		return h.respondError(c, "GetPatientAppointments", err)
	}
	return c.JSON(h.toResponses(appointments))
}

type transitionFunc func(ctx context.Context, caller services.IdentityContext, id uint) error

func (h *AppointmentController) transition(c *fiber.Ctx, op string, fn transitionFunc) error {
	id, err := idParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), "invalid_parameter")
	}
	caller, _ := middleware.CallerFrom(c)
	if err := fn(c.UserContext(), caller, id); err != nil {
		return h.respondError(c, op, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// respondError maps service error kinds onto HTTP status codes.
func (h *AppointmentController) respondError(c *fiber.Ctx, op string, err error) error {
	status, code := statusFor(err)
	if status == fiber.StatusInternalServerError {
		h.Logger.WithFields(logrus.Fields{
			"Function": op,
			"Path":     c.Path(),
			"Error":    err,
		}).Error("Request failed")
	}
	return utils.Fail(c, status, services.Message(err), code)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrValidation):
		return fiber.StatusBadRequest, "validation_failed"
	case errors.Is(err, services.ErrPolicyViolation):
		return fiber.StatusBadRequest, "policy_violation"
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden, "forbidden"
	case errors.Is(err, services.ErrInvalidTransition):
		return fiber.StatusConflict, "invalid_transition"
	case errors.Is(err, services.ErrConcurrencyConflict):
		return fiber.StatusConflict, "concurrency_conflict"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}

func idParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(id), nil
}

func (h *AppointmentController) toResponse(a *models.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		PatientName:     a.PatientName(),
		DoctorID:        a.DoctorID,
		DoctorName:      a.DoctorName(),
		AppointmentDate: a.AppointmentDate.Format("2006-01-02"),
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		Status:          a.Status,
		Notes:           a.Notes,
		Revision:        a.Revision,
		CreatedAt:       utils.ToClinicTime(a.CreatedAt, h.Location),
	}
	if a.UpdatedAt != nil {
		updated := utils.ToClinicTime(*a.UpdatedAt, h.Location)
		resp.UpdatedAt = &updated
	}
	return resp
}

func (h *AppointmentController) toResponses(list []models.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(list))
	for i := range list {
		out = append(out, h.toResponse(&list[i]))
	}
	return out
}
