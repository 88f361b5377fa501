package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/meinhoongagan/hospital-appointments/models"
	"github.com/meinhoongagan/hospital-appointments/repository"
	"github.com/sirupsen/logrus"
)

// NotificationSink receives committed lifecycle events. Notify must not
// block on delivery and has no way to report failure back.
type NotificationSink interface {
	Notify(ctx context.Context, event models.AppointmentEvent)
}

type CreateAppointmentInput struct {
	PatientID       uint
	DoctorID        uint
	AppointmentDate string
	StartTime       string
	EndTime         string
	Notes           string
}

type AppointmentService interface {
	Create(ctx context.Context, caller IdentityContext, in CreateAppointmentInput) (*models.Appointment, error)
	Cancel(ctx context.Context, caller IdentityContext, id uint) error
	AdminCancel(ctx context.Context, caller IdentityContext, id uint) error
	Accept(ctx context.Context, caller IdentityContext, id uint) error
	Reject(ctx context.Context, caller IdentityContext, id uint) error

	Get(ctx context.Context, caller IdentityContext, id uint) (*models.Appointment, error)
	List(ctx context.Context, caller IdentityContext) ([]models.Appointment, error)
	ListByDoctor(ctx context.Context, caller IdentityContext, doctorID uint) ([]models.Appointment, error)
	ListByPatient(ctx context.Context, caller IdentityContext, patientID uint) ([]models.Appointment, error)
}

type Options struct {
	Location           *time.Location
	CancellationWindow time.Duration
	OperationTimeout   time.Duration
	Now                func() time.Time
}

type appointmentService struct {
	repo         repository.AppointmentRepository
	participants repository.ParticipantRepository
	sink         NotificationSink
	Logger       *logrus.Logger

	loc     *time.Location
	window  time.Duration
	timeout time.Duration
	now     func() time.Time
}

func NewAppointmentService(repo repository.AppointmentRepository, participants repository.ParticipantRepository, sink NotificationSink, logger *logrus.Logger, opts Options) AppointmentService {
	s := &appointmentService{
		repo:         repo,
		participants: participants,
		sink:         sink,
		Logger:       logger,
		loc:          opts.Location,
		window:       opts.CancellationWindow,
		timeout:      opts.OperationTimeout,
		now:          opts.Now,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.window == 0 {
		s.window = 48 * time.Hour
	}
	if s.timeout == 0 {
		s.timeout = 5 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *appointmentService) Create(ctx context.Context, caller IdentityContext, in CreateAppointmentInput) (*models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	switch caller.CurrentRole() {
	case models.RolePatient:
		if in.PatientID != caller.CurrentRef() {
			return nil, newError(ErrForbidden, "patients can only book appointments for themselves")
		}
	case models.RoleDoctor:
		if in.DoctorID != caller.CurrentRef() {
			return nil, newError(ErrForbidden, "doctors can only create appointments on their own calendar")
		}
	case models.RoleAdmin:
	default:
		return nil, newError(ErrForbidden, "role %q cannot create appointments", caller.CurrentRole())
	}

	appointment, err := s.buildAppointment(in)
	if err != nil {
		return nil, err
	}

	if _, err := s.participants.FindPatient(ctx, in.PatientID); err != nil {
		return nil, s.lookupError("Create", err, "patient %d not found", in.PatientID)
	}
	if _, err := s.participants.FindDoctor(ctx, in.DoctorID); err != nil {
		return nil, s.lookupError("Create", err, "doctor %d not found", in.DoctorID)
	}

	appointment.Status = models.InitialStatus(caller.CurrentRole())
	appointment.CreatedAt = s.now()

	if err := s.repo.Insert(ctx, appointment); err != nil {
		s.Logger.WithFields(logrus.Fields{
			"Function":  "Create",
			"PatientID": in.PatientID,
			"DoctorID":  in.DoctorID,
			"Error":     err,
		}).Error("Failed to persist appointment")
		return nil, infraError("failed to create appointment", err)
	}

	s.Logger.WithFields(logrus.Fields{
		"Function":      "Create",
		"AppointmentID": appointment.ID,
		"Status":        appointment.Status,
	}).Info("Appointment created")
	return appointment, nil
}

func (s *appointmentService) buildAppointment(in CreateAppointmentInput) (*models.Appointment, error) {
	date, err := parseDate(in.AppointmentDate, s.loc)
	if err != nil {
		return nil, newError(ErrValidation, "invalid appointment date %q", in.AppointmentDate)
	}
	start, err := models.ParseTimeOfDay(in.StartTime)
	if err != nil {
		return nil, newError(ErrValidation, "invalid start time %q", in.StartTime)
	}
	end, err := models.ParseTimeOfDay(in.EndTime)
	if err != nil {
		return nil, newError(ErrValidation, "invalid end time %q", in.EndTime)
	}
	if !start.Before(end) {
		return nil, newError(ErrValidation, "end time must be after start time")
	}
	return &models.Appointment{
		PatientID:       in.PatientID,
		DoctorID:        in.DoctorID,
		AppointmentDate: date,
		StartTime:       start,
		EndTime:         end,
		Notes:           strings.TrimSpace(in.Notes),
	}, nil
}

// parseDate accepts a bare date or a full RFC 3339 timestamp, keeping only
// the calendar date as seen in loc.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if d, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
}

func (s *appointmentService) Cancel(ctx context.Context, caller IdentityContext, id uint) error {
	return s.cancel(ctx, caller, id, false)
}

func (s *appointmentService) AdminCancel(ctx context.Context, caller IdentityContext, id uint) error {
	if !isAdmin(caller) {
		return newError(ErrForbidden, "only administrators can override the cancellation window")
	}
	return s.cancel(ctx, caller, id, true)
}

func (s *appointmentService) cancel(ctx context.Context, caller IdentityContext, id uint, override bool) error {
	return s.transition(ctx, "Cancel", id, models.StatusCancelled, func(a *models.Appointment, now time.Time) error {
		if !isAdmin(caller) && !a.IsParticipant(caller.CurrentRole(), caller.CurrentRef()) {
			return newError(ErrForbidden, "only the appointment's patient or doctor can cancel it")
		}
		if a.Status.IsTerminal() {
			return newError(ErrInvalidTransition, "cannot cancel a %s appointment", a.Status)
		}
		if override {
			return nil
		}
		if now.Add(s.window).After(a.StartsAt(s.loc)) {
			return newError(ErrPolicyViolation, "cannot cancel within %s of appointment", formatWindow(s.window))
		}
		return nil
	})
}

func (s *appointmentService) Accept(ctx context.Context, caller IdentityContext, id uint) error {
	return s.decide(ctx, "Accept", caller, id, models.StatusApproved)
}

func (s *appointmentService) Reject(ctx context.Context, caller IdentityContext, id uint) error {
	return s.decide(ctx, "Reject", caller, id, models.StatusRejected)
}

// decide covers the doctor/admin answer to a pending request.
func (s *appointmentService) decide(ctx context.Context, op string, caller IdentityContext, id uint, next models.AppointmentStatus) error {
	role := caller.CurrentRole()
	if role != models.RoleDoctor && role != models.RoleAdmin {
		return newError(ErrForbidden, "only doctors and administrators can %s appointments", strings.ToLower(op))
	}
	return s.transition(ctx, op, id, next, func(a *models.Appointment, _ time.Time) error {
		if role == models.RoleDoctor && a.DoctorID != caller.CurrentRef() {
			return newError(ErrForbidden, "appointment %d is assigned to another doctor", a.ID)
		}
		if a.Status != models.StatusPending {
			return newError(ErrInvalidTransition, "only pending appointments can be %s, this one is %s", next, a.Status)
		}
		return nil
	})
}

// transition loads the appointment, runs check, applies next and writes it
// back guarded by the revision read. The event goes out only after the
// write lands.
func (s *appointmentService) transition(ctx context.Context, op string, id uint, next models.AppointmentStatus, check func(*models.Appointment, time.Time) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	appointment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return s.lookupError(op, err, "appointment %d not found", id)
	}

	now := s.now()
	if err := check(appointment, now); err != nil {
		return err
	}

	previous := appointment.Status
	revision := appointment.Revision
	if err := appointment.TransitionTo(next, now); err != nil {
		return newError(ErrInvalidTransition, "cannot move appointment from %s to %s", previous, next)
	}

	if err := s.repo.UpdateStatus(ctx, appointment, revision); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleRevision):
			return newError(ErrConcurrencyConflict, "appointment %d was modified concurrently, reload and retry", id)
		case errors.Is(err, repository.ErrNotFound):
			return newError(ErrNotFound, "appointment %d not found", id)
		}
		s.Logger.WithFields(logrus.Fields{
			"Function":      op,
			"AppointmentID": id,
			"Error":         err,
		}).Error("Failed to persist status change")
		return infraError("failed to update appointment", err)
	}

	s.Logger.WithFields(logrus.Fields{
		"Function":       op,
		"AppointmentID":  id,
		"PreviousStatus": previous,
		"Status":         appointment.Status,
	}).Info("Appointment status changed")

	s.sink.Notify(ctx, models.NewAppointmentEvent(models.EventStatusChanged, appointment, previous, now))
	return nil
}

func (s *appointmentService) Get(ctx context.Context, caller IdentityContext, id uint) (*models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	appointment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError("Get", err, "appointment %d not found", id)
	}
	if !isAdmin(caller) && !appointment.IsParticipant(caller.CurrentRole(), caller.CurrentRef()) {
		return nil, newError(ErrForbidden, "not allowed to view appointment %d", id)
	}
	return appointment, nil
}

func (s *appointmentService) List(ctx context.Context, caller IdentityContext) ([]models.Appointment, error) {
	if !isAdmin(caller) {
		return nil, newError(ErrForbidden, "only administrators can list all appointments")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	appointments, err := s.repo.List(ctx)
	if err != nil {
		return nil, s.queryError("List", err)
	}
	return appointments, nil
}

func (s *appointmentService) ListByDoctor(ctx context.Context, caller IdentityContext, doctorID uint) ([]models.Appointment, error) {
	if !isAdmin(caller) && !(caller.CurrentRole() == models.RoleDoctor && caller.CurrentRef() == doctorID) {
		return nil, newError(ErrForbidden, "not allowed to view appointments of doctor %d", doctorID)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	appointments, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, s.queryError("ListByDoctor", err)
	}
	return appointments, nil
}

func (s *appointmentService) ListByPatient(ctx context.Context, caller IdentityContext, patientID uint) ([]models.Appointment, error) {
	if !isAdmin(caller) && !(caller.CurrentRole() == models.RolePatient && caller.CurrentRef() == patientID) {
		return nil, newError(ErrForbidden, "not allowed to view appointments of patient %d", patientID)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	appointments, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, s.queryError("ListByPatient", err)
	}
	return appointments, nil
}

func (s *appointmentService) lookupError(op string, err error, format string, args ...interface{}) error {
	if errors.Is(err, repository.ErrNotFound) {
		return newError(ErrNotFound, format, args...)
	}
	return s.queryError(op, err)
}

func (s *appointmentService) queryError(op string, err error) error {
	s.Logger.WithFields(logrus.Fields{
		"Function": op,
		"Error":    err,
	}).Error("Store lookup failed")
	return infraError("store lookup failed", err)
}

func formatWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	}
	return d.String()
}
