package models

import (
	"errors"
	"fmt"
	"time"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusApproved  AppointmentStatus = "approved"
	StatusRejected  AppointmentStatus = "rejected"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

var ErrInvalidStatusTransition = errors.New("invalid status transition")

// transitions lists every legal edge of the lifecycle. Rejected, completed
// and cancelled have no outgoing edges.
var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusApproved, StatusRejected, StatusCancelled, StatusCompleted},
	StatusApproved:  {StatusCancelled, StatusCompleted},
	StatusRejected:  {},
	StatusCompleted: {},
	StatusCancelled: {},
}

func (s AppointmentStatus) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

func (s AppointmentStatus) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

// InitialStatus is the status a new appointment starts in for the creating role.
func InitialStatus(creator Role) AppointmentStatus {
	if creator == RoleDoctor {
		return StatusApproved
	}
	return StatusPending
}

type Appointment struct {
	ID              uint              `json:"id" gorm:"primaryKey"`
	PatientID       uint              `json:"patientId" gorm:"index;not null"`
	Patient         *Patient          `json:"patient,omitempty" gorm:"foreignKey:PatientID"`
	DoctorID        uint              `json:"doctorId" gorm:"index;not null"`
	Doctor          *Doctor           `json:"doctor,omitempty" gorm:"foreignKey:DoctorID"`
	AppointmentDate time.Time         `json:"appointmentDate" gorm:"type:date;index;not null"`
	StartTime       TimeOfDay         `json:"startTime" gorm:"type:varchar(5);not null"`
	EndTime         TimeOfDay         `json:"endTime" gorm:"type:varchar(5);not null"`
	Status          AppointmentStatus `json:"status" gorm:"type:varchar(16);index;not null"`
	Notes           string            `json:"notes,omitempty" gorm:"type:text"`
	Revision        uint              `json:"revision" gorm:"not null;default:1"`
	CreatedAt       time.Time         `json:"createdAt" gorm:"autoCreateTime:false"`
	UpdatedAt       *time.Time        `json:"updatedAt,omitempty" gorm:"autoUpdateTime:false"`
}

func (a *Appointment) CanTransitionTo(next AppointmentStatus) bool {
	for _, s := range transitions[a.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// TransitionTo moves the appointment to next and stamps updatedAt. The
// revision is left alone; the store bumps it when the write lands.
func (a *Appointment) TransitionTo(next AppointmentStatus, at time.Time) error {
	if !a.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, a.Status, next)
	}
	if at.Before(a.CreatedAt) {
		at = a.CreatedAt
	}
	a.Status = next
	a.UpdatedAt = &at
	return nil
}

// StartsAt combines the appointment date and start time in loc.
func (a *Appointment) StartsAt(loc *time.Location) time.Time {
	return a.StartTime.On(a.AppointmentDate, loc)
}

// IsParticipant reports whether the role/ref pair is this appointment's
// patient or assigned doctor.
func (a *Appointment) IsParticipant(role Role, ref uint) bool {
	switch role {
	case RolePatient:
		return a.PatientID == ref
	case RoleDoctor:
		return a.DoctorID == ref
	}
	return false
}

func (a *Appointment) PatientName() string {
	if a.Patient == nil {
		return ""
	}
	return a.Patient.User.FullName()
}

func (a *Appointment) DoctorName() string {
	if a.Doctor == nil {
		return ""
	}
	return a.Doctor.User.FullName()
}
