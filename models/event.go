package models

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventStatusChanged EventKind = "status_changed"
	EventReminder      EventKind = "reminder"
)

// AppointmentEvent is what gets handed to notification sinks after a
// transition commits, or when a reminder is due.
type AppointmentEvent struct {
	ID              uuid.UUID         `json:"id"`
	Kind            EventKind         `json:"kind"`
	AppointmentID   uint              `json:"appointmentId"`
	PatientID       uint              `json:"patientId"`
	DoctorID        uint              `json:"doctorId"`
	NewStatus       AppointmentStatus `json:"newStatus"`
	PreviousStatus  AppointmentStatus `json:"previousStatus,omitempty"`
	AppointmentDate string            `json:"appointmentDate"`
	StartTime       string            `json:"startTime"`
	EndTime         string            `json:"endTime"`
	OccurredAt      time.Time         `json:"occurredAt"`
}

// NewAppointmentEvent snapshots a for the given kind.
func NewAppointmentEvent(kind EventKind, a *Appointment, previous AppointmentStatus, at time.Time) AppointmentEvent {
	return AppointmentEvent{
		ID:              uuid.New(),
		Kind:            kind,
		AppointmentID:   a.ID,
		PatientID:       a.PatientID,
		DoctorID:        a.DoctorID,
		NewStatus:       a.Status,
		PreviousStatus:  previous,
		AppointmentDate: a.AppointmentDate.Format("2006-01-02"),
		StartTime:       a.StartTime.String(),
		EndTime:         a.EndTime.String(),
		OccurredAt:      at,
	}
}
