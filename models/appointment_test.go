package models

import (
	"errors"
	"testing"
	"time"
)

func TestInitialStatus(t *testing.T) {
	tests := []struct {
		role Role
		want AppointmentStatus
	}{
		{RoleDoctor, StatusApproved},
		{RolePatient, StatusPending},
		{RoleAdmin, StatusPending},
	}
	for _, tt := range tests {
		if got := InitialStatus(tt.role); got != tt.want {
			t.Errorf("InitialStatus(%s) = %s, want %s", tt.role, got, tt.want)
		}
	}
}

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to AppointmentStatus
		want     bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusCancelled, true},
		{StatusApproved, StatusCancelled, true},
		{StatusApproved, StatusCompleted, true},
		{StatusApproved, StatusApproved, false},
		{StatusApproved, StatusRejected, false},
		{StatusCancelled, StatusApproved, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusRejected, StatusApproved, false},
		{StatusCompleted, StatusCancelled, false},
	}
	for _, tt := range tests {
		a := &Appointment{Status: tt.from}
		if got := a.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []AppointmentStatus{StatusRejected, StatusCompleted, StatusCancelled} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []AppointmentStatus{StatusPending, StatusApproved} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	if AppointmentStatus("archived").IsValid() {
		t.Error("unknown status reported valid")
	}
}

func TestTransitionTo(t *testing.T) {
	created := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	a := &Appointment{Status: StatusPending, CreatedAt: created}

	at := created.Add(time.Hour)
	if err := a.TransitionTo(StatusApproved, at); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusApproved {
		t.Errorf("status = %s, want approved", a.Status)
	}
	if a.UpdatedAt == nil || !a.UpdatedAt.Equal(at) {
		t.Errorf("updatedAt = %v, want %v", a.UpdatedAt, at)
	}

	err := a.TransitionTo(StatusRejected, at)
	if !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
	}
	if a.Status != StatusApproved {
		t.Errorf("status changed on failed transition: %s", a.Status)
	}
}

func TestTransitionTo_UpdatedAtNeverBeforeCreatedAt(t *testing.T) {
	created := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	a := &Appointment{Status: StatusPending, CreatedAt: created}
	if err := a.TransitionTo(StatusCancelled, created.Add(-time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.UpdatedAt.Before(a.CreatedAt) {
		t.Errorf("updatedAt %v before createdAt %v", a.UpdatedAt, a.CreatedAt)
	}
}

func TestStartsAt(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	a := &Appointment{
		AppointmentDate: time.Date(2026, 10, 29, 0, 0, 0, 0, time.UTC),
		StartTime:       TimeOfDay{Hour: 9, Minute: 0},
		EndTime:         TimeOfDay{Hour: 9, Minute: 30},
	}
	want := time.Date(2026, 10, 29, 9, 0, 0, 0, loc)
	if got := a.StartsAt(loc); !got.Equal(want) {
		t.Errorf("StartsAt = %v, want %v", got, want)
	}
}

func TestIsParticipant(t *testing.T) {
	a := &Appointment{PatientID: 7, DoctorID: 3}
	if !a.IsParticipant(RolePatient, 7) || !a.IsParticipant(RoleDoctor, 3) {
		t.Error("expected owner to be participant")
	}
	if a.IsParticipant(RolePatient, 3) || a.IsParticipant(RoleDoctor, 7) {
		t.Error("refs must be matched per role")
	}
	if a.IsParticipant(RoleAdmin, 7) {
		t.Error("admin is never a participant")
	}
}

func TestTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:05")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tod.String() != "09:05" || tod.Minutes() != 545 {
		t.Errorf("got %s (%d)", tod, tod.Minutes())
	}
	if _, err := ParseTimeOfDay("25:00"); err == nil {
		t.Error("expected error for 25:00")
	}

	var scanned TimeOfDay
	if err := scanned.Scan("14:30:00"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if scanned != (TimeOfDay{Hour: 14, Minute: 30}) {
		t.Errorf("scanned = %v", scanned)
	}

	b, _ := tod.MarshalJSON()
	if string(b) != `"09:05"` {
		t.Errorf("json = %s", b)
	}
}
