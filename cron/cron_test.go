package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/meinhoongagan/hospital-appointments/logs"
	"github.com/meinhoongagan/hospital-appointments/models"
)

type fakeLister struct {
	appointments []models.Appointment
	err          error
	gotStatus    models.AppointmentStatus
}

func (f *fakeLister) ListByStatusBetween(_ context.Context, status models.AppointmentStatus, _, _ time.Time) ([]models.Appointment, error) {
	f.gotStatus = status
	return f.appointments, f.err
}

type memoryClaimer struct {
	mu    sync.Mutex
	taken map[string]bool
	err   error
}

func (m *memoryClaimer) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.taken == nil {
		m.taken = map[string]bool{}
	}
	if m.taken[key] {
		return false, nil
	}
	m.taken[key] = true
	return true, nil
}

type recordingNotifier struct {
	events []models.AppointmentEvent
}

func (r *recordingNotifier) Notify(_ context.Context, e models.AppointmentEvent) {
	r.events = append(r.events, e)
}

func approvedAt(id uint, start time.Time) models.Appointment {
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	return models.Appointment{
		ID:              id,
		PatientID:       7,
		DoctorID:        3,
		AppointmentDate: day,
		StartTime:       models.TimeOfDay{Hour: start.Hour(), Minute: start.Minute()},
		EndTime:         models.TimeOfDay{Hour: start.Hour() + 1, Minute: start.Minute()},
		Status:          models.StatusApproved,
	}
}

func newJob(lister AppointmentLister, claims Claimer, n Notifier, now time.Time) *ReminderJob {
	job := NewReminderJob(lister, claims, n, logs.Discard(), time.UTC)
	job.Now = func() time.Time { return now }
	return job
}

func TestReminderJob_SendsOnlyInsideWindow(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	lister := &fakeLister{appointments: []models.Appointment{
		approvedAt(1, now.Add(60*time.Minute)),
		approvedAt(2, now.Add(30*time.Minute)),
		approvedAt(3, now.Add(2*time.Hour)),
		approvedAt(4, now.Add(55*time.Minute)),
	}}
	n := &recordingNotifier{}

	sent := newJob(lister, &memoryClaimer{}, n, now).Run(context.Background())

	if sent != 2 || len(n.events) != 2 {
		t.Fatalf("sent = %d, events = %d, want 2", sent, len(n.events))
	}
	if n.events[0].AppointmentID != 1 || n.events[1].AppointmentID != 4 {
		t.Errorf("reminded %d and %d", n.events[0].AppointmentID, n.events[1].AppointmentID)
	}
	if n.events[0].Kind != models.EventReminder {
		t.Errorf("kind = %s", n.events[0].Kind)
	}
	if lister.gotStatus != models.StatusApproved {
		t.Errorf("queried status %s", lister.gotStatus)
	}
}

func TestReminderJob_SendsEachReminderOnce(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	lister := &fakeLister{appointments: []models.Appointment{approvedAt(1, now.Add(62*time.Minute))}}
	claims := &memoryClaimer{}
	n := &recordingNotifier{}

	job := newJob(lister, claims, n, now)
	job.Run(context.Background())

	job.Now = func() time.Time { return now.Add(time.Minute) }
	job.Run(context.Background())

	if len(n.events) != 1 {
		t.Errorf("events = %d, want 1", len(n.events))
	}
}

func TestReminderJob_Failures(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	n := &recordingNotifier{}
	if sent := newJob(&fakeLister{err: errors.New("db down")}, &memoryClaimer{}, n, now).Run(context.Background()); sent != 0 {
		t.Errorf("store failure: sent = %d", sent)
	}

	lister := &fakeLister{appointments: []models.Appointment{approvedAt(1, now.Add(time.Hour))}}
	if sent := newJob(lister, &memoryClaimer{err: errors.New("redis down")}, n, now).Run(context.Background()); sent != 0 {
		t.Errorf("claim failure: sent = %d", sent)
	}
	if len(n.events) != 0 {
		t.Errorf("events = %d, want 0", len(n.events))
	}
}

func TestStartCronJobs_InvalidSpec(t *testing.T) {
	job := NewReminderJob(&fakeLister{}, &memoryClaimer{}, &recordingNotifier{}, logs.Discard(), nil)
	if _, err := StartCronJobs("not a spec", job); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}
