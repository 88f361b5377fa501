package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/meinhoongagan/hospital-appointments/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// AppointmentLister is the slice of the appointment store the reminder job
// reads from.
type AppointmentLister interface {
	ListByStatusBetween(ctx context.Context, status models.AppointmentStatus, fromDate, toDate time.Time) ([]models.Appointment, error)
}

// Claimer guards against sending the same reminder twice.
type Claimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type Notifier interface {
	Notify(ctx context.Context, event models.AppointmentEvent)
}

// ReminderJob notifies patients of approved appointments starting in
// roughly one hour.
type ReminderJob struct {
	Appointments AppointmentLister
	Claims       Claimer
	Notifier     Notifier
	Logger       *logrus.Logger
	Location     *time.Location
	Now          func() time.Time

	// Appointments starting in [From, To) from now are reminded.
	From time.Duration
	To   time.Duration
}

func NewReminderJob(appointments AppointmentLister, claims Claimer, notifier Notifier, logger *logrus.Logger, loc *time.Location) *ReminderJob {
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderJob{
		Appointments: appointments,
		Claims:       claims,
		Notifier:     notifier,
		Logger:       logger,
		Location:     loc,
		Now:          time.Now,
		From:         55 * time.Minute,
		To:           65 * time.Minute,
	}
}

// StartCronJobs schedules the reminder job on spec and starts the
// scheduler. Callers stop it with Stop().
func StartCronJobs(spec string, job *ReminderJob) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(job.Location))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		job.Run(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add cron job: %w", err)
	}
	c.Start()
	job.Logger.WithField("Spec", spec).Info("Cron job scheduler started for appointment reminders")
	return c, nil
}

// Run sends every due reminder once and returns how many were sent.
func (j *ReminderJob) Run(ctx context.Context) int {
	now := j.Now().In(j.Location)
	startWindow := now.Add(j.From)
	endWindow := now.Add(j.To)

	appointments, err := j.Appointments.ListByStatusBetween(ctx, models.StatusApproved, startWindow, endWindow)
	if err != nil {
		j.Logger.WithFields(logrus.Fields{
			"Function": "ReminderJob.Run",
			"Error":    err,
		}).Error("Error fetching appointments for reminders")
		return 0
	}

	sent := 0
	for i := range appointments {
		a := &appointments[i]
		starts := a.StartsAt(j.Location)
		if starts.Before(startWindow) || !starts.Before(endWindow) {
			continue
		}

		key := fmt.Sprintf("%d:%s", a.ID, starts.UTC().Format(time.RFC3339))
		ok, err := j.Claims.Claim(ctx, key, 2*j.To)
		if err != nil {
			j.Logger.WithFields(logrus.Fields{
				"Function":      "ReminderJob.Run",
				"AppointmentID": a.ID,
				"Error":         err,
			}).Warn("Could not claim reminder, skipping")
			continue
		}
		if !ok {
			continue
		}

		j.Notifier.Notify(ctx, models.NewAppointmentEvent(models.EventReminder, a, "", now))
		sent++
	}

	if sent > 0 {
		j.Logger.WithFields(logrus.Fields{
			"Function": "ReminderJob.Run",
			"Count":    sent,
		}).Info("Sent appointment reminders")
	}
	return sent
}
