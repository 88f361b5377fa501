package notification

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/meinhoongagan/hospital-appointments/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Mailer is satisfied by *gomail.Dialer.
type Mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

// AppointmentLoader fetches an appointment with its participants' user
// records, which is where the recipient addresses come from.
type AppointmentLoader interface {
	GetByID(ctx context.Context, id uint) (*models.Appointment, error)
}

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

// NewDialer builds the SMTP dialer from config.
func NewDialer(cfg EmailConfig) *gomail.Dialer {
	return gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
}

type EmailSink struct {
	mailer       Mailer
	from         string
	appointments AppointmentLoader
	attempts     int
	backoff      time.Duration
	logger       *logrus.Logger
}

// NewEmailSink sends each message up to 3 times, one second apart.
func NewEmailSink(mailer Mailer, from string, appointments AppointmentLoader, logger *logrus.Logger) *EmailSink {
	return &EmailSink{
		mailer:       mailer,
		from:         from,
		appointments: appointments,
		attempts:     3,
		backoff:      time.Second,
		logger:       logger,
	}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Send(ctx context.Context, event models.AppointmentEvent) error {
	appointment, err := s.appointments.GetByID(ctx, event.AppointmentID)
	if err != nil {
		return fmt.Errorf("load appointment %d: %w", event.AppointmentID, err)
	}

	for _, r := range recipients(event, appointment) {
		subject, body, err := render(event, appointment, r.name)
		if err != nil {
			return err
		}

		m := gomail.NewMessage()
		m.SetAddressHeader("From", s.from, "Hospital Appointment System")
		m.SetHeader("To", r.email)
		m.SetHeader("Subject", subject)
		m.SetBody("text/html", body)

		if err := s.sendWithRetry(ctx, m); err != nil {
			return fmt.Errorf("send to %s: %w", r.email, err)
		}
		s.logger.WithFields(logrus.Fields{
			"Function":      "EmailSink.Send",
			"AppointmentID": event.AppointmentID,
			"To":            r.email,
		}).Info("Email sent")
	}
	return nil
}

func (s *EmailSink) sendWithRetry(ctx context.Context, m *gomail.Message) error {
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if err = s.mailer.DialAndSend(m); err == nil {
			return nil
		}
		if attempt == s.attempts {
			break
		}
		s.logger.WithFields(logrus.Fields{
			"Function": "sendWithRetry",
			"Attempt":  attempt,
			"Error":    err,
		}).Warn("Email send failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff):
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", s.attempts, err)
}

type recipient struct {
	name  string
	email string
}

// recipients: reminders go to the patient, status changes to both sides.
func recipients(event models.AppointmentEvent, a *models.Appointment) []recipient {
	var out []recipient
	if a.Patient != nil && a.Patient.User.Email != "" {
		out = append(out, recipient{name: a.PatientName(), email: a.Patient.User.Email})
	}
	if event.Kind == models.EventReminder {
		return out
	}
	if a.Doctor != nil && a.Doctor.User.Email != "" {
		out = append(out, recipient{name: a.DoctorName(), email: a.Doctor.User.Email})
	}
	return out
}

var bodyTemplate = template.Must(template.New("appointment").Parse(`<p>Dear {{.Name}},</p>
<p>{{.Lead}}</p>
<p><strong>Details:</strong></p>
<ul>
<li><strong>Doctor:</strong> {{.Doctor}}</li>
<li><strong>Patient:</strong> {{.Patient}}</li>
<li><strong>Date:</strong> {{.Date}}</li>
<li><strong>Time:</strong> {{.Start}} - {{.End}}</li>
<li><strong>Status:</strong> {{.Status}}</li>
</ul>
<p>Best regards,</p>
<p>Hospital Appointment System</p>
`))

type bodyData struct {
	Name, Lead      string
	Doctor, Patient string
	Date            string
	Start, End      string
	Status          models.AppointmentStatus
}

// render builds the subject and HTML body. Names come from user input and
// are escaped by the template.
func render(event models.AppointmentEvent, a *models.Appointment, name string) (string, string, error) {
	var subject, lead string
	switch {
	case event.Kind == models.EventReminder:
		subject = "Reminder: Upcoming Appointment"
		lead = "This is a reminder for your upcoming appointment."
	case event.NewStatus == models.StatusApproved:
		subject = "Appointment Approved"
		lead = "Your appointment has been approved."
	case event.NewStatus == models.StatusRejected:
		subject = "Appointment Rejected"
		lead = "Your appointment request has been rejected."
	case event.NewStatus == models.StatusCancelled:
		subject = "Appointment Cancelled"
		lead = "The appointment below has been cancelled."
	default:
		subject = "Appointment Updated"
		lead = fmt.Sprintf("Your appointment is now %s.", event.NewStatus)
	}

	var b strings.Builder
	err := bodyTemplate.Execute(&b, bodyData{
		Name:    name,
		Lead:    lead,
		Doctor:  a.DoctorName(),
		Patient: a.PatientName(),
		Date:    event.AppointmentDate,
		Start:   event.StartTime,
		End:     event.EndTime,
		Status:  event.NewStatus,
	})
	if err != nil {
		return "", "", fmt.Errorf("render email: %w", err)
	}
	return subject, b.String(), nil
}
