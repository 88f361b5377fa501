package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/meinhoongagan/hospital-appointments/logs"
	"github.com/meinhoongagan/hospital-appointments/models"
	"github.com/segmentio/kafka-go"
	"gopkg.in/gomail.v2"
)

func sampleAppointment() *models.Appointment {
	return &models.Appointment{
		ID:              42,
		PatientID:       7,
		DoctorID:        3,
		AppointmentDate: time.Date(2026, 10, 29, 0, 0, 0, 0, time.UTC),
		StartTime:       models.TimeOfDay{Hour: 9},
		EndTime:         models.TimeOfDay{Hour: 9, Minute: 30},
		Status:          models.StatusApproved,
		Patient: &models.Patient{ID: 7, User: models.User{
			FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		}},
		Doctor: &models.Doctor{ID: 3, User: models.User{
			FirstName: "Gregory", LastName: "House", Email: "house@example.com",
		}},
	}
}

func sampleEvent(kind models.EventKind) models.AppointmentEvent {
	return models.NewAppointmentEvent(kind, sampleAppointment(), models.StatusPending, time.Now())
}

// ---------------------------------------------------------------------------
// Dispatcher
// ---------------------------------------------------------------------------

type recordingSink struct {
	name   string
	err    error
	block  chan struct{}
	mu     sync.Mutex
	events []models.AppointmentEvent
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Send(ctx context.Context, e models.AppointmentEvent) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestDispatcher_FansOut(t *testing.T) {
	ok := &recordingSink{name: "ok"}
	failing := &recordingSink{name: "failing", err: errors.New("smtp down")}
	d := NewDispatcher(logs.Discard(), time.Second, ok, failing)

	d.Notify(context.Background(), sampleEvent(models.EventStatusChanged))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if ok.count() != 1 || failing.count() != 1 {
		t.Errorf("deliveries = %d/%d, want 1/1", ok.count(), failing.count())
	}
}

func TestDispatcher_NotifyDoesNotBlock(t *testing.T) {
	slow := &recordingSink{name: "slow", block: make(chan struct{})}
	d := NewDispatcher(logs.Discard(), time.Second, slow)

	done := make(chan struct{})
	go func() {
		d.Notify(context.Background(), sampleEvent(models.EventStatusChanged))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Notify blocked on a slow sink")
	}
	close(slow.block)
	if err := d.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

func TestDispatcher_SurvivesCancelledRequestContext(t *testing.T) {
	sink := &recordingSink{name: "sink", block: make(chan struct{})}
	d := NewDispatcher(logs.Discard(), time.Second, sink)

	ctx, cancel := context.WithCancel(context.Background())
	d.Notify(ctx, sampleEvent(models.EventStatusChanged))
	cancel()
	close(sink.block)

	if err := d.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if sink.count() != 1 {
		t.Errorf("delivery aborted by request cancellation")
	}
}

// ---------------------------------------------------------------------------
// Email
// ---------------------------------------------------------------------------

type fakeMailer struct {
	failures int
	calls    int
	sent     []*gomail.Message
}

func (m *fakeMailer) DialAndSend(msgs ...*gomail.Message) error {
	m.calls++
	if m.calls <= m.failures {
		return errors.New("connection reset")
	}
	m.sent = append(m.sent, msgs...)
	return nil
}

type stubLoader struct {
	appointment *models.Appointment
	err         error
}

func (l stubLoader) GetByID(context.Context, uint) (*models.Appointment, error) {
	return l.appointment, l.err
}

func newTestEmailSink(mailer Mailer, loader AppointmentLoader) *EmailSink {
	s := NewEmailSink(mailer, "noreply@hospital.test", loader, logs.Discard())
	s.backoff = time.Millisecond
	return s
}

func TestEmailSink_StatusChangeGoesToBothParticipants(t *testing.T) {
	mailer := &fakeMailer{}
	s := newTestEmailSink(mailer, stubLoader{appointment: sampleAppointment()})

	if err := s.Send(context.Background(), sampleEvent(models.EventStatusChanged)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(mailer.sent))
	}
	to := []string{mailer.sent[0].GetHeader("To")[0], mailer.sent[1].GetHeader("To")[0]}
	if to[0] != "ada@example.com" || to[1] != "house@example.com" {
		t.Errorf("recipients = %v", to)
	}
	if subj := mailer.sent[0].GetHeader("Subject")[0]; subj != "Appointment Approved" {
		t.Errorf("subject = %q", subj)
	}
}

func TestEmailSink_ReminderGoesToPatientOnly(t *testing.T) {
	mailer := &fakeMailer{}
	s := newTestEmailSink(mailer, stubLoader{appointment: sampleAppointment()})

	if err := s.Send(context.Background(), sampleEvent(models.EventReminder)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].GetHeader("To")[0] != "ada@example.com" {
		t.Fatalf("unexpected reminder recipients")
	}
}

func TestEmailSink_RetriesTransientFailures(t *testing.T) {
	mailer := &fakeMailer{failures: 2}
	a := sampleAppointment()
	a.Doctor = nil
	s := newTestEmailSink(mailer, stubLoader{appointment: a})

	if err := s.Send(context.Background(), sampleEvent(models.EventStatusChanged)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if mailer.calls != 3 {
		t.Errorf("calls = %d, want 3", mailer.calls)
	}
}

func TestEmailSink_GivesUpAfterThreeAttempts(t *testing.T) {
	mailer := &fakeMailer{failures: 10}
	a := sampleAppointment()
	a.Doctor = nil
	s := newTestEmailSink(mailer, stubLoader{appointment: a})

	if err := s.Send(context.Background(), sampleEvent(models.EventStatusChanged)); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if mailer.calls != 3 {
		t.Errorf("calls = %d, want 3", mailer.calls)
	}
}

func TestEmailSink_LoadFailure(t *testing.T) {
	s := newTestEmailSink(&fakeMailer{}, stubLoader{err: errors.New("db down")})
	if err := s.Send(context.Background(), sampleEvent(models.EventStatusChanged)); err == nil {
		t.Fatal("expected error")
	}
}

func TestRender_EscapesNames(t *testing.T) {
	a := sampleAppointment()
	a.Patient.User.FirstName = "<script>alert(1)</script>"
	a.Doctor.User.LastName = `"House" & Co`

	_, body, err := render(sampleEvent(models.EventStatusChanged), a, a.PatientName())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(body, "<script>") {
		t.Fatalf("raw markup in body:\n%s", body)
	}
	for _, want := range []string{
		"<p>Dear &lt;script&gt;alert(1)&lt;/script&gt; Lovelace,</p>",
		"<li><strong>Doctor:</strong> Gregory &#34;House&#34; &amp; Co</li>",
		"<li><strong>Time:</strong> 09:00 - 09:30</li>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

// ---------------------------------------------------------------------------
// Kafka
// ---------------------------------------------------------------------------

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaSink_Send(t *testing.T) {
	w := &fakeWriter{}
	k := NewKafkaSink(w)
	event := sampleEvent(models.EventStatusChanged)

	if err := k.Send(context.Background(), event); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "42" {
		t.Errorf("key = %q, want 42", msg.Key)
	}

	var decoded models.AppointmentEvent
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != event.ID || decoded.NewStatus != models.StatusApproved || decoded.Kind != models.EventStatusChanged {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestKafkaSink_WriteError(t *testing.T) {
	k := NewKafkaSink(&fakeWriter{err: errors.New("broker unavailable")})
	if err := k.Send(context.Background(), sampleEvent(models.EventStatusChanged)); err == nil {
		t.Fatal("expected error")
	}
}
