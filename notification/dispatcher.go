package notification

import (
	"context"
	"sync"
	"time"

	"github.com/meinhoongagan/hospital-appointments/models"
	"github.com/sirupsen/logrus"
)

// Sink delivers one event over one transport.
type Sink interface {
	Name() string
	Send(ctx context.Context, event models.AppointmentEvent) error
}

// Dispatcher fans events out to every sink on its own goroutine. Delivery
// failures are logged and dropped; they never reach the caller.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	logger  *logrus.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(logger *logrus.Logger, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{sinks: sinks, timeout: timeout, logger: logger}
}

// Notify returns immediately. The request context is detached so that the
// end of the HTTP request does not abort delivery.
func (d *Dispatcher) Notify(ctx context.Context, event models.AppointmentEvent) {
	base := context.WithoutCancel(ctx)
	for _, sink := range d.sinks {
		d.wg.Add(1)
		go func(s Sink) {
			defer d.wg.Done()
			sendCtx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()

			fields := logrus.Fields{
				"Function":      "Notify",
				"Sink":          s.Name(),
				"EventID":       event.ID,
				"Kind":          event.Kind,
				"AppointmentID": event.AppointmentID,
			}
			if err := s.Send(sendCtx, event); err != nil {
				fields["Error"] = err
				d.logger.WithFields(fields).Error("Notification delivery failed")
				return
			}
			d.logger.WithFields(fields).Debug("Notification delivered")
		}(sink)
	}
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
