package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/meinhoongagan/hospital-appointments/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultCacheTTL = 5 * time.Minute

// storeIfNewer writes the hash at KEYS[1] only when the cached revision is
// missing or lower than ARGV[1]. A reader that loaded a row before a status
// write committed therefore cannot overwrite the newer entry.
var storeIfNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'rev')
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'rev', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// cachedAppointmentRepository keeps GetByID results in redis, keyed by id and
// tagged with the row revision. Entries only ever move forward in revision.
type cachedAppointmentRepository struct {
	AppointmentRepository
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewCachedAppointmentRepository(next AppointmentRepository, client *redis.Client, ttl time.Duration, logger *logrus.Logger) AppointmentRepository {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &cachedAppointmentRepository{
		AppointmentRepository: next,
		client:                client,
		ttl:                   ttl,
		logger:                logger,
	}
}

func appointmentKey(id uint) string {
	return fmt.Sprintf("appointment:%d", id)
}

func (r *cachedAppointmentRepository) GetByID(ctx context.Context, id uint) (*models.Appointment, error) {
	key := appointmentKey(id)

	raw, err := r.client.HGet(ctx, key, "data").Bytes()
	if err == nil {
		var appointment models.Appointment
		if err := json.Unmarshal(raw, &appointment); err == nil {
			return &appointment, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		r.logger.WithFields(logrus.Fields{
			"Function":      "GetByID",
			"AppointmentID": id,
			"Error":         err,
		}).Warn("Cache read failed, falling back to database")
	}

	appointment, err := r.AppointmentRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.store(ctx, appointment); err != nil {
		r.logger.WithFields(logrus.Fields{
			"Function":      "GetByID",
			"AppointmentID": id,
			"Error":         err,
		}).Warn("Cache write failed")
	}
	return appointment, nil
}

// UpdateStatus publishes the committed record at its new revision. When the
// write fails the entry is dropped so the next read goes to the database.
func (r *cachedAppointmentRepository) UpdateStatus(ctx context.Context, a *models.Appointment, expectedRevision uint) error {
	if err := r.AppointmentRepository.UpdateStatus(ctx, a, expectedRevision); err != nil {
		r.invalidate(ctx, a.ID)
		return err
	}
	if err := r.store(ctx, a); err != nil {
		r.logger.WithFields(logrus.Fields{
			"Function":      "UpdateStatus",
			"AppointmentID": a.ID,
			"Error":         err,
		}).Warn("Cache refresh failed")
		r.invalidate(ctx, a.ID)
	}
	return nil
}

func (r *cachedAppointmentRepository) store(ctx context.Context, a *models.Appointment) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return storeIfNewer.Run(ctx, r.client, []string{appointmentKey(a.ID)}, a.Revision, data, r.ttl.Milliseconds()).Err()
}

func (r *cachedAppointmentRepository) invalidate(ctx context.Context, id uint) {
	if err := r.client.Del(ctx, appointmentKey(id)).Err(); err != nil {
		r.logger.WithFields(logrus.Fields{
			"Function":      "UpdateStatus",
			"AppointmentID": id,
			"Error":         err,
		}).Warn("Cache invalidation failed")
	}
}
