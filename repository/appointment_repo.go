package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meinhoongagan/hospital-appointments/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrStaleRevision = errors.New("stale revision")
)

// AppointmentRepository is the durable store for appointments. There is no
// delete: cancelled and rejected appointments stay on record.
type AppointmentRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Appointment, error)
	List(ctx context.Context) ([]models.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uint) ([]models.Appointment, error)
	ListByPatient(ctx context.Context, patientID uint) ([]models.Appointment, error)
	ListByStatusBetween(ctx context.Context, status models.AppointmentStatus, fromDate, toDate time.Time) ([]models.Appointment, error)
	Insert(ctx context.Context, a *models.Appointment) error
	// UpdateStatus writes status and updatedAt only if the stored revision
	// still equals expectedRevision, then bumps the revision.
	UpdateStatus(ctx context.Context, a *models.Appointment, expectedRevision uint) error
}

type appointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) withParticipants(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Patient.User").Preload("Doctor.User")
}

func (r *appointmentRepository) GetByID(ctx context.Context, id uint) (*models.Appointment, error) {
	var appointment models.Appointment
	if err := r.withParticipants(ctx).First(&appointment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) List(ctx context.Context) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.withParticipants(ctx).
		Order("appointment_date, start_time").
		Find(&appointments).Error
	return appointments, err
}

func (r *appointmentRepository) ListByDoctor(ctx context.Context, doctorID uint) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.withParticipants(ctx).
		Where("doctor_id = ?", doctorID).
		Order("appointment_date, start_time").
		Find(&appointments).Error
	return appointments, err
}

func (r *appointmentRepository) ListByPatient(ctx context.Context, patientID uint) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.withParticipants(ctx).
		Where("patient_id = ?", patientID).
		Order("appointment_date, start_time").
		Find(&appointments).Error
	return appointments, err
}

func (r *appointmentRepository) ListByStatusBetween(ctx context.Context, status models.AppointmentStatus, fromDate, toDate time.Time) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.withParticipants(ctx).
		Where("status = ? AND appointment_date BETWEEN ? AND ?",
			status, fromDate.Format("2006-01-02"), toDate.Format("2006-01-02")).
		Find(&appointments).Error
	return appointments, err
}

func (r *appointmentRepository) Insert(ctx context.Context, a *models.Appointment) error {
	a.Revision = 1
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(a).Error; err != nil {
			return err
		}
		return tx.Preload("Patient.User").Preload("Doctor.User").First(a, a.ID).Error
	})
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, a *models.Appointment, expectedRevision uint) error {
	res := r.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND revision = ?", a.ID, expectedRevision).
		Updates(map[string]interface{}{
			"status":     a.Status,
			"updated_at": a.UpdatedAt,
			"revision":   gorm.Expr("revision + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("update appointment %d: %w", a.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", a.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("update appointment %d: %w", a.ID, err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrStaleRevision
	}
	a.Revision = expectedRevision + 1
	return nil
}
