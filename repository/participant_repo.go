package repository

import (
	"context"
	"errors"

	"github.com/meinhoongagan/hospital-appointments/models"
	"gorm.io/gorm"
)

// ParticipantRepository resolves the patient and doctor profiles an
// appointment refers to, and the user accounts behind them.
type ParticipantRepository interface {
	FindPatient(ctx context.Context, id uint) (*models.Patient, error)
	FindDoctor(ctx context.Context, id uint) (*models.Doctor, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	// ProfileRef returns the patient or doctor id for the user, or the user
	// id itself for admins.
	ProfileRef(ctx context.Context, user *models.User) (uint, error)
}

type participantRepository struct {
	db *gorm.DB
}

func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) FindPatient(ctx context.Context, id uint) (*models.Patient, error) {
	var patient models.Patient
	if err := r.db.WithContext(ctx).Preload("User").First(&patient, id).Error; err != nil {
		return nil, translate(err)
	}
	return &patient, nil
}

func (r *participantRepository) FindDoctor(ctx context.Context, id uint) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := r.db.WithContext(ctx).Preload("User").First(&doctor, id).Error; err != nil {
		return nil, translate(err)
	}
	return &doctor, nil
}

func (r *participantRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *participantRepository) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *participantRepository) ProfileRef(ctx context.Context, user *models.User) (uint, error) {
	switch user.Role {
	case models.RolePatient:
		var patient models.Patient
		if err := r.db.WithContext(ctx).Where("user_id = ?", user.ID).First(&patient).Error; err != nil {
			return 0, translate(err)
		}
		return patient.ID, nil
	case models.RoleDoctor:
		var doctor models.Doctor
		if err := r.db.WithContext(ctx).Where("user_id = ?", user.ID).First(&doctor).Error; err != nil {
			return 0, translate(err)
		}
		return doctor.ID, nil
	}
	return user.ID, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
