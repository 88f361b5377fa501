package db

import (
	"fmt"

	"github.com/meinhoongagan/hospital-appointments/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the schema. It only runs from the migrate
// command, never on server start.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Patient{},
		&models.Doctor{},
		&models.Schedule{},
		&models.Appointment{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
