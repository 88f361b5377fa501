package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/meinhoongagan/hospital-appointments/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedAdmin creates the administrator account if no user holds email yet.
// It reports whether a user was created.
func SeedAdmin(ctx context.Context, db *gorm.DB, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, errors.New("admin email and password are required")
	}

	var existing models.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to look up admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}
	admin := models.User{
		FirstName: "Admin",
		LastName:  "User",
		Email:     email,
		Password:  string(hash),
		Role:      models.RoleAdmin,
	}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return false, fmt.Errorf("failed to create admin: %w", err)
	}
	return true, nil
}
