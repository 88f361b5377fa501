package models

import (
	"time"
)

// User holds identity and login fields shared by every role. Role-specific
// data lives in Patient and Doctor profiles that reference the user by id.
type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email" gorm:"unique;not null"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	Password    string    `json:"-"`
	Role        Role      `json:"role" gorm:"type:varchar(16);not null;index"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FullName is the display name used on appointment listings.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
