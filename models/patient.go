package models

import "time"

type Patient struct {
	ID                    uint      `json:"id" gorm:"primaryKey"`
	UserID                uint      `json:"userId" gorm:"uniqueIndex;not null"`
	User                  User      `json:"user" gorm:"foreignKey:UserID"`
	DateOfBirth           time.Time `json:"dateOfBirth" gorm:"type:date"`
	Address               string    `json:"address"`
	InsuranceProvider     string    `json:"insuranceProvider"`
	InsurancePolicyNumber string    `json:"insurancePolicyNumber"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}
