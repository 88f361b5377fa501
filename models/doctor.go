package models

import "time"

type Doctor struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	UserID         uint       `json:"userId" gorm:"uniqueIndex;not null"`
	User           User       `json:"user" gorm:"foreignKey:UserID"`
	Specialization string     `json:"specialization"`
	LicenseNumber  string     `json:"licenseNumber"`
	Schedules      []Schedule `json:"schedules,omitempty" gorm:"foreignKey:DoctorID"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}
