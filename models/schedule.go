package models

import (
	"gorm.io/gorm"
)

type DayOfWeek int

const (
	Sunday DayOfWeek = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// Schedule is a doctor's weekly working window. Appointment creation does
// not consult it.
type Schedule struct {
	gorm.Model
	DoctorID    uint      `json:"doctorId" gorm:"index;not null"`
	DayOfWeek   DayOfWeek `json:"dayOfWeek"`
	StartTime   TimeOfDay `json:"startTime" gorm:"type:varchar(5)"`
	EndTime     TimeOfDay `json:"endTime" gorm:"type:varchar(5)"`
	IsAvailable bool      `json:"isAvailable" gorm:"default:true"`
}
