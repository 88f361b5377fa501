package utils

import "time"

// ToClinicTime converts t into the clinic's zone. A nil location leaves t
// in UTC.
func ToClinicTime(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t.UTC()
	}
	return t.In(loc)
}
