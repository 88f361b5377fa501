package models

import "strings"

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// ParseRole is case-insensitive, so "Doctor" from older tokens still resolves.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return r, true
	}
	return "", false
}

func (r Role) String() string {
	return string(r)
}
