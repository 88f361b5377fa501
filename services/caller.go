package services

import "github.com/meinhoongagan/hospital-appointments/models"

// IdentityContext supplies the authenticated caller's role and profile
// reference (patient id, doctor id, or user id for admins).
type IdentityContext interface {
	CurrentRole() models.Role
	CurrentRef() uint
}

// Caller is the IdentityContext built from a verified token.
type Caller struct {
	UserID uint
	Role   models.Role
	Ref    uint
}

func (c Caller) CurrentRole() models.Role { return c.Role }

func (c Caller) CurrentRef() uint { return c.Ref }

func isAdmin(id IdentityContext) bool {
	return id.CurrentRole() == models.RoleAdmin
}
