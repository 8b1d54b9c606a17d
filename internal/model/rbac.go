package model

import (
	"github.com/google/uuid"
)

// PermissionWildcard grants every permission when present on any of a
// user's roles.
const PermissionWildcard = "*"

type Role struct {
	ID          uuid.UUID `db:"role_id" json:"role_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
}

type Permission struct {
	ID   uuid.UUID `db:"permission_id" json:"permission_id"`
	Name string    `db:"name" json:"name"`
}

// RoleWithPermissions is the role detail projection.
type RoleWithPermissions struct {
	Role
	Permissions []Permission `json:"permissions"`
}

// Builtin role names assigned during registration conversion. These roles
// are seeded by the database init scripts.
const (
	RoleGP                           = "gp"
	RolePatient                      = "patient"
	RoleMedicalPracticeAdministrator = "medical-practice-administrator"
	RoleHeadPharmacist               = "head-pharmacist"
	RolePharmacist                   = "pharmacist"
	RolePharmacyTechnician           = "pharmacy-technician"
)
