package model

import (
	"github.com/google/uuid"
)

// User is an authenticated actor: patient, practitioner or administrator.
// The username is the natural key and is immutable once created.
type User struct {
	Username      string     `db:"username" json:"username"`
	Name          string     `db:"name" json:"name"`
	Email         string     `db:"email" json:"email"`
	PasswordHash  string     `db:"password" json:"-"`
	InstitutionID *uuid.UUID `db:"institution_id" json:"institution_id,omitempty"`
}

// PendingUser is a registration placeholder created alongside an
// institution or by institution staff. It carries no credential; the
// registration token conversion turns it into a full User.
type PendingUser struct {
	Username      string    `db:"username" json:"username"`
	Name          string    `db:"name" json:"name"`
	Email         string    `db:"email" json:"email"`
	InstitutionID uuid.UUID `db:"institution_id" json:"institution_id"`
}

// UserWithRoles is the institution staff listing projection.
type UserWithRoles struct {
	Username string   `db:"username" json:"username"`
	Name     string   `db:"name" json:"name"`
	Email    string   `db:"email" json:"email"`
	Roles    []string `json:"roles"`
}
