package model

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationKind names the staff or patient role a pending user is being
// registered for. It selects the signup email template, the permission
// required of the registering user and the builtin role granted on
// conversion.
type RegistrationKind string

const (
	RegistrationGP                           RegistrationKind = "GP"
	RegistrationPatient                      RegistrationKind = "PATIENT"
	RegistrationMedicalPracticeAdministrator RegistrationKind = "MEDICAL_PRACTICE_ADMINISTRATOR"
	RegistrationHeadPharmacist               RegistrationKind = "HEAD_PHARMACIST"
	RegistrationPharmacist                   RegistrationKind = "PHARMACIST"
	RegistrationPharmacyTechnician           RegistrationKind = "PHARMACY_TECHNICIAN"
)

// RoleName maps a registration kind to the builtin role assigned when the
// pending user converts. Unknown kinds map to the empty string.
func (k RegistrationKind) RoleName() string {
	switch k {
	case RegistrationGP:
		return RoleGP
	case RegistrationPatient:
		return RolePatient
	case RegistrationMedicalPracticeAdministrator:
		return RoleMedicalPracticeAdministrator
	case RegistrationHeadPharmacist:
		return RoleHeadPharmacist
	case RegistrationPharmacist:
		return RolePharmacist
	case RegistrationPharmacyTechnician:
		return RolePharmacyTechnician
	}
	return ""
}

// RegistrationToken authorizes converting one pending user into a full
// account. Deleted with the pending user row on conversion.
type RegistrationToken struct {
	ID        uuid.UUID        `db:"token_id" json:"token_id"`
	Kind      RegistrationKind `db:"token_type" json:"token_type"`
	Username  string           `db:"username" json:"username"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
