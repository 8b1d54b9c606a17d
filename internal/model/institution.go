package model

import (
	"github.com/google/uuid"
)

// InstitutionType discriminates the two kinds of registered institutions.
type InstitutionType int

const (
	InstitutionMedicalPractice InstitutionType = 1
	InstitutionPharmacy        InstitutionType = 2
)

// Institution scopes users and prescriptions. Only medical practices may
// issue prescriptions; only pharmacies may fill them.
type Institution struct {
	ID           uuid.UUID       `db:"institution_id" json:"institution_id"`
	Name         string          `db:"name" json:"name"`
	Type         InstitutionType `db:"institution_type" json:"institution_type"`
	AddressLine1 string          `db:"address_line_1" json:"address_line_1"`
	AddressLine2 string          `db:"address_line_2" json:"address_line_2"`
	AddressLine3 *string         `db:"address_line_3" json:"address_line_3,omitempty"`
	AddressLine4 *string         `db:"address_line_4" json:"address_line_4,omitempty"`
	City         string          `db:"city" json:"city"`
	State        string          `db:"state" json:"state"`
	Postcode     string          `db:"postcode" json:"postcode"`
}

// PharmacyAssignment records a patient's preferred pharmacy. One per user.
type PharmacyAssignment struct {
	Username      string    `db:"username" json:"username"`
	InstitutionID uuid.UUID `db:"institution_id" json:"institution_id"`
}
