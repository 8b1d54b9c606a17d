package model

import (
	"github.com/google/uuid"
)

// BloodworkType enumerates the checks a medication can mandate before a
// prescription for it may be approved.
type BloodworkType int

const (
	BloodworkFullBloodCount   BloodworkType = 1
	BloodworkBloodPressure    BloodworkType = 2
	BloodworkUreaElectrolytes BloodworkType = 3
)

type Medication struct {
	ID                   uuid.UUID      `db:"medication_id" json:"medication_id"`
	Name                 string         `db:"medication_name" json:"medication_name"`
	BloodworkRequirement *BloodworkType `db:"bloodwork_requirement" json:"bloodwork_requirement,omitempty"`
}

// RequiresBloodwork reports whether prescriptions for this medication are
// gated on a completed bloodwork request.
func (m *Medication) RequiresBloodwork() bool {
	return m.BloodworkRequirement != nil
}
