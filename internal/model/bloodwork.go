package model

import (
	"time"

	"github.com/google/uuid"
)

// BloodworkRequest gates approval of its prescription: while CompletedAt is
// null the prescription cannot be approved. At most one request exists per
// prescription.
type BloodworkRequest struct {
	ID             uuid.UUID     `db:"request_id" json:"request_id"`
	PracticeID     uuid.UUID     `db:"practice_id" json:"practice_id"`
	PrescriptionID uuid.UUID     `db:"prescription_id" json:"prescription_id"`
	Type           BloodworkType `db:"request_type" json:"request_type"`
	CompletedAt    *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
}

// Completed reports whether the request has been carried out. A request is
// completed exactly once.
func (r *BloodworkRequest) Completed() bool {
	return r.CompletedAt != nil
}

// BloodworkListing is the practice worklist projection.
type BloodworkListing struct {
	BloodworkRequest
	Username       string `db:"username" json:"username"`
	PatientName    string `db:"patient_name" json:"patient_name"`
	PharmacyName   string `db:"pharmacy_name" json:"pharmacy_name"`
	MedicationName string `db:"medication_name" json:"medication_name"`
}
