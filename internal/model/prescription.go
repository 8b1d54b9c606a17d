package model

import (
	"time"

	"github.com/google/uuid"
)

// Prescription is a repeat prescription moving through the
// created -> approved -> issued lifecycle.
//
// Invariants: IssuedAt and IssuedBy are both set or both unset; IssuedAt set
// implies ApprovedAt set and IssuedAt >= ApprovedAt. Both are enforced by the
// conditional issue update, never by callers.
type Prescription struct {
	ID            uuid.UUID `db:"prescription_id" json:"prescription_id"`
	Username      string    `db:"username" json:"username"`
	MedicationID  uuid.UUID `db:"medication_id" json:"medication_id"`
	TimeStatement string    `db:"time_statement" json:"time_statement"`
	// InstitutionID is the filling pharmacy; CreatedByInstitutionID is the
	// issuing medical practice.
	InstitutionID          uuid.UUID  `db:"institution_id" json:"institution_id"`
	CreatedByInstitutionID uuid.UUID  `db:"created_by_institution_id" json:"created_by_institution_id"`
	ApprovedAt             *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	IssuedAt               *time.Time `db:"issued_at" json:"issued_at,omitempty"`
	IssuedBy               *string    `db:"issued_by" json:"issued_by,omitempty"`
	ShortCode              string     `db:"short_code" json:"short_code"`
}

// Approved reports whether the prescription has passed the bloodwork gate.
func (p *Prescription) Approved() bool {
	return p.ApprovedAt != nil
}

// Issued reports whether medication has been handed out for this
// prescription. No transition exists out of this state.
func (p *Prescription) Issued() bool {
	return p.IssuedAt != nil || p.IssuedBy != nil
}

// PrescriptionListing is the institution listing projection with joined
// medication, patient and bloodwork details.
type PrescriptionListing struct {
	Prescription
	MedicationName       string         `db:"medication_name" json:"medication_name"`
	BloodworkRequirement *BloodworkType `db:"bloodwork_requirement" json:"bloodwork_requirement,omitempty"`
	PatientName          string         `db:"patient_name" json:"patient_name"`
	BloodworkRequestID   *uuid.UUID     `db:"request_id" json:"request_id,omitempty"`
}

// DashboardEntry is the patient dashboard projection.
type DashboardEntry struct {
	PrescriptionID       uuid.UUID      `db:"prescription_id" json:"prescription_id"`
	PharmacyName         string         `db:"pharmacy_name" json:"pharmacy_name"`
	MedicationName       string         `db:"medication_name" json:"medication_name"`
	BloodworkRequirement *BloodworkType `db:"bloodwork_requirement" json:"bloodwork_requirement,omitempty"`
	ApprovedAt           *time.Time     `db:"approved_at" json:"approved_at,omitempty"`
	IssuedAt             *time.Time     `db:"issued_at" json:"issued_at,omitempty"`
	BloodworkCompletedAt *time.Time     `db:"bloodwork_completed_at" json:"bloodwork_completed_at,omitempty"`
}

// ReminderCandidate is the projection scanned by the reminder worker:
// every approved prescription with the contact details needed to notify.
type ReminderCandidate struct {
	PrescriptionID uuid.UUID `db:"prescription_id" json:"prescription_id"`
	TimeStatement  string    `db:"time_statement" json:"time_statement"`
	Username       string    `db:"username" json:"username"`
	PatientName    string    `db:"patient_name" json:"patient_name"`
	Email          string    `db:"email" json:"email"`
	MedicationName string    `db:"medication_name" json:"medication_name"`
	ShortCode      string    `db:"short_code" json:"short_code"`
}
