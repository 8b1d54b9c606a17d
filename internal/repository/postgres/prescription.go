package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AxonC/PrescriptionManagementApi/internal/model"
	"github.com/AxonC/PrescriptionManagementApi/internal/repository"
)

type prescriptionRepository struct {
	BaseRepository
}

func NewPrescriptionRepository(base BaseRepository) repository.PrescriptionRepository {
	return &prescriptionRepository{base}
}

const prescriptionColumns = `
	prescription_id, username, medication_id, time_statement, institution_id,
	created_by_institution_id, approved_at, issued_at, issued_by, short_code
`

func (r *prescriptionRepository) Create(ctx context.Context, prescription *model.Prescription) error {
	query := `
		INSERT INTO repeat_prescriptions (` + prescriptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		prescription.ID,
		prescription.Username,
		prescription.MedicationID,
		prescription.TimeStatement,
		prescription.InstitutionID,
		prescription.CreatedByInstitutionID,
		prescription.ApprovedAt,
		prescription.IssuedAt,
		prescription.IssuedBy,
		prescription.ShortCode,
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (r *prescriptionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	query := `SELECT ` + prescriptionColumns + ` FROM repeat_prescriptions WHERE prescription_id = $1`

	var prescription model.Prescription
	if err := r.db.GetContext(ctx, &prescription, query, id); err != nil {
		return nil, mapError(err)
	}
	return &prescription, nil
}

func (r *prescriptionRepository) GetByShortCode(ctx context.Context, shortCode string) (*model.Prescription, error) {
	query := `SELECT ` + prescriptionColumns + ` FROM repeat_prescriptions WHERE short_code = $1`

	var prescription model.Prescription
	if err := r.db.GetContext(ctx, &prescription, query, shortCode); err != nil {
		return nil, mapError(err)
	}
	return &prescription, nil
}

// Update only supports the two modifiable fields.
func (r *prescriptionRepository) Update(ctx context.Context, prescription *model.Prescription) error {
	query := `
		UPDATE repeat_prescriptions
		SET time_statement = $1, medication_id = $2
		WHERE prescription_id = $3
	`

	_, err := r.db.ExecContext(ctx, query,
		prescription.TimeStatement,
		prescription.MedicationID,
		prescription.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update prescription: %w", err)
	}
	return nil
}

func (r *prescriptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM repeat_prescriptions WHERE prescription_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete prescription: %w", err)
	}
	return nil
}

func (r *prescriptionRepository) ListByInstitution(ctx context.Context, institutionID uuid.UUID) ([]*model.PrescriptionListing, error) {
	query := `
		SELECT rp.prescription_id, rp.username, rp.medication_id, rp.time_statement,
		       rp.institution_id, rp.created_by_institution_id, rp.approved_at,
		       rp.issued_at, rp.issued_by, rp.short_code,
		       m.medication_name, m.bloodwork_requirement,
		       u.name AS patient_name, br.request_id
		FROM repeat_prescriptions rp
		JOIN medications m USING (medication_id)
		JOIN users u USING (username)
		LEFT JOIN blood_requests br USING (prescription_id)
		WHERE rp.institution_id = $1 OR rp.created_by_institution_id = $1
	`

	var listings []*model.PrescriptionListing
	if err := r.db.SelectContext(ctx, &listings, query, institutionID); err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return listings, nil
}

func (r *prescriptionRepository) ListByUser(ctx context.Context, username string) ([]*model.DashboardEntry, error) {
	query := `
		SELECT rp.prescription_id, i.name AS pharmacy_name, m.medication_name,
		       m.bloodwork_requirement, rp.approved_at, rp.issued_at,
		       br.completed_at AS bloodwork_completed_at
		FROM repeat_prescriptions rp
		JOIN medications m USING (medication_id)
		JOIN institutions i USING (institution_id)
		LEFT JOIN blood_requests br USING (prescription_id)
		WHERE rp.username = $1
	`

	var entries []*model.DashboardEntry
	if err := r.db.SelectContext(ctx, &entries, query, username); err != nil {
		return nil, fmt.Errorf("failed to list prescriptions for user: %w", err)
	}
	return entries, nil
}

func (r *prescriptionRepository) ListReminderCandidates(ctx context.Context) ([]*model.ReminderCandidate, error) {
	query := `
		SELECT rp.prescription_id, rp.time_statement, rp.username,
		       u.name AS patient_name, u.email, m.medication_name, rp.short_code
		FROM repeat_prescriptions rp
		JOIN users u USING (username)
		JOIN medications m USING (medication_id)
		WHERE rp.approved_at IS NOT NULL
	`

	var candidates []*model.ReminderCandidate
	if err := r.db.SelectContext(ctx, &candidates, query); err != nil {
		return nil, fmt.Errorf("failed to list reminder candidates: %w", err)
	}
	return candidates, nil
}

// MarkApproved transitions only while the row is unapproved and no
// incomplete bloodwork request gates it, closing the read-then-decide race
// against concurrent approvals and completions.
func (r *prescriptionRepository) MarkApproved(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE repeat_prescriptions
		SET approved_at = $1
		WHERE prescription_id = $2
		  AND approved_at IS NULL
		  AND NOT EXISTS (
			SELECT 1 FROM blood_requests br
			WHERE br.prescription_id = $2 AND br.completed_at IS NULL
		  )
	`

	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return false, fmt.Errorf("failed to approve prescription: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read approve result: %w", err)
	}
	return rows == 1, nil
}

// MarkIssued transitions only from approved-and-unissued, guaranteeing
// issued_at/issued_by are set together and never before approval.
func (r *prescriptionRepository) MarkIssued(ctx context.Context, id uuid.UUID, issuedBy string, at time.Time) (bool, error) {
	query := `
		UPDATE repeat_prescriptions
		SET issued_at = $1, issued_by = $2
		WHERE prescription_id = $3
		  AND issued_at IS NULL
		  AND issued_by IS NULL
		  AND approved_at IS NOT NULL
	`

	result, err := r.db.ExecContext(ctx, query, at, issuedBy, id)
	if err != nil {
		return false, fmt.Errorf("failed to issue prescription: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read issue result: %w", err)
	}
	return rows == 1, nil
}
