package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AxonC/PrescriptionManagementApi/internal/model"
	"github.com/AxonC/PrescriptionManagementApi/internal/repository"
)

type bloodworkRepository struct {
	BaseRepository
}

func NewBloodworkRepository(base BaseRepository) repository.BloodworkRepository {
	return &bloodworkRepository{base}
}

func (r *bloodworkRepository) Create(ctx context.Context, request *model.BloodworkRequest) error {
	query := `
		INSERT INTO blood_requests (request_id, practice_id, prescription_id, request_type, completed_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		request.ID,
		request.PracticeID,
		request.PrescriptionID,
		request.Type,
		request.CompletedAt,
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (r *bloodworkRepository) Get(ctx context.Context, id uuid.UUID) (*model.BloodworkRequest, error) {
	query := `
		SELECT request_id, practice_id, prescription_id, request_type, completed_at
		FROM blood_requests
		WHERE request_id = $1
	`

	var request model.BloodworkRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, mapError(err)
	}
	return &request, nil
}

func (r *bloodworkRepository) GetForPrescription(ctx context.Context, prescriptionID uuid.UUID) (*model.BloodworkRequest, error) {
	query := `
		SELECT request_id, practice_id, prescription_id, request_type, completed_at
		FROM blood_requests
		WHERE prescription_id = $1
	`

	var request model.BloodworkRequest
	if err := r.db.GetContext(ctx, &request, query, prescriptionID); err != nil {
		return nil, mapError(err)
	}
	return &request, nil
}

func (r *bloodworkRepository) ListByPractice(ctx context.Context, practiceID uuid.UUID, completed bool) ([]*model.BloodworkListing, error) {
	query := `
		SELECT br.request_id, br.practice_id, br.prescription_id, br.request_type, br.completed_at,
		       rp.username, u.name AS patient_name, i.name AS pharmacy_name, m.medication_name
		FROM blood_requests br
		JOIN repeat_prescriptions rp USING (prescription_id)
		JOIN users u ON u.username = rp.username
		JOIN institutions i ON i.institution_id = rp.institution_id
		JOIN medications m ON m.medication_id = rp.medication_id
		WHERE br.practice_id = $1
		  AND (br.completed_at IS NOT NULL) = $2
	`

	var listings []*model.BloodworkListing
	if err := r.db.SelectContext(ctx, &listings, query, practiceID, completed); err != nil {
		return nil, fmt.Errorf("failed to list bloodwork requests: %w", err)
	}
	return listings, nil
}

// MarkCompleted transitions an incomplete request exactly once.
func (r *bloodworkRepository) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE blood_requests
		SET completed_at = $1
		WHERE request_id = $2 AND completed_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return false, fmt.Errorf("failed to complete bloodwork request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read completion result: %w", err)
	}
	return rows == 1, nil
}
