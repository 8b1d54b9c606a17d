package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/AxonC/PrescriptionManagementApi/internal/model"
	"github.com/AxonC/PrescriptionManagementApi/internal/repository"
)

type medicationRepository struct {
	BaseRepository
}

func NewMedicationRepository(base BaseRepository) repository.MedicationRepository {
	return &medicationRepository{base}
}

func (r *medicationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Medication, error) {
	query := `
		SELECT medication_id, medication_name, bloodwork_requirement
		FROM medications
		WHERE medication_id = $1
	`

	var medication model.Medication
	if err := r.db.GetContext(ctx, &medication, query, id); err != nil {
		return nil, mapError(err)
	}
	return &medication, nil
}

func (r *medicationRepository) List(ctx context.Context) ([]*model.Medication, error) {
	query := `
		SELECT medication_id, medication_name, bloodwork_requirement
		FROM medications
		ORDER BY medication_name
	`

	var medications []*model.Medication
	if err := r.db.SelectContext(ctx, &medications, query); err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	return medications, nil
}
