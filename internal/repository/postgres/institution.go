package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/AxonC/PrescriptionManagementApi/internal/model"
	"github.com/AxonC/PrescriptionManagementApi/internal/repository"
)

type institutionRepository struct {
	BaseRepository
}

func NewInstitutionRepository(base BaseRepository) repository.InstitutionRepository {
	return &institutionRepository{base}
}

const institutionColumns = `
	institution_id, name, institution_type, address_line_1, address_line_2,
	address_line_3, address_line_4, city, state, postcode
`

func (r *institutionRepository) Create(ctx context.Context, institution *model.Institution) error {
	query := `
		INSERT INTO institutions (` + institutionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		institution.ID,
		institution.Name,
		institution.Type,
		institution.AddressLine1,
		institution.AddressLine2,
		institution.AddressLine3,
		institution.AddressLine4,
		institution.City,
		institution.State,
		institution.Postcode,
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (r *institutionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Institution, error) {
	query := `SELECT ` + institutionColumns + ` FROM institutions WHERE institution_id = $1`

	var institution model.Institution
	if err := r.db.GetContext(ctx, &institution, query, id); err != nil {
		return nil, mapError(err)
	}
	return &institution, nil
}

func (r *institutionRepository) GetOfType(ctx context.Context, id uuid.UUID, kind model.InstitutionType) (*model.Institution, error) {
	query := `
		SELECT ` + institutionColumns + `
		FROM institutions
		WHERE institution_id = $1 AND institution_type = $2
	`

	var institution model.Institution
	if err := r.db.GetContext(ctx, &institution, query, id, kind); err != nil {
		return nil, mapError(err)
	}
	return &institution, nil
}

func (r *institutionRepository) List(ctx context.Context, kind model.InstitutionType) ([]*model.Institution, error) {
	query := `SELECT ` + institutionColumns + ` FROM institutions WHERE institution_type = $1 ORDER BY name`

	var institutions []*model.Institution
	if err := r.db.SelectContext(ctx, &institutions, query, kind); err != nil {
		return nil, fmt.Errorf("failed to list institutions: %w", err)
	}
	return institutions, nil
}

func (r *institutionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM institutions WHERE institution_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete institution: %w", err)
	}
	return nil
}

func (r *institutionRepository) SetPharmacyAssignment(ctx context.Context, username string, pharmacyID uuid.UUID) error {
	query := `
		INSERT INTO pharmacy_assignments (username, institution_id)
		VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET institution_id = EXCLUDED.institution_id
	`

	_, err := r.db.ExecContext(ctx, query, username, pharmacyID)
	if err != nil {
		return fmt.Errorf("failed to set pharmacy assignment: %w", err)
	}
	return nil
}

func (r *institutionRepository) GetPharmacyAssignment(ctx context.Context, username string) (*model.PharmacyAssignment, error) {
	query := `SELECT username, institution_id FROM pharmacy_assignments WHERE username = $1`

	var assignment model.PharmacyAssignment
	if err := r.db.GetContext(ctx, &assignment, query, username); err != nil {
		return nil, mapError(err)
	}
	return &assignment, nil
}
