package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AxonC/PrescriptionManagementApi/internal/model"
	"github.com/AxonC/PrescriptionManagementApi/internal/repository"
)

type registrationTokenRepository struct {
	BaseRepository
}

func NewRegistrationTokenRepository(base BaseRepository) repository.RegistrationTokenRepository {
	return &registrationTokenRepository{base}
}

func (r *registrationTokenRepository) Create(ctx context.Context, token *model.RegistrationToken) error {
	query := `INSERT INTO registration_tokens (token_id, token_type, username, created_at) VALUES ($1, $2, $3, NOW())`

	if _, err := r.db.ExecContext(ctx, query, token.ID, token.Kind, token.Username); err != nil {
		return mapError(err)
	}
	return nil
}

func (r *registrationTokenRepository) Get(ctx context.Context, id uuid.UUID) (*model.RegistrationToken, error) {
	query := `SELECT token_id, token_type, username, created_at FROM registration_tokens WHERE token_id = $1`

	var token model.RegistrationToken
	if err := r.db.GetContext(ctx, &token, query, id); err != nil {
		return nil, mapError(err)
	}
	return &token, nil
}

func (r *registrationTokenRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM registration_tokens WHERE created_at < $1`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, mapError(err)
	}
	return result.RowsAffected()
}
