package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/AxonC/PrescriptionManagementApi/internal/model"
	"github.com/AxonC/PrescriptionManagementApi/internal/repository"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `
		SELECT username, name, email, password, institution_id
		FROM users
		WHERE username = $1
	`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (username, name, email, password, institution_id)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.Username,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.InstitutionID,
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (r *userRepository) ListByInstitutionWithRoles(ctx context.Context, institutionID uuid.UUID) ([]*model.UserWithRoles, error) {
	query := `
		SELECT u.username, u.name, u.email,
		       COALESCE(array_agg(r.name) FILTER (WHERE r.name IS NOT NULL), '{}') AS roles
		FROM users u
		LEFT JOIN user_roles ur ON ur.username = u.username
		LEFT JOIN roles r ON r.role_id = ur.role_id
		WHERE u.institution_id = $1
		GROUP BY u.username, u.name, u.email
	`

	rows, err := r.db.QueryxContext(ctx, query, institutionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.UserWithRoles
	for rows.Next() {
		var user model.UserWithRoles
		if err := rows.Scan(&user.Username, &user.Name, &user.Email, pq.Array(&user.Roles)); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, &user)
	}
	return users, rows.Err()
}

func (r *userRepository) GetPendingByUsername(ctx context.Context, username string) (*model.PendingUser, error) {
	query := `
		SELECT username, name, email, institution_id
		FROM pending_users
		WHERE username = $1
	`

	var pending model.PendingUser
	if err := r.db.GetContext(ctx, &pending, query, username); err != nil {
		return nil, mapError(err)
	}
	return &pending, nil
}

func (r *userRepository) CreatePending(ctx context.Context, pending *model.PendingUser) error {
	query := `
		INSERT INTO pending_users (username, name, email, institution_id)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query,
		pending.Username,
		pending.Name,
		pending.Email,
		pending.InstitutionID,
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (r *userRepository) DeletePending(ctx context.Context, username string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_users WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("failed to delete pending user: %w", err)
	}
	return nil
}
