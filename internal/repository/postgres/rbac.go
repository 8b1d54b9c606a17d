package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AxonC/PrescriptionManagementApi/internal/model"
	"github.com/AxonC/PrescriptionManagementApi/internal/repository"
)

type rbacRepository struct {
	BaseRepository
}

func NewRBACRepository(base BaseRepository) repository.RBACRepository {
	return &rbacRepository{base}
}

func (r *rbacRepository) CreateRole(ctx context.Context, role *model.Role) error {
	query := `INSERT INTO roles (role_id, name, description) VALUES ($1, $2, $3)`

	_, err := r.db.ExecContext(ctx, query, role.ID, role.Name, role.Description)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (r *rbacRepository) GetRole(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	query := `SELECT role_id, name, description FROM roles WHERE role_id = $1`

	var role model.Role
	if err := r.db.GetContext(ctx, &role, query, id); err != nil {
		return nil, mapError(err)
	}
	return &role, nil
}

func (r *rbacRepository) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	query := `SELECT role_id, name, description FROM roles WHERE name = $1`

	var role model.Role
	if err := r.db.GetContext(ctx, &role, query, name); err != nil {
		return nil, mapError(err)
	}
	return &role, nil
}

func (r *rbacRepository) ListRoles(ctx context.Context) ([]*model.Role, error) {
	var roles []*model.Role
	if err := r.db.SelectContext(ctx, &roles, `SELECT role_id, name, description FROM roles ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

func (r *rbacRepository) ListPermissions(ctx context.Context) ([]*model.Permission, error) {
	var permissions []*model.Permission
	if err := r.db.SelectContext(ctx, &permissions, `SELECT permission_id, name FROM permissions ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return permissions, nil
}

func (r *rbacRepository) GetUserRoles(ctx context.Context, username string) ([]*model.Role, error) {
	query := `
		SELECT r.role_id, r.name, r.description
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.role_id
		WHERE ur.username = $1
	`

	var roles []*model.Role
	if err := r.db.SelectContext(ctx, &roles, query, username); err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	return roles, nil
}

func (r *rbacRepository) GetRolePermissions(ctx context.Context, roleID uuid.UUID) ([]*model.Permission, error) {
	query := `
		SELECT p.permission_id, p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.permission_id
		WHERE rp.role_id = $1
	`

	var permissions []*model.Permission
	if err := r.db.SelectContext(ctx, &permissions, query, roleID); err != nil {
		return nil, fmt.Errorf("failed to get role permissions: %w", err)
	}
	return permissions, nil
}

func (r *rbacRepository) AssignRoleToUser(ctx context.Context, username string, roleID uuid.UUID) error {
	query := `INSERT INTO user_roles (username, role_id) VALUES ($1, $2)`

	if _, err := r.db.ExecContext(ctx, query, username, roleID); err != nil {
		return mapError(err)
	}
	return nil
}

// ReplaceRolePermissions swaps the whole edge set inside one transaction so
// two concurrent replacements serialize on the role's rows rather than
// interleaving.
func (r *rbacRepository) ReplaceRolePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return fmt.Errorf("failed to clear role permissions: %w", err)
		}

		for _, permissionID := range permissionIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`,
				roleID, permissionID,
			); err != nil {
				return fmt.Errorf("failed to add permission to role: %w", err)
			}
		}
		return nil
	})
}

// ReplaceUserRoles is the identity-level counterpart of
// ReplaceRolePermissions with the same transactional contract.
func (r *rbacRepository) ReplaceUserRoles(ctx context.Context, username string, roleIDs []uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE username = $1`, username); err != nil {
			return fmt.Errorf("failed to clear user roles: %w", err)
		}

		for _, roleID := range roleIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_roles (username, role_id) VALUES ($1, $2)`,
				username, roleID,
			); err != nil {
				return fmt.Errorf("failed to add role to user: %w", err)
			}
		}
		return nil
	})
}
