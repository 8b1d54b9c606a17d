package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/AxonC/PrescriptionManagementApi/internal/model"
	"github.com/AxonC/PrescriptionManagementApi/internal/repository"
	apperrors "github.com/AxonC/PrescriptionManagementApi/pkg/errors"
	"github.com/AxonC/PrescriptionManagementApi/pkg/logger"
)

// AnyOf names the required-permission semantics explicitly: holding any one
// of the listed permissions is sufficient. An empty set requires only
// authentication.
type AnyOf []string

type Service struct {
	repo   repository.RBACRepository
	logger *logger.Logger
}

func NewService(repo repository.RBACRepository, logger *logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// EffectivePermissions computes the union, over the user's roles, of each
// role's permissions, deduplicated by name. It is recomputed on every call:
// role and permission edits take effect on the subject's next request.
func (s *Service) EffectivePermissions(ctx context.Context, username string) ([]model.Permission, error) {
	roles, err := s.repo.GetUserRoles(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}

	seen := make(map[string]struct{})
	var permissions []model.Permission
	for _, role := range roles {
		rolePerms, err := s.repo.GetRolePermissions(ctx, role.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get role permissions: %w", err)
		}
		for _, p := range rolePerms {
			if _, ok := seen[p.Name]; ok {
				continue
			}
			seen[p.Name] = struct{}{}
			permissions = append(permissions, *p)
		}
	}
	return permissions, nil
}

// HasAnyPermission reports whether the user holds the wildcard or at least
// one of the required permissions. An empty requirement always passes.
func (s *Service) HasAnyPermission(ctx context.Context, username string, required AnyOf) (bool, error) {
	if len(required) == 0 {
		return true, nil
	}

	permissions, err := s.EffectivePermissions(ctx, username)
	if err != nil {
		return false, err
	}
	s.logger.Debug("permissions resolved", "username", username, "count", len(permissions))

	held := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		if p.Name == model.PermissionWildcard {
			return true, nil
		}
		held[p.Name] = struct{}{}
	}

	for _, name := range required {
		if _, ok := held[name]; ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) CreateRole(ctx context.Context, name, description string) (*model.Role, error) {
	role := &model.Role{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
	}
	if err := s.repo.CreateRole(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict(apperrors.ReasonAlreadyExists, "role already exists")
		}
		return nil, apperrors.Internal(err)
	}
	return role, nil
}

func (s *Service) ListRoles(ctx context.Context) ([]*model.Role, error) {
	return s.repo.ListRoles(ctx)
}

func (s *Service) ListPermissions(ctx context.Context) ([]*model.Permission, error) {
	return s.repo.ListPermissions(ctx)
}

func (s *Service) GetRoleWithPermissions(ctx context.Context, roleID uuid.UUID) (*model.RoleWithPermissions, error) {
	role, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("role")
		}
		return nil, apperrors.Internal(err)
	}

	permissions, err := s.repo.GetRolePermissions(ctx, roleID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	detail := &model.RoleWithPermissions{Role: *role}
	for _, p := range permissions {
		detail.Permissions = append(detail.Permissions, *p)
	}
	return detail, nil
}

// ReplaceRolePermissions swaps a role's full permission set. Validation is
// all-or-nothing: one unknown permission id declines the whole request and
// nothing is mutated. An empty set legally clears the role.
func (s *Service) ReplaceRolePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("role")
		}
		return apperrors.Internal(err)
	}

	if err := s.validatePermissionIDs(ctx, permissionIDs); err != nil {
		return err
	}

	if err := s.repo.ReplaceRolePermissions(ctx, roleID, permissionIDs); err != nil {
		return apperrors.Internal(err)
	}

	s.logger.Info("role permissions replaced", "role_id", roleID.String(), "count", len(permissionIDs))
	return nil
}

// ReplaceUserRoles swaps a user's full role set under the same
// all-or-nothing contract as ReplaceRolePermissions.
func (s *Service) ReplaceUserRoles(ctx context.Context, username string, roleIDs []uuid.UUID) error {
	if err := s.validateRoleIDs(ctx, roleIDs); err != nil {
		return err
	}

	if err := s.repo.ReplaceUserRoles(ctx, username, roleIDs); err != nil {
		return apperrors.Internal(err)
	}

	s.logger.Info("user roles replaced", "username", username, "count", len(roleIDs))
	return nil
}

func (s *Service) validatePermissionIDs(ctx context.Context, ids []uuid.UUID) error {
	valid, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return apperrors.Internal(err)
	}

	known := make(map[uuid.UUID]struct{}, len(valid))
	for _, p := range valid {
		known[p.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return apperrors.Declined(apperrors.ReasonInvalidPermissions, "one or more permissions not valid")
		}
	}
	return nil
}

func (s *Service) validateRoleIDs(ctx context.Context, ids []uuid.UUID) error {
	valid, err := s.repo.ListRoles(ctx)
	if err != nil {
		return apperrors.Internal(err)
	}

	known := make(map[uuid.UUID]struct{}, len(valid))
	for _, r := range valid {
		known[r.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return apperrors.Declined(apperrors.ReasonInvalidRoles, "one or more roles not found")
		}
	}
	return nil
}
