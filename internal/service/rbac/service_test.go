package rbac

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AxonC/PrescriptionManagementApi/internal/model"
	"github.com/AxonC/PrescriptionManagementApi/internal/repository/repositorytest"
	apperrors "github.com/AxonC/PrescriptionManagementApi/pkg/errors"
	"github.com/AxonC/PrescriptionManagementApi/pkg/logger"
)

func newService() (*Service, *repositorytest.RBACRepo) {
	repo := repositorytest.NewRBACRepo()
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	return NewService(repo, log), repo
}

func permissionNames(permissions []model.Permission) []string {
	names := make([]string, 0, len(permissions))
	for _, p := range permissions {
		names = append(names, p.Name)
	}
	return names
}

func TestEffectivePermissionsUnion(t *testing.T) {
	service, repo := newService()
	ctx := context.Background()

	gp := repo.AddRole("gp", "prescription.create", "prescription.list")
	pharmacist := repo.AddRole("pharmacist", "prescription.issue", "prescription.list")
	repo.Grant("alice", gp.ID, pharmacist.ID)

	permissions, err := service.EffectivePermissions(ctx, "alice")
	require.NoError(t, err)

	names := permissionNames(permissions)
	assert.ElementsMatch(t, []string{"prescription.create", "prescription.list", "prescription.issue"}, names)
}

func TestEffectivePermissionsNoRoles(t *testing.T) {
	service, _ := newService()

	permissions, err := service.EffectivePermissions(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, permissions)
}

func TestEffectivePermissionsSeesRevocationImmediately(t *testing.T) {
	service, repo := newService()
	ctx := context.Background()

	role := repo.AddRole("gp", "prescription.create")
	repo.Grant("alice", role.ID)

	allowed, err := service.HasAnyPermission(ctx, "alice", AnyOf{"prescription.create"})
	require.NoError(t, err)
	require.True(t, allowed)

	require.NoError(t, repo.ReplaceRolePermissions(ctx, role.ID, nil))

	allowed, err = service.HasAnyPermission(ctx, "alice", AnyOf{"prescription.create"})
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestHasAnyPermission(t *testing.T) {
	service, repo := newService()
	ctx := context.Background()

	gp := repo.AddRole("gp", "prescription.create")
	admin := repo.AddRole("admin", model.PermissionWildcard)
	repo.Grant("gp-user", gp.ID)
	repo.Grant("admin-user", admin.ID)

	t.Run("empty requirement passes", func(t *testing.T) {
		allowed, err := service.HasAnyPermission(ctx, "nobody", nil)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("any one of the listed permissions suffices", func(t *testing.T) {
		allowed, err := service.HasAnyPermission(ctx, "gp-user", AnyOf{"prescription.approve", "prescription.create"})
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("holding none denies", func(t *testing.T) {
		allowed, err := service.HasAnyPermission(ctx, "gp-user", AnyOf{"prescription.issue"})
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("wildcard grants everything", func(t *testing.T) {
		allowed, err := service.HasAnyPermission(ctx, "admin-user", AnyOf{"anything.at.all"})
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestCreateRole(t *testing.T) {
	service, _ := newService()
	ctx := context.Background()

	role, err := service.CreateRole(ctx, "auditor", "read only access")
	require.NoError(t, err)
	assert.Equal(t, "auditor", role.Name)

	_, err = service.CreateRole(ctx, "auditor", "")
	assert.Equal(t, apperrors.ErrConflict, apperrors.CodeOf(err))
}

func TestReplaceRolePermissionsAllOrNothing(t *testing.T) {
	service, repo := newService()
	ctx := context.Background()

	role := repo.AddRole("gp", "prescription.create")
	existing := repo.RolePermissions[role.ID]
	require.Len(t, existing, 1)

	t.Run("unknown role", func(t *testing.T) {
		err := service.ReplaceRolePermissions(ctx, uuid.New(), nil)
		assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
	})

	t.Run("one invalid id declines and leaves the set untouched", func(t *testing.T) {
		err := service.ReplaceRolePermissions(ctx, role.ID, []uuid.UUID{existing[0], uuid.New()})
		assert.Equal(t, apperrors.ErrDeclined, apperrors.CodeOf(err))
		assert.Equal(t, apperrors.ReasonInvalidPermissions, apperrors.ReasonOf(err))
		assert.Equal(t, existing, repo.RolePermissions[role.ID])
	})

	t.Run("empty set clears the role", func(t *testing.T) {
		require.NoError(t, service.ReplaceRolePermissions(ctx, role.ID, nil))
		assert.Empty(t, repo.RolePermissions[role.ID])
	})
}

func TestReplaceUserRolesAllOrNothing(t *testing.T) {
	service, repo := newService()
	ctx := context.Background()

	gp := repo.AddRole("gp")
	pharmacist := repo.AddRole("pharmacist")
	repo.Grant("alice", gp.ID)

	t.Run("one invalid id declines and leaves the set untouched", func(t *testing.T) {
		err := service.ReplaceUserRoles(ctx, "alice", []uuid.UUID{pharmacist.ID, uuid.New()})
		assert.Equal(t, apperrors.ErrDeclined, apperrors.CodeOf(err))
		assert.Equal(t, apperrors.ReasonInvalidRoles, apperrors.ReasonOf(err))
		assert.Equal(t, []uuid.UUID{gp.ID}, repo.UserRoles["alice"])
	})

	t.Run("valid set replaces wholesale", func(t *testing.T) {
		require.NoError(t, service.ReplaceUserRoles(ctx, "alice", []uuid.UUID{pharmacist.ID}))
		assert.Equal(t, []uuid.UUID{pharmacist.ID}, repo.UserRoles["alice"])
	})
}
