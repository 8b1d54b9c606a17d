package medication

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AxonC/PrescriptionManagementApi/internal/repository/repositorytest"
	apperrors "github.com/AxonC/PrescriptionManagementApi/pkg/errors"
)

func TestListServesFromCache(t *testing.T) {
	repo := repositorytest.NewMedicationRepo()
	repo.Add("Warfarin 3mg", nil)
	repo.Add("Amoxicillin 500mg", nil)
	service := NewService(repo)
	ctx := context.Background()

	first, err := service.List(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := service.List(ctx)
	require.NoError(t, err)
	assert.Len(t, second, 2)
	assert.Equal(t, 1, repo.ListCalls)
}

func TestGet(t *testing.T) {
	repo := repositorytest.NewMedicationRepo()
	medication := repo.Add("Warfarin 3mg", nil)
	service := NewService(repo)
	ctx := context.Background()

	found, err := service.Get(ctx, medication.ID)
	require.NoError(t, err)
	assert.Equal(t, "Warfarin 3mg", found.Name)

	_, err = service.Get(ctx, uuid.New())
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}
