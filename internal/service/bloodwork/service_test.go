package bloodwork

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AxonC/PrescriptionManagementApi/internal/model"
	"github.com/AxonC/PrescriptionManagementApi/internal/repository/repositorytest"
	apperrors "github.com/AxonC/PrescriptionManagementApi/pkg/errors"
	"github.com/AxonC/PrescriptionManagementApi/pkg/logger"
)

func newService() (*Service, *repositorytest.BloodworkRepo, *repositorytest.OutboxRepo) {
	requests := repositorytest.NewBloodworkRepo()
	outbox := repositorytest.NewOutboxRepo()
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	return NewService(requests, outbox, log), requests, outbox
}

func seedRequest(t *testing.T, requests *repositorytest.BloodworkRepo, practiceID uuid.UUID) *model.BloodworkRequest {
	t.Helper()
	request := &model.BloodworkRequest{
		ID:             uuid.New(),
		PracticeID:     practiceID,
		PrescriptionID: uuid.New(),
		Type:           model.BloodworkFullBloodCount,
	}
	require.NoError(t, requests.Create(context.Background(), request))
	return request
}

func TestGetIsPracticeScoped(t *testing.T) {
	service, requests, _ := newService()
	ctx := context.Background()
	practiceID := uuid.New()
	request := seedRequest(t, requests, practiceID)

	found, err := service.Get(ctx, practiceID, request.ID)
	require.NoError(t, err)
	assert.Equal(t, request.ID, found.ID)

	// Another practice cannot tell this request apart from a missing one.
	_, err = service.Get(ctx, uuid.New(), request.ID)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestComplete(t *testing.T) {
	service, requests, outbox := newService()
	ctx := context.Background()
	practiceID := uuid.New()
	request := seedRequest(t, requests, practiceID)

	require.NoError(t, service.Complete(ctx, practiceID, request.ID))

	completed, err := requests.Get(ctx, request.ID)
	require.NoError(t, err)
	assert.True(t, completed.Completed())
	assert.Equal(t, []string{model.EventBloodworkCompleted}, outbox.EventTypes())

	t.Run("completing twice conflicts", func(t *testing.T) {
		err := service.Complete(ctx, practiceID, request.ID)
		assert.Equal(t, apperrors.ErrConflict, apperrors.CodeOf(err))
		assert.Equal(t, apperrors.ReasonAlreadyCompleted, apperrors.ReasonOf(err))
	})

	t.Run("cross practice completion is a not found", func(t *testing.T) {
		other := seedRequest(t, requests, uuid.New())
		err := service.Complete(ctx, practiceID, other.ID)
		assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
	})
}

func TestListByPractice(t *testing.T) {
	service, requests, _ := newService()
	ctx := context.Background()
	practiceID := uuid.New()

	outstanding := seedRequest(t, requests, practiceID)
	done := seedRequest(t, requests, practiceID)
	seedRequest(t, requests, uuid.New())

	ok, err := requests.MarkCompleted(ctx, done.ID, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	pending, err := service.ListByPractice(ctx, practiceID, false)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, outstanding.ID, pending[0].ID)

	completed, err := service.ListByPractice(ctx, practiceID, true)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, done.ID, completed[0].ID)
}
