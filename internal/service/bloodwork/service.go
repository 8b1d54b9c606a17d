package bloodwork

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AxonC/PrescriptionManagementApi/internal/model"
	"github.com/AxonC/PrescriptionManagementApi/internal/repository"
	apperrors "github.com/AxonC/PrescriptionManagementApi/pkg/errors"
	"github.com/AxonC/PrescriptionManagementApi/pkg/logger"
)

// Service manages the bloodwork worklist of a medical practice. All reads
// and writes are scoped to the caller's practice; a request belonging to
// another practice is indistinguishable from one that does not exist.
type Service struct {
	bloodwork repository.BloodworkRepository
	outbox    repository.OutboxRepository
	logger    *logger.Logger
}

func NewService(bloodwork repository.BloodworkRepository, outbox repository.OutboxRepository, logger *logger.Logger) *Service {
	return &Service{bloodwork: bloodwork, outbox: outbox, logger: logger}
}

// Get returns a request only when it belongs to the given practice.
func (s *Service) Get(ctx context.Context, practiceID, requestID uuid.UUID) (*model.BloodworkRequest, error) {
	request, err := s.bloodwork.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("bloodwork request")
		}
		return nil, apperrors.Internal(err)
	}
	if request.PracticeID != practiceID {
		return nil, apperrors.NotFound("bloodwork request")
	}
	return request, nil
}

// ListByPractice returns the practice worklist, filtered to completed or
// outstanding requests.
func (s *Service) ListByPractice(ctx context.Context, practiceID uuid.UUID, completed bool) ([]*model.BloodworkListing, error) {
	listings, err := s.bloodwork.ListByPractice(ctx, practiceID, completed)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return listings, nil
}

// Complete stamps the request as carried out. Completing twice is a
// conflict, reported from the persisted state rather than the copy read
// before the update.
func (s *Service) Complete(ctx context.Context, practiceID, requestID uuid.UUID) error {
	request, err := s.Get(ctx, practiceID, requestID)
	if err != nil {
		return err
	}
	if request.Completed() {
		return apperrors.Conflict(apperrors.ReasonAlreadyCompleted, "bloodwork request already completed")
	}

	ok, err := s.bloodwork.MarkCompleted(ctx, requestID, time.Now())
	if err != nil {
		return apperrors.Internal(err)
	}
	if !ok {
		return apperrors.Conflict(apperrors.ReasonAlreadyCompleted, "bloodwork request already completed")
	}

	s.logger.Info("bloodwork request completed",
		"request_id", requestID.String(), "prescription_id", request.PrescriptionID.String())
	s.emit(ctx, model.EventBloodworkCompleted, map[string]string{
		"request_id":      requestID.String(),
		"prescription_id": request.PrescriptionID.String(),
	})
	return nil
}

func (s *Service) emit(ctx context.Context, eventType string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error(err, "failed to marshal outbox payload", "event_type", eventType)
		return
	}
	if err := s.outbox.Create(ctx, &model.OutboxEvent{EventType: eventType, Payload: body}); err != nil {
		s.logger.Error(err, "failed to append outbox event", "event_type", eventType)
	}
}
