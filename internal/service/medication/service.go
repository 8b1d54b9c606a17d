package medication

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/AxonC/PrescriptionManagementApi/internal/model"
	"github.com/AxonC/PrescriptionManagementApi/internal/repository"
	apperrors "github.com/AxonC/PrescriptionManagementApi/pkg/errors"
)

const (
	listCacheKey    = "medications:all"
	defaultCacheTTL = 5 * time.Minute
	cleanupInterval = 10 * time.Minute
)

// Service serves the medication catalogue. The catalogue changes rarely, so
// the full listing is cached with a short TTL.
type Service struct {
	medications repository.MedicationRepository
	cache       *gocache.Cache
}

func NewService(medications repository.MedicationRepository) *Service {
	return &Service{
		medications: medications,
		cache:       gocache.New(defaultCacheTTL, cleanupInterval),
	}
}

// Get returns a single medication by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Medication, error) {
	medication, err := s.medications.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("medication")
		}
		return nil, apperrors.Internal(err)
	}
	return medication, nil
}

// List returns the full catalogue, served from cache when fresh.
func (s *Service) List(ctx context.Context) ([]*model.Medication, error) {
	if cached, ok := s.cache.Get(listCacheKey); ok {
		return cached.([]*model.Medication), nil
	}

	medications, err := s.medications.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.cache.Set(listCacheKey, medications, gocache.DefaultExpiration)
	return medications, nil
}
