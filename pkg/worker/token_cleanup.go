package worker

import (
	"context"
	"time"

	"github.com/AxonC/PrescriptionManagementApi/internal/repository"
	"github.com/AxonC/PrescriptionManagementApi/pkg/logger"
)

// TokenCleanupJob deletes registration tokens past their retention period
// so old signup links stop working.
type TokenCleanupJob struct {
	tokens    repository.RegistrationTokenRepository
	retention time.Duration
	interval  time.Duration
	logger    *logger.Logger
}

func NewTokenCleanupJob(
	tokens repository.RegistrationTokenRepository,
	retention time.Duration,
	interval time.Duration,
	logger *logger.Logger,
) *TokenCleanupJob {
	if retention <= 0 {
		panic("retention must be greater than 0")
	}
	if interval <= 0 {
		panic("interval must be greater than 0")
	}
	return &TokenCleanupJob{tokens: tokens, retention: retention, interval: interval, logger: logger}
}

func (j *TokenCleanupJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("starting token cleanup job",
		"retention", j.retention.String(), "interval", j.interval.String())

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("shutting down token cleanup job")
			return
		case <-ticker.C:
			j.run(ctx)
		}
	}
}

func (j *TokenCleanupJob) run(ctx context.Context) {
	cutoff := time.Now().Add(-j.retention)
	deleted, err := j.tokens.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error(err, "token cleanup failed")
		return
	}
	if deleted > 0 {
		j.logger.Info("expired registration tokens deleted", "count", deleted)
	}
}
