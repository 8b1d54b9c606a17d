package worker

import (
	"context"
	"time"

	"github.com/AxonC/PrescriptionManagementApi/internal/service/notification"
	"github.com/AxonC/PrescriptionManagementApi/pkg/logger"
)

// ReminderJob runs the prescription reminder scan on a fixed interval,
// once per day in production.
type ReminderJob struct {
	notifications *notification.Service
	interval      time.Duration
	logger        *logger.Logger
}

func NewReminderJob(notifications *notification.Service, interval time.Duration, logger *logger.Logger) *ReminderJob {
	if interval <= 0 {
		panic("interval must be greater than 0")
	}
	return &ReminderJob{notifications: notifications, interval: interval, logger: logger}
}

func (j *ReminderJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("starting reminder job", "interval", j.interval.String())

	// Run once at startup so a restarted worker does not skip a day.
	j.run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("shutting down reminder job")
			return
		case <-ticker.C:
			j.run(ctx)
		}
	}
}

func (j *ReminderJob) run(ctx context.Context) {
	if err := j.notifications.SendDueReminders(ctx); err != nil {
		j.logger.Error(err, "reminder scan failed")
	}
}
