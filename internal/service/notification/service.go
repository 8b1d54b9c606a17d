package notification

import (
	"context"
	"time"

	"github.com/AxonC/PrescriptionManagementApi/internal/email"
	"github.com/AxonC/PrescriptionManagementApi/internal/repository"
	"github.com/AxonC/PrescriptionManagementApi/internal/schedule"
	"github.com/AxonC/PrescriptionManagementApi/pkg/logger"
	"github.com/AxonC/PrescriptionManagementApi/pkg/metrics"
)

// reminderLagDays is how long after a cycle boundary patients are reminded
// to order their next repeat prescription.
const reminderLagDays = 10

const maxOccurrences = 500

// Service sends repeat prescription reminders. The worker invokes
// SendDueReminders once per day; the lag-day boundary makes each
// occurrence match exactly one daily run, so no sent-state is stored.
type Service struct {
	prescriptions repository.PrescriptionRepository
	email         email.Service
	metrics       *metrics.Metrics
	logger        *logger.Logger

	// now is replaceable in tests.
	now func() time.Time
}

func NewService(
	prescriptions repository.PrescriptionRepository,
	email email.Service,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) *Service {
	return &Service{
		prescriptions: prescriptions,
		email:         email,
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
	}
}

// SendDueReminders scans every approved prescription and emails the patient
// for each one whose last cycle boundary was exactly the lag period ago. A
// failed send is counted and logged but does not stop the scan.
func (s *Service) SendDueReminders(ctx context.Context) error {
	candidates, err := s.prescriptions.ListReminderCandidates(ctx)
	if err != nil {
		return err
	}

	today := s.now().Truncate(24 * time.Hour)

	for _, candidate := range candidates {
		recurrence, err := schedule.Parse(candidate.TimeStatement)
		if err != nil {
			s.logger.Warn("skipping prescription with unparseable time statement",
				"prescription_id", candidate.PrescriptionID.String())
			continue
		}

		if !dueForReminder(recurrence, today) {
			continue
		}

		if err := s.email.SendPrescriptionReminder(ctx, candidate.Email, candidate.PatientName,
			candidate.MedicationName, candidate.ShortCode); err != nil {
			s.metrics.RemindersFailed.Inc()
			s.logger.Error(err, "failed to send prescription reminder",
				"prescription_id", candidate.PrescriptionID.String())
			continue
		}

		s.metrics.RemindersSent.Inc()
		s.logger.Info("prescription reminder sent",
			"prescription_id", candidate.PrescriptionID.String(), "username", candidate.Username)
	}

	return nil
}

// dueForReminder reports whether any occurrence fell exactly the lag
// period before today, compared at date granularity.
func dueForReminder(recurrence *schedule.Recurrence, today time.Time) bool {
	target := today.AddDate(0, 0, -reminderLagDays)
	targetYear, targetMonth, targetDay := target.Date()

	for _, occurrence := range recurrence.Occurrences(maxOccurrences) {
		year, month, day := occurrence.Date()
		if year == targetYear && month == targetMonth && day == targetDay {
			return true
		}
		if occurrence.After(target.AddDate(0, 0, 1)) {
			break
		}
	}
	return false
}
