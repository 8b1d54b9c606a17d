package notification

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AxonC/PrescriptionManagementApi/internal/model"
	"github.com/AxonC/PrescriptionManagementApi/internal/repository/repositorytest"
	"github.com/AxonC/PrescriptionManagementApi/internal/schedule"
	"github.com/AxonC/PrescriptionManagementApi/pkg/logger"
	"github.com/AxonC/PrescriptionManagementApi/pkg/metrics"
)

// promauto registers against the default registry, so the metrics are
// created once for the whole test binary.
var testMetrics = metrics.NewMetrics("prescription_api", "notification_test")

type sentReminder struct {
	To        string
	ShortCode string
}

type fakeEmail struct {
	mu        sync.Mutex
	reminders []sentReminder
	failFor   map[string]bool
}

func newFakeEmail() *fakeEmail {
	return &fakeEmail{failFor: make(map[string]bool)}
}

func (f *fakeEmail) SendSignupLink(_ context.Context, _, _ string, _ model.RegistrationKind, _ string) error {
	return nil
}

func (f *fakeEmail) SendPrescriptionReminder(_ context.Context, to, _, _, shortCode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[to] {
		return errors.New("smtp unavailable")
	}
	f.reminders = append(f.reminders, sentReminder{To: to, ShortCode: shortCode})
	return nil
}

func (f *fakeEmail) sent() []sentReminder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentReminder(nil), f.reminders...)
}

type fixture struct {
	service       *Service
	prescriptions *repositorytest.PrescriptionRepo
	email         *fakeEmail
}

func newFixture(now time.Time) *fixture {
	f := &fixture{
		prescriptions: repositorytest.NewPrescriptionRepo(),
		email:         newFakeEmail(),
	}
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	f.service = NewService(f.prescriptions, f.email, testMetrics, log)
	f.service.now = func() time.Time { return now }
	return f
}

func candidate(email, timeStatement string) *model.ReminderCandidate {
	return &model.ReminderCandidate{
		PrescriptionID: uuid.New(),
		TimeStatement:  timeStatement,
		Username:       email,
		PatientName:    "Pat",
		Email:          email,
		MedicationName: "Warfarin 3mg",
		ShortCode:      "12345678",
	}
}

func TestSendDueReminders(t *testing.T) {
	// Today is 2026-03-11, so reminders go out for occurrences on 2026-03-01.
	now := time.Date(2026, time.March, 11, 8, 30, 0, 0, time.UTC)
	f := newFixture(now)

	f.prescriptions.Candidates = []*model.ReminderCandidate{
		candidate("due@example.com", "R12/2026-03-01T09:00:00Z/P28D"),
		candidate("recent@example.com", "R12/2026-03-02T09:00:00Z/P28D"),
		candidate("midseries@example.com", "R12/2026-02-19T09:00:00Z/P10D"),
		candidate("broken@example.com", "every tuesday"),
	}

	require.NoError(t, f.service.SendDueReminders(context.Background()))

	sent := f.email.sent()
	require.Len(t, sent, 2)
	recipients := []string{sent[0].To, sent[1].To}
	assert.ElementsMatch(t, []string{"due@example.com", "midseries@example.com"}, recipients)
	assert.Equal(t, "12345678", sent[0].ShortCode)
}

func TestSendDueRemindersContinuesPastFailures(t *testing.T) {
	now := time.Date(2026, time.March, 11, 8, 30, 0, 0, time.UTC)
	f := newFixture(now)
	f.email.failFor["down@example.com"] = true

	f.prescriptions.Candidates = []*model.ReminderCandidate{
		candidate("down@example.com", "R12/2026-03-01T09:00:00Z/P28D"),
		candidate("up@example.com", "R12/2026-03-01T09:00:00Z/P28D"),
	}

	sentBefore := testutil.ToFloat64(testMetrics.RemindersSent)
	failedBefore := testutil.ToFloat64(testMetrics.RemindersFailed)

	require.NoError(t, f.service.SendDueReminders(context.Background()))

	sent := f.email.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "up@example.com", sent[0].To)
	assert.Equal(t, 1.0, testutil.ToFloat64(testMetrics.RemindersSent)-sentBefore)
	assert.Equal(t, 1.0, testutil.ToFloat64(testMetrics.RemindersFailed)-failedBefore)
}

func TestDueForReminderBoundary(t *testing.T) {
	today := time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		statement string
		due       bool
	}{
		{"boundary exactly ten days past", "R5/2026-03-01T09:00:00Z/P28D", true},
		{"boundary nine days past", "R5/2026-03-02T09:00:00Z/P28D", false},
		{"boundary eleven days past", "R5/2026-02-28T09:00:00Z/P28D", false},
		{"later occurrence lands on the boundary", "R5/2026-02-15T00:00:00Z/P7D", true},
		{"series exhausted before the boundary", "R2/2026-02-01T00:00:00Z/P7D", false},
		{"series starts in the future", "R5/2026-03-20T00:00:00Z/P28D", false},
		{"no start instant", "R5/P28D", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recurrence, err := schedule.Parse(tt.statement)
			require.NoError(t, err)
			assert.Equal(t, tt.due, dueForReminder(recurrence, today))
		})
	}
}
