package prescription

import (
	"context"
	"io"
	"regexp"
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

type fixture struct {
	service       *Service
	users         *repositorytest.UserRepo
	institutions  *repositorytest.InstitutionRepo
	medications   *repositorytest.MedicationRepo
	prescriptions *repositorytest.PrescriptionRepo
	bloodwork     *repositorytest.BloodworkRepo
	outbox        *repositorytest.OutboxRepo

	practice *model.Institution
	pharmacy *model.Institution
	gp       *model.User
	patient  *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		users:         repositorytest.NewUserRepo(),
		institutions:  repositorytest.NewInstitutionRepo(),
		medications:   repositorytest.NewMedicationRepo(),
		prescriptions: repositorytest.NewPrescriptionRepo(),
		bloodwork:     repositorytest.NewBloodworkRepo(),
		outbox:        repositorytest.NewOutboxRepo(),
	}
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	f.service = NewService(f.prescriptions, f.bloodwork, f.medications, f.institutions, f.users, f.outbox, log)

	ctx := context.Background()

	f.practice = &model.Institution{ID: uuid.New(), Name: "Hilltop Surgery", Type: model.InstitutionMedicalPractice}
	require.NoError(t, f.institutions.Create(ctx, f.practice))
	f.pharmacy = &model.Institution{ID: uuid.New(), Name: "Hilltop Pharmacy", Type: model.InstitutionPharmacy}
	require.NoError(t, f.institutions.Create(ctx, f.pharmacy))

	f.gp = &model.User{Username: "gp", Name: "Dr Example", InstitutionID: &f.practice.ID}
	require.NoError(t, f.users.Create(ctx, f.gp))
	f.patient = &model.User{Username: "patient", Name: "Pat Example", InstitutionID: &f.practice.ID}
	require.NoError(t, f.users.Create(ctx, f.patient))
	require.NoError(t, f.institutions.SetPharmacyAssignment(ctx, f.patient.Username, f.pharmacy.ID))

	return f
}

func (f *fixture) createRequest(medicationID uuid.UUID) CreateRequest {
	return CreateRequest{
		Username:      f.patient.Username,
		MedicationID:  medicationID,
		TimeStatement: "R5/2026-01-01T09:00:00Z/P1M",
	}
}

func assertDeclined(t *testing.T, err error, reason string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrDeclined, apperrors.CodeOf(err))
	assert.Equal(t, reason, apperrors.ReasonOf(err))
}

func TestCreatePreconditionOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	medication := f.medications.Add("amlodipine", nil)

	t.Run("unknown patient", func(t *testing.T) {
		req := f.createRequest(medication.ID)
		req.Username = "ghost"
		_, err := f.service.Create(ctx, f.gp, req)
		assertDeclined(t, err, apperrors.ReasonUserNotFound)
	})

	t.Run("requester without institution", func(t *testing.T) {
		nobody := &model.User{Username: "nobody"}
		_, err := f.service.Create(ctx, nobody, f.createRequest(medication.ID))
		assertDeclined(t, err, apperrors.ReasonInstitutionInvalid)
	})

	t.Run("requester at a pharmacy", func(t *testing.T) {
		pharmacist := &model.User{Username: "pharmacist", InstitutionID: &f.pharmacy.ID}
		_, err := f.service.Create(ctx, pharmacist, f.createRequest(medication.ID))
		assertDeclined(t, err, apperrors.ReasonInstitutionInvalid)
	})

	t.Run("patient without pharmacy assignment", func(t *testing.T) {
		loner := &model.User{Username: "loner", InstitutionID: &f.practice.ID}
		require.NoError(t, f.users.Create(ctx, loner))
		req := f.createRequest(medication.ID)
		req.Username = loner.Username
		_, err := f.service.Create(ctx, f.gp, req)
		assertDeclined(t, err, apperrors.ReasonNoPharmacyAssigned)
	})

	t.Run("patient not in a medical practice", func(t *testing.T) {
		stray := &model.User{Username: "stray", InstitutionID: &f.pharmacy.ID}
		require.NoError(t, f.users.Create(ctx, stray))
		require.NoError(t, f.institutions.SetPharmacyAssignment(ctx, stray.Username, f.pharmacy.ID))
		req := f.createRequest(medication.ID)
		req.Username = stray.Username
		_, err := f.service.Create(ctx, f.gp, req)
		assertDeclined(t, err, apperrors.ReasonNotMedicalPractice)
	})

	t.Run("unknown medication", func(t *testing.T) {
		req := f.createRequest(uuid.New())
		_, err := f.service.Create(ctx, f.gp, req)
		assertDeclined(t, err, apperrors.ReasonMedicationInvalid)
	})

	t.Run("invalid time statement", func(t *testing.T) {
		req := f.createRequest(medication.ID)
		req.TimeStatement = "every other tuesday"
		_, err := f.service.Create(ctx, f.gp, req)
		assertDeclined(t, err, apperrors.ReasonTimeStatementInvalid)
	})
}

func TestCreateWithoutBloodwork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	medication := f.medications.Add("amlodipine", nil)

	result, err := f.service.Create(ctx, f.gp, f.createRequest(medication.ID))
	require.NoError(t, err)
	assert.Nil(t, result.BloodworkRequestID)

	created, err := f.prescriptions.Get(ctx, result.PrescriptionID)
	require.NoError(t, err)
	assert.False(t, created.Approved())
	assert.False(t, created.Issued())
	assert.Equal(t, f.pharmacy.ID, created.InstitutionID)
	assert.Equal(t, f.practice.ID, created.CreatedByInstitutionID)
	assert.Regexp(t, regexp.MustCompile(`^\d{8}$`), created.ShortCode)

	assert.Equal(t, []string{model.EventPrescriptionCreated}, f.outbox.EventTypes())

	// No bloodwork request gates the prescription, so approval is immediate.
	require.NoError(t, f.service.Approve(ctx, result.PrescriptionID))
}

func TestWorkflowLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bloodworkType := model.BloodworkFullBloodCount
	medication := f.medications.Add("warfarin", &bloodworkType)

	result, err := f.service.Create(ctx, f.gp, f.createRequest(medication.ID))
	require.NoError(t, err)
	require.NotNil(t, result.BloodworkRequestID)

	request, err := f.bloodwork.Get(ctx, *result.BloodworkRequestID)
	require.NoError(t, err)
	assert.Equal(t, f.practice.ID, request.PracticeID)
	assert.Equal(t, bloodworkType, request.Type)
	assert.False(t, request.Completed())

	// Approval is gated until the bloodwork completes.
	err = f.service.Approve(ctx, result.PrescriptionID)
	assertDeclined(t, err, apperrors.ReasonBloodworkIncomplete)

	ok, err := f.bloodwork.MarkCompleted(ctx, request.ID, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, f.service.Approve(ctx, result.PrescriptionID))

	err = f.service.Approve(ctx, result.PrescriptionID)
	assertDeclined(t, err, apperrors.ReasonAlreadyApproved)

	pharmacist := &model.User{Username: "pharmacist", InstitutionID: &f.pharmacy.ID}

	t.Run("issue requires matching pharmacy", func(t *testing.T) {
		err := f.service.Issue(ctx, f.gp, result.PrescriptionID)
		assertDeclined(t, err, apperrors.ReasonWrongInstitution)
	})

	require.NoError(t, f.service.Issue(ctx, pharmacist, result.PrescriptionID))

	issued, err := f.prescriptions.Get(ctx, result.PrescriptionID)
	require.NoError(t, err)
	require.True(t, issued.Issued())
	require.NotNil(t, issued.IssuedBy)
	assert.Equal(t, pharmacist.Username, *issued.IssuedBy)
	assert.False(t, issued.IssuedAt.Before(*issued.ApprovedAt))

	t.Run("issue is one shot", func(t *testing.T) {
		err := f.service.Issue(ctx, pharmacist, result.PrescriptionID)
		assertDeclined(t, err, apperrors.ReasonAlreadyIssued)
	})

	t.Run("issued prescriptions are immutable", func(t *testing.T) {
		other := f.medications.Add("amlodipine", nil)
		_, err := f.service.Modify(ctx, result.PrescriptionID, ModifyRequest{MedicationID: &other.ID})
		assertDeclined(t, err, apperrors.ReasonAlreadyIssued)
	})

	assert.Equal(t, []string{
		model.EventPrescriptionCreated,
		model.EventPrescriptionApproved,
		model.EventPrescriptionIssued,
	}, f.outbox.EventTypes())
}

func TestIssueCheckOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	medication := f.medications.Add("amlodipine", nil)

	result, err := f.service.Create(ctx, f.gp, f.createRequest(medication.ID))
	require.NoError(t, err)

	// Wrong institution wins over the unapproved state.
	err = f.service.Issue(ctx, f.gp, result.PrescriptionID)
	assertDeclined(t, err, apperrors.ReasonWrongInstitution)

	pharmacist := &model.User{Username: "pharmacist", InstitutionID: &f.pharmacy.ID}
	err = f.service.Issue(ctx, pharmacist, result.PrescriptionID)
	assertDeclined(t, err, apperrors.ReasonNotApproved)
}

func TestModify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	medication := f.medications.Add("amlodipine", nil)

	result, err := f.service.Create(ctx, f.gp, f.createRequest(medication.ID))
	require.NoError(t, err)

	t.Run("unknown medication declined", func(t *testing.T) {
		bogus := uuid.New()
		_, err := f.service.Modify(ctx, result.PrescriptionID, ModifyRequest{MedicationID: &bogus})
		assertDeclined(t, err, apperrors.ReasonMedicationInvalid)
	})

	t.Run("invalid time statement declined", func(t *testing.T) {
		statement := "whenever"
		_, err := f.service.Modify(ctx, result.PrescriptionID, ModifyRequest{TimeStatement: &statement})
		assertDeclined(t, err, apperrors.ReasonTimeStatementInvalid)
	})

	t.Run("partial update applies only supplied fields", func(t *testing.T) {
		other := f.medications.Add("ramipril", nil)
		updated, err := f.service.Modify(ctx, result.PrescriptionID, ModifyRequest{MedicationID: &other.ID})
		require.NoError(t, err)
		assert.Equal(t, other.ID, updated.MedicationID)
		assert.Equal(t, "R5/2026-01-01T09:00:00Z/P1M", updated.TimeStatement)
	})
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	medication := f.medications.Add("amlodipine", nil)

	err := f.service.Delete(ctx, uuid.New())
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))

	result, err := f.service.Create(ctx, f.gp, f.createRequest(medication.ID))
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(ctx, result.PrescriptionID))
	_, err = f.service.Get(ctx, result.PrescriptionID)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestShortCodesAreUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	medication := f.medications.Add("amlodipine", nil)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		result, err := f.service.Create(ctx, f.gp, f.createRequest(medication.ID))
		require.NoError(t, err)

		created, err := f.prescriptions.Get(ctx, result.PrescriptionID)
		require.NoError(t, err)
		assert.False(t, seen[created.ShortCode], "short code %q repeated", created.ShortCode)
		seen[created.ShortCode] = true
	}
}
