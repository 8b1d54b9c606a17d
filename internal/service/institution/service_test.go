package institution

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

type sentEmail struct {
	To        string
	Kind      model.RegistrationKind
	SignupURL string
}

type fakeEmail struct {
	sent chan sentEmail
}

func newFakeEmail() *fakeEmail {
	return &fakeEmail{sent: make(chan sentEmail, 8)}
}

func (f *fakeEmail) SendSignupLink(_ context.Context, to, _ string, kind model.RegistrationKind, signupURL string) error {
	f.sent <- sentEmail{To: to, Kind: kind, SignupURL: signupURL}
	return nil
}

func (f *fakeEmail) SendPrescriptionReminder(_ context.Context, _, _, _, _ string) error {
	return nil
}

func (f *fakeEmail) waitForSend(t *testing.T) sentEmail {
	t.Helper()
	select {
	case email := <-f.sent:
		return email
	case <-time.After(time.Second):
		t.Fatal("expected a signup email")
		return sentEmail{}
	}
}

type fixture struct {
	service      *Service
	institutions *repositorytest.InstitutionRepo
	users        *repositorytest.UserRepo
	tokens       *repositorytest.TokenRepo
	email        *fakeEmail
}

func newFixture() *fixture {
	f := &fixture{
		institutions: repositorytest.NewInstitutionRepo(),
		users:        repositorytest.NewUserRepo(),
		tokens:       repositorytest.NewTokenRepo(),
		email:        newFakeEmail(),
	}
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	f.service = NewService(f.institutions, f.users, f.tokens, f.email, "https://app.example.com", log)
	return f
}

func createRequest(username string) CreateRequest {
	return CreateRequest{
		Institution: model.Institution{
			Name:         "Hilltop Surgery",
			AddressLine1: "1 High Street",
			AddressLine2: "Hilltop",
			City:         "Springfield",
			State:        "State",
			Postcode:     "SP1 1AA",
		},
		Master: RegisterRequest{
			Username: username,
			Name:     "Admin Example",
			Email:    username + "@example.com",
		},
	}
}

func TestCreatePracticeRegistersMaster(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	result, err := f.service.Create(ctx, model.InstitutionMedicalPractice, createRequest("admin"))
	require.NoError(t, err)

	institution, err := f.institutions.Get(ctx, result.InstitutionID)
	require.NoError(t, err)
	assert.Equal(t, model.InstitutionMedicalPractice, institution.Type)

	pending, err := f.users.GetPendingByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, result.InstitutionID, pending.InstitutionID)

	token, err := f.tokens.Get(ctx, result.TokenID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationMedicalPracticeAdministrator, token.Kind)
	assert.Equal(t, "admin", token.Username)

	email := f.email.waitForSend(t)
	assert.Equal(t, "admin@example.com", email.To)
	assert.Contains(t, email.SignupURL, result.TokenID.String())
}

func TestCreatePharmacyMasterKind(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	result, err := f.service.Create(ctx, model.InstitutionPharmacy, createRequest("chief"))
	require.NoError(t, err)

	token, err := f.tokens.Get(ctx, result.TokenID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationHeadPharmacist, token.Kind)
}

func TestCreateRollsBackOnDuplicateMaster(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.Create(ctx, model.InstitutionMedicalPractice, createRequest("admin"))
	require.NoError(t, err)
	f.email.waitForSend(t)

	_, err = f.service.Create(ctx, model.InstitutionMedicalPractice, createRequest("admin"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrConflict, apperrors.CodeOf(err))

	// The second institution row must not survive its failed registration.
	practices, err := f.institutions.List(ctx, model.InstitutionMedicalPractice)
	require.NoError(t, err)
	assert.Len(t, practices, 1)
}

func TestRegister(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	practice := &model.Institution{ID: uuid.New(), Type: model.InstitutionMedicalPractice}
	require.NoError(t, f.institutions.Create(ctx, practice))
	registrar := &model.User{Username: "admin", InstitutionID: &practice.ID}

	t.Run("registers a practice kind", func(t *testing.T) {
		token, err := f.service.Register(ctx, registrar, model.RegistrationGP, RegisterRequest{
			Username: "newgp", Name: "Dr New", Email: "newgp@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, model.RegistrationGP, token.Kind)

		pending, err := f.users.GetPendingByUsername(ctx, "newgp")
		require.NoError(t, err)
		assert.Equal(t, practice.ID, pending.InstitutionID)
		f.email.waitForSend(t)
	})

	t.Run("pharmacy kind at a practice is forbidden", func(t *testing.T) {
		_, err := f.service.Register(ctx, registrar, model.RegistrationPharmacist, RegisterRequest{
			Username: "p", Name: "P", Email: "p@example.com",
		})
		assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))
	})

	t.Run("unmapped kind is forbidden", func(t *testing.T) {
		_, err := f.service.Register(ctx, registrar, model.RegistrationKind("JANITOR"), RegisterRequest{
			Username: "j", Name: "J", Email: "j@example.com",
		})
		assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		_, err := f.service.Register(ctx, registrar, model.RegistrationGP, RegisterRequest{
			Username: "newgp", Name: "Dr New", Email: "newgp@example.com",
		})
		assert.Equal(t, apperrors.ErrConflict, apperrors.CodeOf(err))
	})
}

func TestPermissionForKind(t *testing.T) {
	permission, ok := PermissionForKind(model.RegistrationGP)
	require.True(t, ok)
	assert.Equal(t, "practice.register-gps", permission)

	_, ok = PermissionForKind(model.RegistrationKind("JANITOR"))
	assert.False(t, ok)
}

func TestPreferredPharmacy(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	practice := &model.Institution{ID: uuid.New(), Type: model.InstitutionMedicalPractice}
	pharmacy := &model.Institution{ID: uuid.New(), Name: "Hilltop Pharmacy", Type: model.InstitutionPharmacy}
	require.NoError(t, f.institutions.Create(ctx, practice))
	require.NoError(t, f.institutions.Create(ctx, pharmacy))

	t.Run("requires a pharmacy", func(t *testing.T) {
		err := f.service.SetPreferredPharmacy(ctx, "alice", practice.ID)
		assert.Equal(t, apperrors.ErrDeclined, apperrors.CodeOf(err))
		assert.Equal(t, apperrors.ReasonInstitutionInvalid, apperrors.ReasonOf(err))
	})

	t.Run("sets and reads back", func(t *testing.T) {
		require.NoError(t, f.service.SetPreferredPharmacy(ctx, "alice", pharmacy.ID))

		chosen, err := f.service.GetPreferredPharmacy(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, pharmacy.ID, chosen.ID)
	})

	t.Run("unset reads as not found", func(t *testing.T) {
		_, err := f.service.GetPreferredPharmacy(ctx, "bob")
		assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
	})
}
