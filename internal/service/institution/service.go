package institution

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/AxonC/PrescriptionManagementApi/internal/email"
	"github.com/AxonC/PrescriptionManagementApi/internal/model"
	"github.com/AxonC/PrescriptionManagementApi/internal/repository"
	apperrors "github.com/AxonC/PrescriptionManagementApi/pkg/errors"
	"github.com/AxonC/PrescriptionManagementApi/pkg/logger"
)

// registrationKinds lists the kinds each institution type may register,
// with the permission the registering user must hold.
var registrationKinds = map[model.RegistrationKind]struct {
	institutionType model.InstitutionType
	permission      string
}{
	model.RegistrationGP:                           {model.InstitutionMedicalPractice, "practice.register-gps"},
	model.RegistrationPatient:                      {model.InstitutionMedicalPractice, "practice.register-patients"},
	model.RegistrationMedicalPracticeAdministrator: {model.InstitutionMedicalPractice, "practice.register-administrators"},
	model.RegistrationHeadPharmacist:               {model.InstitutionPharmacy, "pharmacy.register-head-pharmacist"},
	model.RegistrationPharmacist:                   {model.InstitutionPharmacy, "pharmacy.register-pharmacist"},
	model.RegistrationPharmacyTechnician:           {model.InstitutionPharmacy, "pharmacy.register-pharmacy-technician"},
}

// PermissionForKind returns the permission required to register the given
// kind. The second return is false for kinds no institution may register.
func PermissionForKind(kind model.RegistrationKind) (string, bool) {
	entry, ok := registrationKinds[kind]
	if !ok {
		return "", false
	}
	return entry.permission, true
}

// masterKind maps an institution type to the registration kind of the
// account created alongside it.
func masterKind(kind model.InstitutionType) model.RegistrationKind {
	if kind == model.InstitutionPharmacy {
		return model.RegistrationHeadPharmacist
	}
	return model.RegistrationMedicalPracticeAdministrator
}

// Service manages medical practices and pharmacies together with the
// registration flows that populate them with users.
type Service struct {
	institutions  repository.InstitutionRepository
	users         repository.UserRepository
	tokens        repository.RegistrationTokenRepository
	email         email.Service
	signupBaseURL string
	logger        *logger.Logger
}

func NewService(
	institutions repository.InstitutionRepository,
	users repository.UserRepository,
	tokens repository.RegistrationTokenRepository,
	email email.Service,
	signupBaseURL string,
	logger *logger.Logger,
) *Service {
	return &Service{
		institutions:  institutions,
		users:         users,
		tokens:        tokens,
		email:         email,
		signupBaseURL: signupBaseURL,
		logger:        logger,
	}
}

type CreateRequest struct {
	Institution model.Institution
	Master      RegisterRequest
}

type RegisterRequest struct {
	Username string
	Name     string
	Email    string
}

type CreateResult struct {
	InstitutionID uuid.UUID `json:"institution_id"`
	TokenID       uuid.UUID `json:"token_id"`
}

// Create stores a new institution and registers its master user in one
// flow. When the master username is already taken the institution row is
// rolled back so a retry with a different username starts clean.
func (s *Service) Create(ctx context.Context, kind model.InstitutionType, req CreateRequest) (*CreateResult, error) {
	institution := req.Institution
	institution.ID = uuid.New()
	institution.Type = kind

	if err := s.institutions.Create(ctx, &institution); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict(apperrors.ReasonRegistrationInvalid, "institution already exists")
		}
		return nil, apperrors.Internal(err)
	}

	token, err := s.registerPending(ctx, institution.ID, masterKind(kind), req.Master)
	if err != nil {
		if deleteErr := s.institutions.Delete(ctx, institution.ID); deleteErr != nil {
			s.logger.Error(deleteErr, "failed to roll back institution after registration failure",
				"institution_id", institution.ID.String())
		}
		return nil, err
	}

	s.logger.Info("institution created",
		"institution_id", institution.ID.String(), "type", int(kind))
	return &CreateResult{InstitutionID: institution.ID, TokenID: token.ID}, nil
}

// Register creates a pending user of the given kind within the registrar's
// own institution. Kinds that do not belong to the registrar's institution
// type are forbidden regardless of permissions held.
func (s *Service) Register(ctx context.Context, registrar *model.User, kind model.RegistrationKind, req RegisterRequest) (*model.RegistrationToken, error) {
	entry, ok := registrationKinds[kind]
	if !ok {
		return nil, apperrors.Forbidden("registration kind not permitted")
	}
	if registrar.InstitutionID == nil {
		return nil, apperrors.Forbidden("registration kind not permitted")
	}
	if _, err := s.institutions.GetOfType(ctx, *registrar.InstitutionID, entry.institutionType); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Forbidden("registration kind not permitted")
		}
		return nil, apperrors.Internal(err)
	}

	return s.registerPending(ctx, *registrar.InstitutionID, kind, req)
}

func (s *Service) registerPending(ctx context.Context, institutionID uuid.UUID, kind model.RegistrationKind, req RegisterRequest) (*model.RegistrationToken, error) {
	pending := &model.PendingUser{
		Username:      req.Username,
		Name:          req.Name,
		Email:         req.Email,
		InstitutionID: institutionID,
	}
	if err := s.users.CreatePending(ctx, pending); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict(apperrors.ReasonRegistrationInvalid, "username already registered")
		}
		return nil, apperrors.Internal(err)
	}

	token := &model.RegistrationToken{
		ID:       uuid.New(),
		Kind:     kind,
		Username: req.Username,
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.logger.Info("pending user registered",
		"username", req.Username, "kind", string(kind), "institution_id", institutionID.String())

	// Delivery is best effort; the token remains valid and a failed send
	// only loses the notification, not the registration.
	go func() {
		signupURL := fmt.Sprintf("%s/signup/%s", s.signupBaseURL, token.ID.String())
		if err := s.email.SendSignupLink(context.Background(), req.Email, req.Name, kind, signupURL); err != nil {
			s.logger.Error(err, "failed to send signup email", "username", req.Username)
		}
	}()

	return token, nil
}

// Get returns a single institution.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Institution, error) {
	institution, err := s.institutions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("institution")
		}
		return nil, apperrors.Internal(err)
	}
	return institution, nil
}

// GetOfType returns an institution only when it is of the given type; a
// practice looked up as a pharmacy is reported not found.
func (s *Service) GetOfType(ctx context.Context, id uuid.UUID, kind model.InstitutionType) (*model.Institution, error) {
	institution, err := s.institutions.GetOfType(ctx, id, kind)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("institution")
		}
		return nil, apperrors.Internal(err)
	}
	return institution, nil
}

// List returns every institution of the given type.
func (s *Service) List(ctx context.Context, kind model.InstitutionType) ([]*model.Institution, error) {
	institutions, err := s.institutions.List(ctx, kind)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return institutions, nil
}

// ListStaff returns the users of an institution with their role names.
func (s *Service) ListStaff(ctx context.Context, institutionID uuid.UUID) ([]*model.UserWithRoles, error) {
	users, err := s.users.ListByInstitutionWithRoles(ctx, institutionID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return users, nil
}

// SetPreferredPharmacy records which pharmacy fills the user's
// prescriptions, replacing any previous choice.
func (s *Service) SetPreferredPharmacy(ctx context.Context, username string, pharmacyID uuid.UUID) error {
	if _, err := s.institutions.GetOfType(ctx, pharmacyID, model.InstitutionPharmacy); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.Declined(apperrors.ReasonInstitutionInvalid, "institution invalid")
		}
		return apperrors.Internal(err)
	}
	if err := s.institutions.SetPharmacyAssignment(ctx, username, pharmacyID); err != nil {
		return apperrors.Internal(err)
	}
	s.logger.Info("preferred pharmacy set", "username", username, "pharmacy_id", pharmacyID.String())
	return nil
}

// GetPreferredPharmacy returns the user's chosen pharmacy.
func (s *Service) GetPreferredPharmacy(ctx context.Context, username string) (*model.Institution, error) {
	assignment, err := s.institutions.GetPharmacyAssignment(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("pharmacy assignment")
		}
		return nil, apperrors.Internal(err)
	}
	return s.Get(ctx, assignment.InstitutionID)
}
