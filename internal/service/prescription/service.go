package prescription

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/AxonC/PrescriptionManagementApi/internal/model"
	"github.com/AxonC/PrescriptionManagementApi/internal/repository"
	"github.com/AxonC/PrescriptionManagementApi/internal/schedule"
	apperrors "github.com/AxonC/PrescriptionManagementApi/pkg/errors"
	"github.com/AxonC/PrescriptionManagementApi/pkg/logger"
)

const shortCodeAttempts = 5

// Service is the prescription workflow engine. It never trusts the caller
// to have checked business state: every transition re-validates against the
// persisted row.
type Service struct {
	prescriptions repository.PrescriptionRepository
	bloodwork     repository.BloodworkRepository
	medications   repository.MedicationRepository
	institutions  repository.InstitutionRepository
	users         repository.UserRepository
	outbox        repository.OutboxRepository
	logger        *logger.Logger
}

func NewService(
	prescriptions repository.PrescriptionRepository,
	bloodwork repository.BloodworkRepository,
	medications repository.MedicationRepository,
	institutions repository.InstitutionRepository,
	users repository.UserRepository,
	outbox repository.OutboxRepository,
	logger *logger.Logger,
) *Service {
	return &Service{
		prescriptions: prescriptions,
		bloodwork:     bloodwork,
		medications:   medications,
		institutions:  institutions,
		users:         users,
		outbox:        outbox,
		logger:        logger,
	}
}

type CreateRequest struct {
	Username      string
	MedicationID  uuid.UUID
	TimeStatement string
}

type CreateResult struct {
	PrescriptionID     uuid.UUID  `json:"prescription_id"`
	BloodworkRequestID *uuid.UUID `json:"bloodwork_request_id,omitempty"`
}

type ModifyRequest struct {
	MedicationID  *uuid.UUID `json:"medication_id"`
	TimeStatement *string    `json:"time_statement"`
}

// Create validates its preconditions in a fixed order, first failure wins,
// each with a distinct declined reason. On success the prescription starts
// unapproved and, where the medication mandates bloodwork, an incomplete
// request is created in the requesting practice.
func (s *Service) Create(ctx context.Context, requester *model.User, req CreateRequest) (*CreateResult, error) {
	patient, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Declined(apperrors.ReasonUserNotFound, "user not found")
		}
		return nil, apperrors.Internal(err)
	}

	if requester.InstitutionID == nil {
		return nil, apperrors.Declined(apperrors.ReasonInstitutionInvalid, "institution invalid")
	}
	if _, err := s.institutions.GetOfType(ctx, *requester.InstitutionID, model.InstitutionMedicalPractice); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Declined(apperrors.ReasonInstitutionInvalid, "institution invalid")
		}
		return nil, apperrors.Internal(err)
	}

	assignment, err := s.institutions.GetPharmacyAssignment(ctx, patient.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Declined(apperrors.ReasonNoPharmacyAssigned, "pharmacy assignment not found")
		}
		return nil, apperrors.Internal(err)
	}

	if patient.InstitutionID == nil {
		return nil, apperrors.Declined(apperrors.ReasonNotMedicalPractice, "user does not belong to a medical practice")
	}
	if _, err := s.institutions.GetOfType(ctx, *patient.InstitutionID, model.InstitutionMedicalPractice); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Declined(apperrors.ReasonNotMedicalPractice, "user does not belong to a medical practice")
		}
		return nil, apperrors.Internal(err)
	}

	medication, err := s.checkMedication(ctx, req.MedicationID)
	if err != nil {
		return nil, err
	}

	recurrence, err := schedule.Parse(req.TimeStatement)
	if err != nil {
		return nil, apperrors.Declined(apperrors.ReasonTimeStatementInvalid, "time statement invalid")
	}

	prescription := &model.Prescription{
		ID:                     uuid.New(),
		Username:               patient.Username,
		MedicationID:           medication.ID,
		TimeStatement:          recurrence.String(),
		InstitutionID:          assignment.InstitutionID,
		CreatedByInstitutionID: *requester.InstitutionID,
	}

	if err := s.createWithShortCode(ctx, prescription); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.logger.Info("prescription created",
		"prescription_id", prescription.ID.String(), "username", patient.Username)

	result := &CreateResult{PrescriptionID: prescription.ID}

	if medication.RequiresBloodwork() {
		request := &model.BloodworkRequest{
			ID:             uuid.New(),
			PracticeID:     *requester.InstitutionID,
			PrescriptionID: prescription.ID,
			Type:           *medication.BloodworkRequirement,
		}
		if err := s.bloodwork.Create(ctx, request); err != nil {
			return nil, apperrors.Internal(err)
		}
		result.BloodworkRequestID = &request.ID
		s.logger.Info("bloodwork request created",
			"request_id", request.ID.String(), "prescription_id", prescription.ID.String())
	}

	s.emit(ctx, model.EventPrescriptionCreated, result)
	return result, nil
}

// Get returns a prescription by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	prescription, err := s.prescriptions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("prescription")
		}
		return nil, apperrors.Internal(err)
	}
	return prescription, nil
}

// GetByShortCode resolves the code quoted at a pharmacy counter.
func (s *Service) GetByShortCode(ctx context.Context, shortCode string) (*model.Prescription, error) {
	prescription, err := s.prescriptions.GetByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("prescription")
		}
		return nil, apperrors.Internal(err)
	}
	return prescription, nil
}

func (s *Service) ListByInstitution(ctx context.Context, institutionID uuid.UUID) ([]*model.PrescriptionListing, error) {
	return s.prescriptions.ListByInstitution(ctx, institutionID)
}

func (s *Service) Dashboard(ctx context.Context, username string) ([]*model.DashboardEntry, error) {
	return s.prescriptions.ListByUser(ctx, username)
}

// Approve moves CREATED to APPROVED once the bloodwork gate clears. The
// transition is a conditional update on the persisted state; the pre-checks
// exist only to report the precise declined reason.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) error {
	prescription, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.approveGate(ctx, prescription); err != nil {
		return err
	}

	ok, err := s.prescriptions.MarkApproved(ctx, id, time.Now())
	if err != nil {
		return apperrors.Internal(err)
	}
	if !ok {
		// Lost a race: the row changed between the gate check and the
		// update. Re-read so the decline names the current state.
		current, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if gateErr := s.approveGate(ctx, current); gateErr != nil {
			return gateErr
		}
		return apperrors.Internal(fmt.Errorf("approve transition did not apply"))
	}

	s.logger.Info("prescription approved", "prescription_id", id.String())
	s.emit(ctx, model.EventPrescriptionApproved, map[string]string{"prescription_id": id.String()})
	return nil
}

func (s *Service) approveGate(ctx context.Context, prescription *model.Prescription) error {
	if prescription.Approved() {
		return apperrors.Declined(apperrors.ReasonAlreadyApproved, "prescription already approved")
	}

	request, err := s.bloodwork.GetForPrescription(ctx, prescription.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// No bloodwork mandated; nothing blocks approval.
			return nil
		}
		return apperrors.Internal(err)
	}
	if !request.Completed() {
		return apperrors.Declined(apperrors.ReasonBloodworkIncomplete, "bloodwork incomplete")
	}
	return nil
}

// Issue moves APPROVED to ISSUED, recording who handed the medication out.
// Checks run in order: institution match, not already issued, approved.
func (s *Service) Issue(ctx context.Context, issuer *model.User, id uuid.UUID) error {
	prescription, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if issuer.InstitutionID == nil || *issuer.InstitutionID != prescription.InstitutionID {
		return apperrors.Declined(apperrors.ReasonWrongInstitution, "wrong institution")
	}
	if prescription.Issued() {
		return apperrors.Declined(apperrors.ReasonAlreadyIssued, "prescription already issued")
	}
	if !prescription.Approved() {
		return apperrors.Declined(apperrors.ReasonNotApproved, "prescription not approved for issue")
	}

	ok, err := s.prescriptions.MarkIssued(ctx, id, issuer.Username, time.Now())
	if err != nil {
		return apperrors.Internal(err)
	}
	if !ok {
		current, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if current.Issued() {
			return apperrors.Declined(apperrors.ReasonAlreadyIssued, "prescription already issued")
		}
		return apperrors.Declined(apperrors.ReasonNotApproved, "prescription not approved for issue")
	}

	s.logger.Info("prescription issued", "prescription_id", id.String(), "issued_by", issuer.Username)
	s.emit(ctx, model.EventPrescriptionIssued, map[string]string{
		"prescription_id": id.String(),
		"issued_by":       issuer.Username,
	})
	return nil
}

// Modify replaces only the supplied fields, re-validating each with the
// same rules as Create. An issued prescription can no longer be modified.
func (s *Service) Modify(ctx context.Context, id uuid.UUID, changes ModifyRequest) (*model.Prescription, error) {
	prescription, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if prescription.Issued() {
		return nil, apperrors.Declined(apperrors.ReasonAlreadyIssued, "prescription already issued")
	}

	if changes.MedicationID != nil {
		medication, err := s.checkMedication(ctx, *changes.MedicationID)
		if err != nil {
			return nil, err
		}
		prescription.MedicationID = medication.ID
	}

	if changes.TimeStatement != nil {
		recurrence, err := schedule.Parse(*changes.TimeStatement)
		if err != nil {
			return nil, apperrors.Declined(apperrors.ReasonTimeStatementInvalid, "time statement invalid")
		}
		prescription.TimeStatement = recurrence.String()
	}

	if err := s.prescriptions.Update(ctx, prescription); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.logger.Info("prescription modified", "prescription_id", id.String())
	return prescription, nil
}

// Delete removes a prescription. A storage failure is surfaced as a
// retryable fault, never reported as success.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.prescriptions.Delete(ctx, id); err != nil {
		return apperrors.Internal(err)
	}

	s.logger.Info("prescription deleted", "prescription_id", id.String())
	s.emit(ctx, model.EventPrescriptionDeleted, map[string]string{"prescription_id": id.String()})
	return nil
}

func (s *Service) checkMedication(ctx context.Context, id uuid.UUID) (*model.Medication, error) {
	medication, err := s.medications.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Declined(apperrors.ReasonMedicationInvalid, "medication invalid")
		}
		return nil, apperrors.Internal(err)
	}
	return medication, nil
}

// createWithShortCode retries on short-code collisions with a fresh random
// code each attempt.
func (s *Service) createWithShortCode(ctx context.Context, prescription *model.Prescription) error {
	for attempt := 0; attempt < shortCodeAttempts; attempt++ {
		code, err := generateShortCode()
		if err != nil {
			return err
		}
		prescription.ShortCode = code

		err = s.prescriptions.Create(ctx, prescription)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
	}
	return fmt.Errorf("failed to allocate a unique short code after %d attempts", shortCodeAttempts)
}

// generateShortCode draws an 8-digit code from crypto/rand so codes are
// unpredictable across prescriptions.
func generateShortCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate short code: %w", err)
	}
	return fmt.Sprintf("%08d", n.Int64()), nil
}

// emit appends a workflow event to the outbox. Event failures are logged
// and never fail the operation that produced them.
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
