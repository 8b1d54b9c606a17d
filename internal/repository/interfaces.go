package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AxonC/PrescriptionManagementApi/internal/model"
)

// Sentinel errors every implementation maps its storage failures onto.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

type (
	// UserRepository handles full and pending user rows.
	UserRepository interface {
		GetByUsername(ctx context.Context, username string) (*model.User, error)
		Create(ctx context.Context, user *model.User) error
		ListByInstitutionWithRoles(ctx context.Context, institutionID uuid.UUID) ([]*model.UserWithRoles, error)

		GetPendingByUsername(ctx context.Context, username string) (*model.PendingUser, error)
		CreatePending(ctx context.Context, pending *model.PendingUser) error
		DeletePending(ctx context.Context, username string) error
	}

	InstitutionRepository interface {
		Create(ctx context.Context, institution *model.Institution) error
		Get(ctx context.Context, id uuid.UUID) (*model.Institution, error)
		// GetOfType returns ErrNotFound when the institution exists but is
		// of a different kind.
		GetOfType(ctx context.Context, id uuid.UUID, kind model.InstitutionType) (*model.Institution, error)
		List(ctx context.Context, kind model.InstitutionType) ([]*model.Institution, error)
		Delete(ctx context.Context, id uuid.UUID) error

		SetPharmacyAssignment(ctx context.Context, username string, pharmacyID uuid.UUID) error
		GetPharmacyAssignment(ctx context.Context, username string) (*model.PharmacyAssignment, error)
	}

	RBACRepository interface {
		CreateRole(ctx context.Context, role *model.Role) error
		GetRole(ctx context.Context, id uuid.UUID) (*model.Role, error)
		GetRoleByName(ctx context.Context, name string) (*model.Role, error)
		ListRoles(ctx context.Context) ([]*model.Role, error)
		ListPermissions(ctx context.Context) ([]*model.Permission, error)
		GetUserRoles(ctx context.Context, username string) ([]*model.Role, error)
		GetRolePermissions(ctx context.Context, roleID uuid.UUID) ([]*model.Permission, error)
		AssignRoleToUser(ctx context.Context, username string, roleID uuid.UUID) error

		// ReplaceRolePermissions and ReplaceUserRoles swap the full edge set
		// in a single transaction so concurrent replacements cannot
		// interleave into a mixed result.
		ReplaceRolePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error
		ReplaceUserRoles(ctx context.Context, username string, roleIDs []uuid.UUID) error
	}

	MedicationRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Medication, error)
		List(ctx context.Context) ([]*model.Medication, error)
	}

	PrescriptionRepository interface {
		Create(ctx context.Context, prescription *model.Prescription) error
		Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error)
		GetByShortCode(ctx context.Context, shortCode string) (*model.Prescription, error)
		Update(ctx context.Context, prescription *model.Prescription) error
		Delete(ctx context.Context, id uuid.UUID) error
		ListByInstitution(ctx context.Context, institutionID uuid.UUID) ([]*model.PrescriptionListing, error)
		ListByUser(ctx context.Context, username string) ([]*model.DashboardEntry, error)
		ListReminderCandidates(ctx context.Context) ([]*model.ReminderCandidate, error)

		// MarkApproved applies only while unapproved and the bloodwork gate
		// holds; MarkIssued only while approved and unissued. Both report
		// whether the row transitioned.
		MarkApproved(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
		MarkIssued(ctx context.Context, id uuid.UUID, issuedBy string, at time.Time) (bool, error)
	}

	BloodworkRepository interface {
		Create(ctx context.Context, request *model.BloodworkRequest) error
		Get(ctx context.Context, id uuid.UUID) (*model.BloodworkRequest, error)
		// GetForPrescription returns ErrNotFound when no request gates the
		// prescription.
		GetForPrescription(ctx context.Context, prescriptionID uuid.UUID) (*model.BloodworkRequest, error)
		ListByPractice(ctx context.Context, practiceID uuid.UUID, completed bool) ([]*model.BloodworkListing, error)
		// MarkCompleted applies only while incomplete and reports whether
		// the row transitioned.
		MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	}

	// RegistrationTokenRepository handles the one-shot signup tokens.
	RegistrationTokenRepository interface {
		Create(ctx context.Context, token *model.RegistrationToken) error
		Get(ctx context.Context, id uuid.UUID) (*model.RegistrationToken, error)
		// DeleteCreatedBefore removes tokens older than the cutoff and
		// returns how many were deleted.
		DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID) error
	}
)
