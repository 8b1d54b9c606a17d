// Package repositorytest provides in-memory repository implementations for
// service tests. They honor the same sentinel error contract as the
// postgres implementations.
package repositorytest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AxonC/PrescriptionManagementApi/internal/model"
	"github.com/AxonC/PrescriptionManagementApi/internal/repository"
)

type UserRepo struct {
	mu      sync.Mutex
	Users   map[string]*model.User
	Pending map[string]*model.PendingUser
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		Users:   make(map[string]*model.User),
		Pending: make(map[string]*model.PendingUser),
	}
}

func (r *UserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.Users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *UserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.Users[user.Username]; exists {
		return repository.ErrDuplicate
	}
	copied := *user
	r.Users[user.Username] = &copied
	return nil
}

func (r *UserRepo) ListByInstitutionWithRoles(_ context.Context, institutionID uuid.UUID) ([]*model.UserWithRoles, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.UserWithRoles
	for _, user := range r.Users {
		if user.InstitutionID != nil && *user.InstitutionID == institutionID {
			out = append(out, &model.UserWithRoles{Username: user.Username, Name: user.Name, Email: user.Email})
		}
	}
	return out, nil
}

func (r *UserRepo) GetPendingByUsername(_ context.Context, username string) (*model.PendingUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending, ok := r.Pending[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *pending
	return &copied, nil
}

func (r *UserRepo) CreatePending(_ context.Context, pending *model.PendingUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.Pending[pending.Username]; exists {
		return repository.ErrDuplicate
	}
	if _, exists := r.Users[pending.Username]; exists {
		return repository.ErrDuplicate
	}
	copied := *pending
	r.Pending[pending.Username] = &copied
	return nil
}

func (r *UserRepo) DeletePending(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Pending, username)
	return nil
}

type InstitutionRepo struct {
	mu           sync.Mutex
	Institutions map[uuid.UUID]*model.Institution
	Assignments  map[string]uuid.UUID
}

func NewInstitutionRepo() *InstitutionRepo {
	return &InstitutionRepo{
		Institutions: make(map[uuid.UUID]*model.Institution),
		Assignments:  make(map[string]uuid.UUID),
	}
}

func (r *InstitutionRepo) Create(_ context.Context, institution *model.Institution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *institution
	r.Institutions[institution.ID] = &copied
	return nil
}

func (r *InstitutionRepo) Get(_ context.Context, id uuid.UUID) (*model.Institution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	institution, ok := r.Institutions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *institution
	return &copied, nil
}

func (r *InstitutionRepo) GetOfType(ctx context.Context, id uuid.UUID, kind model.InstitutionType) (*model.Institution, error) {
	institution, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if institution.Type != kind {
		return nil, repository.ErrNotFound
	}
	return institution, nil
}

func (r *InstitutionRepo) List(_ context.Context, kind model.InstitutionType) ([]*model.Institution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Institution
	for _, institution := range r.Institutions {
		if institution.Type == kind {
			copied := *institution
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *InstitutionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Institutions, id)
	return nil
}

func (r *InstitutionRepo) SetPharmacyAssignment(_ context.Context, username string, pharmacyID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Assignments[username] = pharmacyID
	return nil
}

func (r *InstitutionRepo) GetPharmacyAssignment(_ context.Context, username string) (*model.PharmacyAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pharmacyID, ok := r.Assignments[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &model.PharmacyAssignment{Username: username, InstitutionID: pharmacyID}, nil
}

type RBACRepo struct {
	mu              sync.Mutex
	Roles           map[uuid.UUID]*model.Role
	Permissions     map[uuid.UUID]*model.Permission
	RolePermissions map[uuid.UUID][]uuid.UUID
	UserRoles       map[string][]uuid.UUID
}

func NewRBACRepo() *RBACRepo {
	return &RBACRepo{
		Roles:           make(map[uuid.UUID]*model.Role),
		Permissions:     make(map[uuid.UUID]*model.Permission),
		RolePermissions: make(map[uuid.UUID][]uuid.UUID),
		UserRoles:       make(map[string][]uuid.UUID),
	}
}

// AddRole seeds a role with the named permissions, creating them as needed.
func (r *RBACRepo) AddRole(name string, permissions ...string) *model.Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	role := &model.Role{ID: uuid.New(), Name: name}
	r.Roles[role.ID] = role
	for _, permissionName := range permissions {
		permission := &model.Permission{ID: uuid.New(), Name: permissionName}
		r.Permissions[permission.ID] = permission
		r.RolePermissions[role.ID] = append(r.RolePermissions[role.ID], permission.ID)
	}
	return role
}

// Grant assigns the roles to the user.
func (r *RBACRepo) Grant(username string, roleIDs ...uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.UserRoles[username] = append(r.UserRoles[username], roleIDs...)
}

func (r *RBACRepo) CreateRole(_ context.Context, role *model.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.Roles {
		if existing.Name == role.Name {
			return repository.ErrDuplicate
		}
	}
	copied := *role
	r.Roles[role.ID] = &copied
	return nil
}

func (r *RBACRepo) GetRole(_ context.Context, id uuid.UUID) (*model.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.Roles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *role
	return &copied, nil
}

func (r *RBACRepo) GetRoleByName(_ context.Context, name string) (*model.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, role := range r.Roles {
		if role.Name == name {
			copied := *role
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *RBACRepo) ListRoles(_ context.Context) ([]*model.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Role
	for _, role := range r.Roles {
		copied := *role
		out = append(out, &copied)
	}
	return out, nil
}

func (r *RBACRepo) ListPermissions(_ context.Context) ([]*model.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Permission
	for _, permission := range r.Permissions {
		copied := *permission
		out = append(out, &copied)
	}
	return out, nil
}

func (r *RBACRepo) GetUserRoles(_ context.Context, username string) ([]*model.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Role
	for _, roleID := range r.UserRoles[username] {
		if role, ok := r.Roles[roleID]; ok {
			copied := *role
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *RBACRepo) GetRolePermissions(_ context.Context, roleID uuid.UUID) ([]*model.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Permission
	for _, permissionID := range r.RolePermissions[roleID] {
		if permission, ok := r.Permissions[permissionID]; ok {
			copied := *permission
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *RBACRepo) AssignRoleToUser(_ context.Context, username string, roleID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.UserRoles[username] = append(r.UserRoles[username], roleID)
	return nil
}

func (r *RBACRepo) ReplaceRolePermissions(_ context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.RolePermissions[roleID] = append([]uuid.UUID(nil), permissionIDs...)
	return nil
}

func (r *RBACRepo) ReplaceUserRoles(_ context.Context, username string, roleIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.UserRoles[username] = append([]uuid.UUID(nil), roleIDs...)
	return nil
}

type MedicationRepo struct {
	mu          sync.Mutex
	Medications map[uuid.UUID]*model.Medication
	ListCalls   int
}

func NewMedicationRepo() *MedicationRepo {
	return &MedicationRepo{Medications: make(map[uuid.UUID]*model.Medication)}
}

func (r *MedicationRepo) Add(name string, bloodwork *model.BloodworkType) *model.Medication {
	r.mu.Lock()
	defer r.mu.Unlock()
	medication := &model.Medication{ID: uuid.New(), Name: name, BloodworkRequirement: bloodwork}
	r.Medications[medication.ID] = medication
	return medication
}

func (r *MedicationRepo) Get(_ context.Context, id uuid.UUID) (*model.Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	medication, ok := r.Medications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *medication
	return &copied, nil
}

func (r *MedicationRepo) List(_ context.Context) ([]*model.Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ListCalls++
	var out []*model.Medication
	for _, medication := range r.Medications {
		copied := *medication
		out = append(out, &copied)
	}
	return out, nil
}

type PrescriptionRepo struct {
	mu            sync.Mutex
	Prescriptions map[uuid.UUID]*model.Prescription
	Candidates    []*model.ReminderCandidate
}

func NewPrescriptionRepo() *PrescriptionRepo {
	return &PrescriptionRepo{Prescriptions: make(map[uuid.UUID]*model.Prescription)}
}

func (r *PrescriptionRepo) Create(_ context.Context, prescription *model.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.Prescriptions {
		if existing.ShortCode == prescription.ShortCode {
			return repository.ErrDuplicate
		}
	}
	copied := *prescription
	r.Prescriptions[prescription.ID] = &copied
	return nil
}

func (r *PrescriptionRepo) Get(_ context.Context, id uuid.UUID) (*model.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prescription, ok := r.Prescriptions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *prescription
	return &copied, nil
}

func (r *PrescriptionRepo) GetByShortCode(_ context.Context, shortCode string) (*model.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, prescription := range r.Prescriptions {
		if prescription.ShortCode == shortCode {
			copied := *prescription
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *PrescriptionRepo) Update(_ context.Context, prescription *model.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Prescriptions[prescription.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *prescription
	r.Prescriptions[prescription.ID] = &copied
	return nil
}

func (r *PrescriptionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Prescriptions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.Prescriptions, id)
	return nil
}

func (r *PrescriptionRepo) ListByInstitution(_ context.Context, institutionID uuid.UUID) ([]*model.PrescriptionListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PrescriptionListing
	for _, prescription := range r.Prescriptions {
		if prescription.InstitutionID == institutionID || prescription.CreatedByInstitutionID == institutionID {
			out = append(out, &model.PrescriptionListing{Prescription: *prescription})
		}
	}
	return out, nil
}

func (r *PrescriptionRepo) ListByUser(_ context.Context, username string) ([]*model.DashboardEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.DashboardEntry
	for _, prescription := range r.Prescriptions {
		if prescription.Username == username {
			out = append(out, &model.DashboardEntry{
				PrescriptionID: prescription.ID,
				ApprovedAt:     prescription.ApprovedAt,
				IssuedAt:       prescription.IssuedAt,
			})
		}
	}
	return out, nil
}

func (r *PrescriptionRepo) ListReminderCandidates(_ context.Context) ([]*model.ReminderCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.ReminderCandidate(nil), r.Candidates...), nil
}

func (r *PrescriptionRepo) MarkApproved(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prescription, ok := r.Prescriptions[id]
	if !ok || prescription.ApprovedAt != nil {
		return false, nil
	}
	prescription.ApprovedAt = &at
	return true, nil
}

func (r *PrescriptionRepo) MarkIssued(_ context.Context, id uuid.UUID, issuedBy string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prescription, ok := r.Prescriptions[id]
	if !ok || prescription.IssuedAt != nil || prescription.IssuedBy != nil || prescription.ApprovedAt == nil {
		return false, nil
	}
	prescription.IssuedAt = &at
	prescription.IssuedBy = &issuedBy
	return true, nil
}

type BloodworkRepo struct {
	mu       sync.Mutex
	Requests map[uuid.UUID]*model.BloodworkRequest
}

func NewBloodworkRepo() *BloodworkRepo {
	return &BloodworkRepo{Requests: make(map[uuid.UUID]*model.BloodworkRequest)}
}

func (r *BloodworkRepo) Create(_ context.Context, request *model.BloodworkRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *request
	r.Requests[request.ID] = &copied
	return nil
}

func (r *BloodworkRepo) Get(_ context.Context, id uuid.UUID) (*model.BloodworkRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.Requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *request
	return &copied, nil
}

func (r *BloodworkRepo) GetForPrescription(_ context.Context, prescriptionID uuid.UUID) (*model.BloodworkRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, request := range r.Requests {
		if request.PrescriptionID == prescriptionID {
			copied := *request
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *BloodworkRepo) ListByPractice(_ context.Context, practiceID uuid.UUID, completed bool) ([]*model.BloodworkListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.BloodworkListing
	for _, request := range r.Requests {
		if request.PracticeID == practiceID && request.Completed() == completed {
			out = append(out, &model.BloodworkListing{BloodworkRequest: *request})
		}
	}
	return out, nil
}

func (r *BloodworkRepo) MarkCompleted(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.Requests[id]
	if !ok || request.CompletedAt != nil {
		return false, nil
	}
	request.CompletedAt = &at
	return true, nil
}

type TokenRepo struct {
	mu     sync.Mutex
	Tokens map[uuid.UUID]*model.RegistrationToken
}

func NewTokenRepo() *TokenRepo {
	return &TokenRepo{Tokens: make(map[uuid.UUID]*model.RegistrationToken)}
}

func (r *TokenRepo) Create(_ context.Context, token *model.RegistrationToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *token
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now()
	}
	r.Tokens[token.ID] = &copied
	return nil
}

func (r *TokenRepo) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, token := range r.Tokens {
		if token.CreatedAt.Before(cutoff) {
			delete(r.Tokens, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *TokenRepo) Get(_ context.Context, id uuid.UUID) (*model.RegistrationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.Tokens[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *token
	return &copied, nil
}

type OutboxRepo struct {
	mu     sync.Mutex
	Events []*model.OutboxEvent
}

func NewOutboxRepo() *OutboxRepo {
	return &OutboxRepo{}
}

func (r *OutboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.Status = model.OutboxStatusPending
	copied := *event
	r.Events = append(r.Events, &copied)
	return nil
}

func (r *OutboxRepo) GetPendingEvents(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.OutboxEvent
	for _, event := range r.Events {
		if event.Status == model.OutboxStatusPending {
			out = append(out, event)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepo) MarkProcessed(_ context.Context, id uuid.UUID) error {
	return r.setStatus(id, model.OutboxStatusProcessed)
}

func (r *OutboxRepo) MarkFailed(_ context.Context, id uuid.UUID) error {
	return r.setStatus(id, model.OutboxStatusFailed)
}

func (r *OutboxRepo) setStatus(id uuid.UUID, status model.OutboxStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.Events {
		if event.ID == id {
			event.Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

// EventTypes lists the event types recorded, in order.
func (r *OutboxRepo) EventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, event := range r.Events {
		out = append(out, event.EventType)
	}
	return out
}
