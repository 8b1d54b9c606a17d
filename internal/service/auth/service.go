package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/AxonC/PrescriptionManagementApi/internal/model"
	"github.com/AxonC/PrescriptionManagementApi/internal/repository"
	apperrors "github.com/AxonC/PrescriptionManagementApi/pkg/errors"
	"github.com/AxonC/PrescriptionManagementApi/pkg/logger"
)

const (
	// DefaultTokenTTL bounds an identity token's lifetime. Tokens are
	// stateless and cannot be revoked before expiry.
	DefaultTokenTTL = 180 * time.Minute

	bcryptCost = 12

	claimSubject = "uid"
)

// Internal token failure variants. They are deliberately narrowed to a
// single unauthenticated outcome at the service boundary so callers cannot
// probe why a token was rejected.
var (
	errTokenMalformed   = errors.New("token malformed")
	errTokenSignature   = errors.New("token signature invalid")
	errTokenExpired     = errors.New("token expired")
	errTokenNoSubject   = errors.New("token missing subject claim")
	errUnknownSubject   = errors.New("subject no longer resolvable")
	errBadCredentials   = errors.New("bad credentials")
	errUnhashedPassword = errors.New("stored credential is not a recognized hash")
)

type tokenClaims struct {
	jwt.RegisteredClaims
	UID string `json:"uid"`
}

type Service struct {
	users    repository.UserRepository
	tokens   repository.RegistrationTokenRepository
	rbac     repository.RBACRepository
	secret   []byte
	tokenTTL time.Duration
	logger   *logger.Logger
}

func NewService(
	users repository.UserRepository,
	tokens repository.RegistrationTokenRepository,
	rbac repository.RBACRepository,
	secret string,
	tokenTTL time.Duration,
	logger *logger.Logger,
) *Service {
	// Zero is a real TTL: such tokens expire at issuance. Only a negative
	// value means "unset" and falls back to the default.
	if tokenTTL < 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &Service{
		users:    users,
		tokens:   tokens,
		rbac:     rbac,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// VerifyPassword compares a presented secret against the stored bcrypt
// hash. A stored value that is not a recognized hash encoding is an
// integrity fault: it is logged and treated as a failed verification, never
// as grounds to trust the identity.
func (s *Service) VerifyPassword(plain, storedHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plain))
	if err == nil {
		return true
	}
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		s.logger.Error(errUnhashedPassword, "credential integrity fault")
	}
	return false
}

// HashPassword produces the stored form of a secret.
func (s *Service) HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Login authenticates a username/password pair and issues a fresh identity
// token. Unknown usernames and wrong passwords are indistinguishable to the
// caller.
func (s *Service) Login(ctx context.Context, username, password string) (*model.TokenResponse, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperrors.Unauthenticated(errBadCredentials)
	}

	if !s.VerifyPassword(password, user.PasswordHash) {
		return nil, apperrors.Unauthenticated(errBadCredentials)
	}

	token, err := s.IssueToken(user.Username)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.logger.Info("token issued", "username", user.Username)
	return &model.TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// IssueToken creates a signed identity token for a verified subject. It
// performs no credential checks itself.
func (s *Service) IssueToken(username string) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UID: username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates a presented token and returns its subject. All
// failure modes collapse to one unauthenticated outcome.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", apperrors.Unauthenticated(s.classifyTokenError(err))
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || claims.UID == "" {
		return "", apperrors.Unauthenticated(errTokenNoSubject)
	}
	return claims.UID, nil
}

// Authenticate verifies a token and resolves its subject to a user. A
// subject that no longer exists fails exactly like a bad token so account
// existence cannot be inferred from authentication failures.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (*model.User, error) {
	username, err := s.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperrors.Unauthenticated(errUnknownSubject)
	}
	return user, nil
}

// ConvertPendingUser turns a pending registration into a full account:
// validates the registration token, creates the user with the supplied
// secret, grants the builtin role for the registration kind, removes the
// pending row and returns a fresh identity token.
func (s *Service) ConvertPendingUser(ctx context.Context, registrationToken uuid.UUID, password string) (*model.TokenResponse, error) {
	token, err := s.tokens.Get(ctx, registrationToken)
	if err != nil {
		return nil, apperrors.Unauthenticated(fmt.Errorf("registration token invalid: %w", err))
	}

	pending, err := s.users.GetPendingByUsername(ctx, token.Username)
	if err != nil {
		return nil, apperrors.Declined(apperrors.ReasonRegistrationInvalid, "user does not exist")
	}

	roleName := token.Kind.RoleName()
	if roleName == "" {
		return nil, apperrors.Declined(apperrors.ReasonRegistrationInvalid, "registration kind has no role assignment")
	}
	role, err := s.rbac.GetRoleByName(ctx, roleName)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("builtin role %q not provisioned: %w", roleName, err))
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	user := &model.User{
		Username:      pending.Username,
		Name:          pending.Name,
		Email:         pending.Email,
		PasswordHash:  hash,
		InstitutionID: &pending.InstitutionID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict(apperrors.ReasonAlreadyExists, "user already exists")
		}
		return nil, apperrors.Internal(err)
	}

	if err := s.rbac.AssignRoleToUser(ctx, user.Username, role.ID); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to assign role: %w", err))
	}

	// The registration token row is removed with the pending user.
	if err := s.users.DeletePending(ctx, user.Username); err != nil {
		return nil, apperrors.Internal(err)
	}

	accessToken, err := s.IssueToken(user.Username)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.logger.Info("pending user converted", "username", user.Username, "role", roleName)
	return &model.TokenResponse{AccessToken: accessToken, TokenType: "bearer"}, nil
}

func (s *Service) classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return errTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return errTokenSignature
	default:
		return errTokenMalformed
	}
}
