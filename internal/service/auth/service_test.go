package auth

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AxonC/PrescriptionManagementApi/internal/model"
	"github.com/AxonC/PrescriptionManagementApi/internal/repository/repositorytest"
	apperrors "github.com/AxonC/PrescriptionManagementApi/pkg/errors"
	"github.com/AxonC/PrescriptionManagementApi/pkg/logger"
)

const testSecret = "test-secret"

func newService(ttl time.Duration) (*Service, *repositorytest.UserRepo, *repositorytest.TokenRepo, *repositorytest.RBACRepo) {
	users := repositorytest.NewUserRepo()
	tokens := repositorytest.NewTokenRepo()
	rbac := repositorytest.NewRBACRepo()
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	return NewService(users, tokens, rbac, testSecret, ttl, log), users, tokens, rbac
}

func seedUser(t *testing.T, service *Service, users *repositorytest.UserRepo, username, password string) {
	t.Helper()
	hash, err := service.HashPassword(password)
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), &model.User{
		Username:     username,
		Name:         "Test User",
		Email:        username + "@example.com",
		PasswordHash: hash,
	}))
}

func assertUnauthenticated(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrUnauthenticated, apperrors.CodeOf(err))
}

func TestVerifyPassword(t *testing.T) {
	service, _, _, _ := newService(DefaultTokenTTL)

	hash, err := service.HashPassword("hunter22")
	require.NoError(t, err)

	assert.True(t, service.VerifyPassword("hunter22", hash))
	assert.False(t, service.VerifyPassword("hunter23", hash))

	// A stored credential that is not a bcrypt hash never verifies.
	assert.False(t, service.VerifyPassword("hunter22", "plaintext-password"))
}

func TestLogin(t *testing.T) {
	service, users, _, _ := newService(DefaultTokenTTL)
	ctx := context.Background()
	seedUser(t, service, users, "alice", "hunter22")

	t.Run("issues bearer token", func(t *testing.T) {
		token, err := service.Login(ctx, "alice", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, "bearer", token.TokenType)
		assert.NotEmpty(t, token.AccessToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := service.Login(ctx, "alice", "wrong")
		assertUnauthenticated(t, err)
	})

	t.Run("unknown user fails identically", func(t *testing.T) {
		_, err := service.Login(ctx, "bob", "hunter22")
		assertUnauthenticated(t, err)
	})
}

func TestVerifyToken(t *testing.T) {
	service, _, _, _ := newService(DefaultTokenTTL)

	t.Run("round trip", func(t *testing.T) {
		token, err := service.IssueToken("alice")
		require.NoError(t, err)

		subject, err := service.VerifyToken(token)
		require.NoError(t, err)
		assert.Equal(t, "alice", subject)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := service.VerifyToken("not-a-token")
		assertUnauthenticated(t, err)
	})

	t.Run("wrong signature", func(t *testing.T) {
		other, _, _, _ := newService(DefaultTokenTTL)
		other.secret = []byte("other-secret")
		token, err := other.IssueToken("alice")
		require.NoError(t, err)

		_, err = service.VerifyToken(token)
		assertUnauthenticated(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		claims := tokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Minute)),
			},
			UID: "alice",
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = service.VerifyToken(token)
		assertUnauthenticated(t, err)
	})

	t.Run("missing subject claim", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = service.VerifyToken(token)
		assertUnauthenticated(t, err)
	})
}

func TestAuthenticate(t *testing.T) {
	service, users, _, _ := newService(DefaultTokenTTL)
	ctx := context.Background()
	seedUser(t, service, users, "alice", "hunter22")

	token, err := service.IssueToken("alice")
	require.NoError(t, err)

	user, err := service.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	// A valid token whose subject vanished is unauthenticated, not a 404.
	vanished, err := service.IssueToken("ghost")
	require.NoError(t, err)
	_, err = service.Authenticate(ctx, vanished)
	assertUnauthenticated(t, err)
}

func TestConvertPendingUser(t *testing.T) {
	service, users, tokens, rbac := newService(DefaultTokenTTL)
	ctx := context.Background()

	rbac.AddRole(model.RolePatient, "prescription.list")
	institutionID := uuid.New()

	seedPending := func(t *testing.T, username string) *model.RegistrationToken {
		t.Helper()
		require.NoError(t, users.CreatePending(ctx, &model.PendingUser{
			Username:      username,
			Name:          "Pending User",
			Email:         username + "@example.com",
			InstitutionID: institutionID,
		}))
		token := &model.RegistrationToken{ID: uuid.New(), Kind: model.RegistrationPatient, Username: username}
		require.NoError(t, tokens.Create(ctx, token))
		return token
	}

	t.Run("converts and grants the builtin role", func(t *testing.T) {
		token := seedPending(t, "alice")

		response, err := service.ConvertPendingUser(ctx, token.ID, "hunter22")
		require.NoError(t, err)
		assert.NotEmpty(t, response.AccessToken)

		user, err := users.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, user.InstitutionID)
		assert.Equal(t, institutionID, *user.InstitutionID)
		assert.True(t, service.VerifyPassword("hunter22", user.PasswordHash))

		roles, err := rbac.GetUserRoles(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, roles, 1)
		assert.Equal(t, model.RolePatient, roles[0].Name)

		_, err = users.GetPendingByUsername(ctx, "alice")
		assert.Error(t, err)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := service.ConvertPendingUser(ctx, uuid.New(), "hunter22")
		assertUnauthenticated(t, err)
	})

	t.Run("converting twice conflicts", func(t *testing.T) {
		token := seedPending(t, "bob")
		_, err := service.ConvertPendingUser(ctx, token.ID, "hunter22")
		require.NoError(t, err)

		// The pending row is gone, so a replayed token is declined.
		_, err = service.ConvertPendingUser(ctx, token.ID, "hunter22")
		assert.Equal(t, apperrors.ErrDeclined, apperrors.CodeOf(err))
		assert.Equal(t, apperrors.ReasonRegistrationInvalid, apperrors.ReasonOf(err))
	})
}

func TestTokenTTL(t *testing.T) {
	t.Run("zero TTL tokens are born expired", func(t *testing.T) {
		service, users, _, _ := newService(0)
		ctx := context.Background()
		seedUser(t, service, users, "alice", "hunter22")

		token, err := service.IssueToken("alice")
		require.NoError(t, err)

		_, err = service.Authenticate(ctx, token)
		assertUnauthenticated(t, err)
	})

	t.Run("negative TTL falls back to the default", func(t *testing.T) {
		service, _, _, _ := newService(-time.Minute)
		assert.Equal(t, DefaultTokenTTL, service.tokenTTL)
	})
}
