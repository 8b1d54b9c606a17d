package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AxonC/PrescriptionManagementApi/internal/handler"
	"github.com/AxonC/PrescriptionManagementApi/internal/model"
	"github.com/AxonC/PrescriptionManagementApi/internal/service/auth"
	"github.com/AxonC/PrescriptionManagementApi/internal/service/rbac"
)

// ContextUser is the gin context key the authenticated user is stored
// under.
const ContextUser = "user"

type AuthMiddleware struct {
	authService *auth.Service
	rbacService *rbac.Service
}

func NewAuthMiddleware(authService *auth.Service, rbacService *rbac.Service) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		rbacService: rbacService,
	}
}

// Authenticate resolves the bearer token to a full user record. Every
// failure mode produces the same 401 body.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthenticated"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthenticated"))
			c.Abort()
			return
		}

		user, err := m.authService.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthenticated"))
			c.Abort()
			return
		}

		c.Set(ContextUser, user)
		c.Next()
	}
}

// RequireAnyPermission authorizes the request when the user holds at least
// one of the named permissions or the wildcard.
func (m *AuthMiddleware) RequireAnyPermission(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthenticated"))
			c.Abort()
			return
		}

		allowed, err := m.rbacService.HasAnyPermission(c.Request.Context(), user.Username, rbac.AnyOf(permissions))
		if err != nil {
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to check permissions"))
			c.Abort()
			return
		}
		if !allowed {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("permission denied"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// CurrentUser returns the authenticated user set by Authenticate.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	value, exists := c.Get(ContextUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*model.User)
	return user, ok
}
