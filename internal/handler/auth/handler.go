package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AxonC/PrescriptionManagementApi/internal/handler"
	"github.com/AxonC/PrescriptionManagementApi/internal/middleware"
	"github.com/AxonC/PrescriptionManagementApi/internal/model"
	authService "github.com/AxonC/PrescriptionManagementApi/internal/service/auth"
	rbacService "github.com/AxonC/PrescriptionManagementApi/internal/service/rbac"
)

type Handler struct {
	auth *authService.Service
	rbac *rbacService.Service
}

func NewHandler(auth *authService.Service, rbac *rbacService.Service) *Handler {
	return &Handler{auth: auth, rbac: rbac}
}

// RegisterPublicRoutes mounts the endpoints reachable without a token.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/token", h.Login)
	r.POST("/register/:token", h.Register)
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/me", h.Me)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, token)
}

type registerRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

// Register converts a pending user into a full account using the one-shot
// token from their signup email.
func (h *Handler) Register(c *gin.Context) {
	tokenID, err := uuid.Parse(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid registration token"))
		return
	}

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	token, err := h.auth.ConvertPendingUser(c.Request.Context(), tokenID, req.Password)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, token)
}

// Me returns the caller with their effective permission set.
func (h *Handler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthenticated"))
		return
	}

	permissions, err := h.rbac.EffectivePermissions(c.Request.Context(), user.Username)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(&model.UserWithPermissions{
		Username:    user.Username,
		Name:        user.Name,
		Email:       user.Email,
		Permissions: permissions,
	}))
}
