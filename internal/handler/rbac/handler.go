package rbac

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AxonC/PrescriptionManagementApi/internal/handler"
	"github.com/AxonC/PrescriptionManagementApi/internal/middleware"
	rbacService "github.com/AxonC/PrescriptionManagementApi/internal/service/rbac"
)

type Handler struct {
	service *rbacService.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *rbacService.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	roles := r.Group("/roles")
	{
		roles.POST("", h.auth.RequireAnyPermission("roles.create"), h.CreateRole)
		roles.GET("", h.auth.RequireAnyPermission("roles.view"), h.ListRoles)
		roles.GET("/:id", h.auth.RequireAnyPermission("roles.view"), h.GetRole)
		roles.PUT("/:id/permissions", h.auth.RequireAnyPermission("roles.manage-permissions"), h.ReplaceRolePermissions)
	}

	r.GET("/permissions", h.auth.RequireAnyPermission("roles.view"), h.ListPermissions)
	r.PUT("/users/:username/roles", h.auth.RequireAnyPermission("users.manage-roles"), h.ReplaceUserRoles)
}

type createRoleRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *Handler) CreateRole(c *gin.Context) {
	var req createRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	role, err := h.service.CreateRole(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(role))
}

func (h *Handler) ListRoles(c *gin.Context) {
	roles, err := h.service.ListRoles(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(roles))
}

func (h *Handler) GetRole(c *gin.Context) {
	roleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid role ID"))
		return
	}

	role, err := h.service.GetRoleWithPermissions(c.Request.Context(), roleID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(role))
}

func (h *Handler) ListPermissions(c *gin.Context) {
	permissions, err := h.service.ListPermissions(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(permissions))
}

type replacePermissionsRequest struct {
	PermissionIDs []uuid.UUID `json:"permission_ids" binding:"required"`
}

// ReplaceRolePermissions swaps the role's full permission set for the one
// supplied.
func (h *Handler) ReplaceRolePermissions(c *gin.Context) {
	roleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid role ID"))
		return
	}

	var req replacePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.service.ReplaceRolePermissions(c.Request.Context(), roleID, req.PermissionIDs); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

type replaceRolesRequest struct {
	RoleIDs []uuid.UUID `json:"role_ids" binding:"required"`
}

// ReplaceUserRoles swaps the user's full role set for the one supplied.
func (h *Handler) ReplaceUserRoles(c *gin.Context) {
	var req replaceRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.service.ReplaceUserRoles(c.Request.Context(), c.Param("username"), req.RoleIDs); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
