package institution

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AxonC/PrescriptionManagementApi/internal/handler"
	"github.com/AxonC/PrescriptionManagementApi/internal/middleware"
	"github.com/AxonC/PrescriptionManagementApi/internal/model"
	institutionService "github.com/AxonC/PrescriptionManagementApi/internal/service/institution"
	rbacService "github.com/AxonC/PrescriptionManagementApi/internal/service/rbac"
)

type Handler struct {
	service *institutionService.Service
	rbac    *rbacService.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *institutionService.Service, rbac *rbacService.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, rbac: rbac, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/practices", h.auth.RequireAnyPermission("practices.create"), h.CreatePractice)
	r.GET("/practices", h.auth.RequireAnyPermission("practices.all"), h.ListPractices)
	r.POST("/pharmacies", h.auth.RequireAnyPermission("pharmacies.create"), h.CreatePharmacy)
	r.GET("/pharmacies", h.auth.RequireAnyPermission("pharmacies.list", "patient.pharmacies.list"), h.ListPharmacies)
	r.GET("/pharmacies/:id", h.auth.RequireAnyPermission("pharmacies.view"), h.GetPharmacy)
	r.GET("/users", h.auth.RequireAnyPermission("users.list"), h.ListStaff)
	r.POST("/register", h.Register)

	pharmacy := r.Group("/me/pharmacy", h.auth.RequireAnyPermission("patient.pharmacy.own"))
	{
		pharmacy.GET("", h.GetPreferredPharmacy)
		pharmacy.PUT("", h.SetPreferredPharmacy)
	}
}

type createInstitutionRequest struct {
	Name         string  `json:"name" binding:"required"`
	AddressLine1 string  `json:"address_line_1" binding:"required"`
	AddressLine2 string  `json:"address_line_2" binding:"required"`
	AddressLine3 *string `json:"address_line_3"`
	AddressLine4 *string `json:"address_line_4"`
	City         string  `json:"city" binding:"required"`
	State        string  `json:"state" binding:"required"`
	Postcode     string  `json:"postcode" binding:"required"`

	MasterUsername string `json:"master_username" binding:"required"`
	MasterName     string `json:"master_name" binding:"required"`
	MasterEmail    string `json:"master_email" binding:"required,email"`
}

func (h *Handler) CreatePractice(c *gin.Context) {
	h.createInstitution(c, model.InstitutionMedicalPractice)
}

func (h *Handler) CreatePharmacy(c *gin.Context) {
	h.createInstitution(c, model.InstitutionPharmacy)
}

func (h *Handler) createInstitution(c *gin.Context, kind model.InstitutionType) {
	var req createInstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.service.Create(c.Request.Context(), kind, institutionService.CreateRequest{
		Institution: model.Institution{
			Name:         req.Name,
			AddressLine1: req.AddressLine1,
			AddressLine2: req.AddressLine2,
			AddressLine3: req.AddressLine3,
			AddressLine4: req.AddressLine4,
			City:         req.City,
			State:        req.State,
			Postcode:     req.Postcode,
		},
		Master: institutionService.RegisterRequest{
			Username: req.MasterUsername,
			Name:     req.MasterName,
			Email:    req.MasterEmail,
		},
	})
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(result))
}

func (h *Handler) ListPractices(c *gin.Context) {
	h.list(c, model.InstitutionMedicalPractice)
}

func (h *Handler) ListPharmacies(c *gin.Context) {
	h.list(c, model.InstitutionPharmacy)
}

func (h *Handler) list(c *gin.Context, kind model.InstitutionType) {
	institutions, err := h.service.List(c.Request.Context(), kind)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(institutions))
}

func (h *Handler) GetPharmacy(c *gin.Context) {
	pharmacyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("pharmacy not found"))
		return
	}

	pharmacy, err := h.service.GetOfType(c.Request.Context(), pharmacyID, model.InstitutionPharmacy)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(pharmacy))
}

func (h *Handler) ListStaff(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok || user.InstitutionID == nil {
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("permission denied"))
		return
	}

	staff, err := h.service.ListStaff(c.Request.Context(), *user.InstitutionID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(staff))
}

type registerRequest struct {
	Kind     model.RegistrationKind `json:"kind" binding:"required"`
	Username string                 `json:"username" binding:"required"`
	Name     string                 `json:"name" binding:"required"`
	Email    string                 `json:"email" binding:"required,email"`
}

// Register adds a pending user of the requested kind to the caller's
// institution. The permission checked depends on the kind, so the check
// lives here rather than in route middleware.
func (h *Handler) Register(c *gin.Context) {
	registrar, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthenticated"))
		return
	}

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	permission, ok := institutionService.PermissionForKind(req.Kind)
	if !ok {
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("permission denied"))
		return
	}

	allowed, err := h.rbac.HasAnyPermission(c.Request.Context(), registrar.Username, rbacService.AnyOf{permission})
	if err != nil {
		handler.Error(c, err)
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("permission denied"))
		return
	}

	token, err := h.service.Register(c.Request.Context(), registrar, req.Kind, institutionService.RegisterRequest{
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
	})
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(token))
}

type setPharmacyRequest struct {
	PharmacyID uuid.UUID `json:"pharmacy_id" binding:"required"`
}

func (h *Handler) SetPreferredPharmacy(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthenticated"))
		return
	}

	var req setPharmacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.service.SetPreferredPharmacy(c.Request.Context(), user.Username, req.PharmacyID); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) GetPreferredPharmacy(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthenticated"))
		return
	}

	pharmacy, err := h.service.GetPreferredPharmacy(c.Request.Context(), user.Username)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(pharmacy))
}
