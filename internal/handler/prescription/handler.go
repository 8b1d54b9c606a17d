package prescription

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AxonC/PrescriptionManagementApi/internal/handler"
	"github.com/AxonC/PrescriptionManagementApi/internal/middleware"
	prescriptionService "github.com/AxonC/PrescriptionManagementApi/internal/service/prescription"
)

type Handler struct {
	service *prescriptionService.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *prescriptionService.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	prescriptions := r.Group("/prescriptions")
	{
		prescriptions.POST("", h.auth.RequireAnyPermission("prescription.create"), h.Create)
		prescriptions.GET("", h.auth.RequireAnyPermission("prescription.list"), h.ListByInstitution)
		prescriptions.GET("/:id", h.auth.RequireAnyPermission("prescription.list"), h.Get)
		prescriptions.POST("/:id/approve", h.auth.RequireAnyPermission("prescription.approve"), h.Approve)
		prescriptions.POST("/:id/issue", h.auth.RequireAnyPermission("prescription.issue"), h.Issue)
		prescriptions.PATCH("/:id", h.auth.RequireAnyPermission("prescription.modify"), h.Modify)
		prescriptions.DELETE("/:id", h.auth.RequireAnyPermission("prescription.delete"), h.Delete)
	}

	r.GET("/short-codes/:code", h.auth.RequireAnyPermission("prescription.short-code"), h.GetByShortCode)
	r.GET("/me/prescriptions", h.Dashboard)
}

type createRequest struct {
	Username      string    `json:"username" binding:"required"`
	MedicationID  uuid.UUID `json:"medication_id" binding:"required"`
	TimeStatement string    `json:"time_statement" binding:"required"`
}

func (h *Handler) Create(c *gin.Context) {
	requester, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthenticated"))
		return
	}

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.service.Create(c.Request.Context(), requester, prescriptionService.CreateRequest{
		Username:      req.Username,
		MedicationID:  req.MedicationID,
		TimeStatement: req.TimeStatement,
	})
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(result))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid prescription ID"))
		return
	}

	prescription, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(prescription))
}

func (h *Handler) GetByShortCode(c *gin.Context) {
	prescription, err := h.service.GetByShortCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(prescription))
}

// ListByInstitution returns the prescriptions visible to the caller's
// institution, either as prescriber or as filling pharmacy.
func (h *Handler) ListByInstitution(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok || user.InstitutionID == nil {
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("permission denied"))
		return
	}

	listings, err := h.service.ListByInstitution(c.Request.Context(), *user.InstitutionID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(listings))
}

func (h *Handler) Dashboard(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthenticated"))
		return
	}

	entries, err := h.service.Dashboard(c.Request.Context(), user.Username)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(entries))
}

func (h *Handler) Approve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid prescription ID"))
		return
	}

	if err := h.service.Approve(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) Issue(c *gin.Context) {
	issuer, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthenticated"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid prescription ID"))
		return
	}

	if err := h.service.Issue(c.Request.Context(), issuer, id); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

type modifyRequest struct {
	MedicationID  *uuid.UUID `json:"medication_id"`
	TimeStatement *string    `json:"time_statement"`
}

func (h *Handler) Modify(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid prescription ID"))
		return
	}

	var req modifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	prescription, err := h.service.Modify(c.Request.Context(), id, prescriptionService.ModifyRequest{
		MedicationID:  req.MedicationID,
		TimeStatement: req.TimeStatement,
	})
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(prescription))
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid prescription ID"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
