package medication

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AxonC/PrescriptionManagementApi/internal/handler"
	"github.com/AxonC/PrescriptionManagementApi/internal/middleware"
	medicationService "github.com/AxonC/PrescriptionManagementApi/internal/service/medication"
)

type Handler struct {
	service *medicationService.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *medicationService.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	medications := r.Group("/medications", h.auth.RequireAnyPermission("medications.get-all"))
	{
		medications.GET("", h.List)
		medications.GET("/:id", h.Get)
	}
}

func (h *Handler) List(c *gin.Context) {
	medications, err := h.service.List(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(medications))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid medication ID"))
		return
	}

	medication, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(medication))
}
