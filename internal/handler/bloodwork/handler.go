package bloodwork

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AxonC/PrescriptionManagementApi/internal/handler"
	"github.com/AxonC/PrescriptionManagementApi/internal/middleware"
	bloodworkService "github.com/AxonC/PrescriptionManagementApi/internal/service/bloodwork"
)

type Handler struct {
	service *bloodworkService.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *bloodworkService.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	requests := r.Group("/bloodwork-requests")
	{
		requests.GET("", h.auth.RequireAnyPermission("bloodwork-request.list"), h.ListByPractice)
		requests.GET("/:id", h.auth.RequireAnyPermission("bloodwork-request.get"), h.Get)
		requests.POST("/:id/complete", h.auth.RequireAnyPermission("bloodwork-request.complete"), h.Complete)
	}
}

// ListByPractice returns the caller's practice worklist. The completed
// query parameter selects finished or outstanding requests, outstanding by
// default.
func (h *Handler) ListByPractice(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok || user.InstitutionID == nil {
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("permission denied"))
		return
	}

	completed, err := strconv.ParseBool(c.DefaultQuery("completed", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid completed filter"))
		return
	}

	listings, err := h.service.ListByPractice(c.Request.Context(), *user.InstitutionID, completed)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(listings))
}

func (h *Handler) Get(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok || user.InstitutionID == nil {
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("permission denied"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request ID"))
		return
	}

	request, err := h.service.Get(c.Request.Context(), *user.InstitutionID, id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(request))
}

func (h *Handler) Complete(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok || user.InstitutionID == nil {
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("permission denied"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request ID"))
		return
	}

	if err := h.service.Complete(c.Request.Context(), *user.InstitutionID, id); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
