package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/AxonC/PrescriptionManagementApi/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Reason  string      `json:"reason,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// Error writes the HTTP rendering of a service error. Declined and conflict
// responses carry the stable reason code so clients can branch without
// parsing messages.
func Error(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, NewErrorResponse("internal error"))
		return
	}

	response := &Response{
		Status:  "error",
		Message: appErr.Message,
		Reason:  appErr.Reason,
	}

	switch appErr.Code {
	case apperrors.ErrUnauthenticated:
		c.JSON(http.StatusUnauthorized, response)
	case apperrors.ErrForbidden:
		c.JSON(http.StatusForbidden, response)
	case apperrors.ErrDeclined:
		c.JSON(http.StatusBadRequest, response)
	case apperrors.ErrConflict:
		c.JSON(http.StatusConflict, response)
	case apperrors.ErrNotFound:
		c.JSON(http.StatusNotFound, response)
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse("internal error"))
	}
}
