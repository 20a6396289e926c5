package payment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/payflow/server/internal/shared/errors"
	"github.com/payflow/server/internal/shared/response"
)

// Handler handles HTTP requests for payments.
type Handler struct {
	service *Service
}

// NewHandler creates a new payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the payment routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.POST("", h.CreatePayment)
		payments.POST("/callback", h.HandleCallback)
		payments.GET("/:id", h.GetPayment)
	}
}

// CreatePayment creates a payment in the INITIATED state.
func (h *Handler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	resp, err := h.service.CreatePayment(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetPayment returns a payment by ID, including timestamps.
func (h *Handler) GetPayment(c *gin.Context) {
	resp, err := h.service.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// HandleCallback applies an asynchronous status callback from the gateway.
func (h *Handler) HandleCallback(c *gin.Context) {
	var req PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := h.service.HandleCallback(c.Request.Context(), &req); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrPaymentNotFound):
		response.FromError(c, apperrors.NotFound("payment"))
	case errors.Is(err, ErrAmountMismatch):
		response.FromError(c, apperrors.AmountMismatch("callback amount does not match stored amount"))
	case errors.Is(err, ErrVersionConflict):
		response.FromError(c, apperrors.ConcurrencyConflict("payment was updated concurrently, retry the callback"))
	default:
		response.FromError(c, err)
	}
}
