package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/marketplace-service/internal/payments"
	"github.com/SAP-F-2025/marketplace-service/internal/pricing"
	"github.com/SAP-F-2025/marketplace-service/internal/utils"
)

// SandboxHandler lets development clients mint completed captures that the
// sandbox verifier will accept.
type SandboxHandler struct {
	BaseHandler
	sandbox *payments.SandboxVerifier
}

func NewSandboxHandler(sandbox *payments.SandboxVerifier, logger utils.Logger) *SandboxHandler {
	return &SandboxHandler{BaseHandler: NewBaseHandler(logger), sandbox: sandbox}
}

type CaptureRequest struct {
	Value      pricing.Money `json:"value"`
	PayerEmail string        `json:"payer_email"`
}

type CaptureResponse struct {
	ID     string        `json:"id"`
	Status string        `json:"status"`
	Value  pricing.Money `json:"value"`
}

// CreateCapture registers a completed capture for the given amount
// @Summary Create sandbox capture
// @Tags sandbox
// @Accept json
// @Produce json
// @Param capture body CaptureRequest true "Amount"
// @Success 201 {object} CaptureResponse
// @Router /sandbox/captures [post]
func (h *SandboxHandler) CreateCapture(c *gin.Context) {
	var req CaptureRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.Value.IsNegative() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "value must not be negative"})
		return
	}

	id := h.sandbox.Register(req.Value, req.PayerEmail)
	h.LogRequest(c, "Sandbox capture created", "transaction_id", id, "value", req.Value.String())
	c.JSON(http.StatusCreated, CaptureResponse{ID: id, Status: payments.StatusCompleted, Value: req.Value.Round()})
}
