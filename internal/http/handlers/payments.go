package handlers

import (
	"net/http"
	"strings"

	"flightbook/internal/services"

	"github.com/gin-gonic/gin"
)

const idempotencyHeader = "Idempotency-Key"

// POST /api/payments/create-intent
func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var in services.ChargeIntentInput
	if !BindJSONOrError(c, &in) {
		return
	}
	if key := strings.TrimSpace(c.GetHeader(idempotencyHeader)); key != "" {
		in.IdempotencyKey = key
	}
	ci, err := h.Payments.CreateChargeIntent(requestContext(c), int64(id.UserID), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header(idempotencyHeader, ci.IdempotencyKey)
	c.JSON(http.StatusOK, ci)
}

// GET /api/payments/verify/:intentId
func (h *Handler) VerifyPaymentIntent(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	st, err := h.Payments.GetChargeStatus(requestContext(c), int64(id.UserID), c.Param("intentId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// POST /api/payments/reconcile
func (h *Handler) ReconcilePayments(c *gin.Context) {
	report, err := h.Reconciler.Sweep(requestContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
