package handlers

import (
	"net/http"

	"flightbook/internal/services"

	"github.com/gin-gonic/gin"
)

type cancelRequest struct {
	Reason string `json:"motivo" binding:"max=500"`
}

// POST /api/reservations
func (h *Handler) CreateReservation(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var in services.CreateReservationInput
	if !BindJSONOrError(c, &in) {
		return
	}
	d, err := h.Reservations.Create(requestContext(c), int64(id.UserID), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reserva": d})
}

// GET /api/reservations/historial
func (h *Handler) ReservationHistory(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	list, err := h.Reservations.History(requestContext(c), int64(id.UserID))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservas": list, "total": len(list)})
}

// GET /api/reservations/:id
func (h *Handler) GetReservation(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	rid, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.Reservations.Get(requestContext(c), rid, int64(id.UserID))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reserva": d})
}

// PUT /api/reservations/:id/cancelar
func (h *Handler) CancelReservation(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	rid, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req cancelRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	d, err := h.Reservations.Cancel(requestContext(c), rid, int64(id.UserID), req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reserva": d})
}

// PUT /api/reservations/:id/comprar
func (h *Handler) ConvertReservation(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	rid, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.Reservations.ConvertToPurchase(requestContext(c), rid, int64(id.UserID))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reserva": d})
}
