package handlers

import (
	"net/http"

	"flightbook/internal/services"

	"github.com/gin-gonic/gin"
)

// POST /api/flights
func (h *Handler) CreateFlight(c *gin.Context) {
	var in services.FlightInput
	if !BindJSONOrError(c, &in) {
		return
	}
	f, err := h.Flights.CreateFlight(requestContext(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"flight": f})
}

// GET /api/flights?origin=&destination=&date=
func (h *Handler) SearchFlights(c *gin.Context) {
	page, err := h.Flights.SearchFlights(requestContext(c), services.SearchInput{
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
		Date:        c.Query("date"),
		Page:        pageFromQuery(c),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/flights/admin?q=
func (h *Handler) ListFlights(c *gin.Context) {
	page, err := h.Flights.ListFlights(requestContext(c), c.Query("q"), pageFromQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/flights/admin/:id
func (h *Handler) GetFlight(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	f, err := h.Flights.GetFlight(requestContext(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flight": f})
}

// PUT /api/flights/admin/:id
func (h *Handler) UpdateFlight(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in services.FlightInput
	if !BindJSONOrError(c, &in) {
		return
	}
	f, err := h.Flights.UpdateFlight(requestContext(c), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flight": f})
}

// DELETE /api/flights/admin/:id
func (h *Handler) DeleteFlight(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Flights.DeleteFlight(requestContext(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "flight deleted", "id": id})
}

// PUT /api/flights/:id/cancel
func (h *Handler) CancelFlight(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	f, err := h.Flights.CancelFlight(requestContext(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flight": f})
}
