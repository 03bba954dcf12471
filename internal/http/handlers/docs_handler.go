package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /api/reservations/:id/ticket
func (h *Handler) GetTicketPDF(c *gin.Context) {
	h.servePDF(c, h.Docs.GenerateTicket)
}

// GET /api/reservations/:id/invoice
func (h *Handler) GetInvoicePDF(c *gin.Context) {
	h.servePDF(c, h.Docs.GenerateInvoice)
}

func (h *Handler) servePDF(c *gin.Context, render func(ctx context.Context, reservationID, userID int64) ([]byte, string, error)) {
	id, ok := caller(c)
	if !ok {
		return
	}
	rid, ok := pathID(c, "id")
	if !ok {
		return
	}
	pdfBytes, filename, err := render(requestContext(c), rid, int64(id.UserID))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
