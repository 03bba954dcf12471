package handlers

import (
	"net/http"
	"strings"

	"flightbook/internal/services"

	"github.com/gin-gonic/gin"
)

// GET /api/reports/sales?start_date=&end_date=
func (h *Handler) GetSalesReport(c *gin.Context) {
	report, err := h.Reports.GetSalesReport(requestContext(c), services.SalesReportFilter{
		StartDate: strings.TrimSpace(c.Query("start_date")),
		EndDate:   strings.TrimSpace(c.Query("end_date")),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
