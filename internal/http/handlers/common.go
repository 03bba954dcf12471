package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"flightbook/internal/domain"
	"flightbook/internal/http/middleware"
	"flightbook/internal/services"
	"flightbook/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func init() {
	// totals and prices travel as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// Handler carries the services behind every route.
type Handler struct {
	Flights      services.FlightService
	Reservations services.ReservationService
	Payments     services.PaymentService
	Reconciler   services.Reconciler
	Auth         services.AuthService
	Users        services.UserAdminService
	Docs         services.DocsService
	Reports      services.ReportsService
	Log          utils.Logger

	// Ping reports storage readiness for /api/db-check; nil means always ready.
	Ping func(ctx context.Context) error

	routes routeTable
}

func (h *Handler) log() utils.Logger {
	if h.Log == nil {
		return utils.NewNopLogger()
	}
	return h.Log
}

// fail writes err and logs the server-side failures.
func (h *Handler) fail(c *gin.Context, err error) {
	if status := RespondDomainError(c, err); status >= http.StatusInternalServerError {
		h.log().Error("request failed",
			"request_id", middleware.GetRequestID(c),
			"path", c.FullPath(),
			"error", err,
		)
	}
}

// requestContext tags the request context with its request id.
func requestContext(c *gin.Context) context.Context {
	return services.WithRequestID(c.Request.Context(), middleware.GetRequestID(c))
}

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		respondError(c, http.StatusBadRequest, "validation_error", "request body is required", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "invalid payload", bindingIssues(err))
		return false
	}
	return true
}

// bindOptionalJSON accepts an empty body.
func bindOptionalJSON[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	return BindJSONOrError(c, dst)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "validation_error", "invalid "+name,
			[]domain.FieldIssue{{Field: name, Message: "must be a positive integer"}})
		return 0, false
	}
	return id, true
}

func pageFromQuery(c *gin.Context) domain.Pagination {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("pageSize"))
	return domain.Pagination{Page: page, PageSize: size}
}

// caller returns the identity set by the auth middleware.
func caller(c *gin.Context) (domain.Identity, bool) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized", "no credential", nil)
	}
	return id, ok
}
