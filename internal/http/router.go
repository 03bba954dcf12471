package api

import (
	stdhttp "net/http"

	intconfig "flightbook/internal/config"
	"flightbook/internal/domain"
	h "flightbook/internal/http/handlers"
	"flightbook/internal/http/middleware"
	"flightbook/internal/metrics"
	"flightbook/internal/utils"

	"github.com/gin-gonic/gin"
)

// NewRouter mounts every route on a fresh engine.
func NewRouter(env intconfig.Env, hd *h.Handler, m *metrics.Metrics, log utils.Logger) *gin.Engine {
	if log == nil {
		log = utils.NewNopLogger()
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(log), gin.Recovery(), middleware.CORS(env.CORSAllowedOrigins), middleware.Metrics(m))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Warn("failed to set trusted proxies", "error", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":      "route not found",
			"code":       "not_found",
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
			"request_id": middleware.GetRequestID(c),
		})
	})

	authn := middleware.Authenticate(hd.Auth)
	customer := middleware.RequireRoles(domain.RoleCustomer)
	admin := middleware.RequireRoles(domain.RoleAdmin, domain.RoleRoot)
	root := middleware.RequireRoles(domain.RoleRoot)

	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	api := r.Group("/api")
	{
		api.GET("/health", hd.Health)
		api.GET("/db-check", hd.DBCheck)
		api.GET("/routes", authn, admin, hd.Routes)

		// Auth
		auth := api.Group("/auth")
		auth.POST("/login", hd.Login)
		auth.GET("/me", authn, hd.Me)

		// Flights
		flights := api.Group("/flights")
		flights.GET("", hd.SearchFlights)
		flights.POST("", authn, admin, hd.CreateFlight)
		flights.PUT("/:id/cancel", authn, admin, hd.CancelFlight)
		mountFlightAdmin(flights.Group("/admin", authn, admin), hd)

		// Reservations
		reservations := api.Group("/reservations", authn, customer)
		reservations.POST("", hd.CreateReservation)
		reservations.GET("/historial", hd.ReservationHistory)
		reservations.GET("/:id", hd.GetReservation)
		reservations.PUT("/:id/cancelar", hd.CancelReservation)
		reservations.PUT("/:id/comprar", hd.ConvertReservation)
		reservations.GET("/:id/ticket", hd.GetTicketPDF)
		reservations.GET("/:id/invoice", hd.GetInvoicePDF)

		// Payments
		payments := api.Group("/payments", authn)
		payments.POST("/create-intent", customer, hd.CreatePaymentIntent)
		payments.GET("/verify/:intentId", customer, hd.VerifyPaymentIntent)
		payments.POST("/reconcile", admin, hd.ReconcilePayments)

		// Reports
		reports := api.Group("/reports", authn, admin)
		reports.GET("/sales", hd.GetSalesReport)

		// Users
		users := api.Group("/users", authn, root)
		users.GET("", hd.ListUsers)
		users.PUT("/:id/role", hd.SetUserRole)
		users.DELETE("/:id", hd.DeleteUser)
	}

	hd.SetRouter(r)
	return r
}

func mountFlightAdmin(g *gin.RouterGroup, hd *h.Handler) {
	g.GET("", hd.ListFlights)
	g.GET("/:id", hd.GetFlight)
	g.PUT("/:id", hd.UpdateFlight)
	g.DELETE("/:id", hd.DeleteFlight)
}
