package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	intconfig "flightbook/internal/config"
	"flightbook/internal/db"
	"flightbook/internal/gateway"
	"flightbook/internal/http/handlers"
	"flightbook/internal/metrics"
	"flightbook/internal/repositories"
	"flightbook/internal/repositories/memory"
	"flightbook/internal/services"
	"flightbook/internal/utils"
)

// Stores groups the persistence ports behind every service.
type Stores struct {
	Flights      repositories.FlightStore
	Reservations repositories.ReservationStore
	Users        repositories.UserStore
	Payments     repositories.PaymentLedger
	Reports      repositories.ReportStore

	// Ping is nil for stores without a connection.
	Ping  func(ctx context.Context) error
	Close func() error
}

// MySQLStores opens the pool named by env and runs pending migrations when
// migrate is set.
func MySQLStores(ctx context.Context, env intconfig.Env, migrate bool, log utils.Logger) (Stores, error) {
	conn, err := intconfig.ConnectDB(ctx, env)
	if err != nil {
		return Stores{}, err
	}
	if migrate {
		applied, err := db.Migrate(ctx, conn)
		if err != nil {
			_ = conn.Close()
			return Stores{}, fmt.Errorf("migrate: %w", err)
		}
		if len(applied) > 0 {
			log.Info("schema migrated", "steps", strings.Join(applied, "; "))
		}
	}
	return SQLStores(conn), nil
}

func SQLStores(conn *sql.DB) Stores {
	return Stores{
		Flights:      repositories.FlightRepository{DB: conn},
		Reservations: repositories.ReservationRepository{DB: conn},
		Users:        repositories.UserRepository{DB: conn},
		Payments:     repositories.PaymentRepository{DB: conn},
		Reports:      repositories.ReportRepository{DB: conn},
		Ping:         conn.PingContext,
		Close:        conn.Close,
	}
}

func MemoryStores(s *memory.Store) Stores {
	return Stores{
		Flights:      s.Flights(),
		Reservations: s.Reservations(),
		Users:        s.Users(),
		Payments:     s.Payments(),
		Reports:      s.Reports(),
		Close:        func() error { return nil },
	}
}

// OpenStores picks the backend from STORE_DRIVER.
func OpenStores(ctx context.Context, env intconfig.Env, log utils.Logger) (Stores, error) {
	if env.StoreDriver == intconfig.StoreMemory {
		log.Warn("using in-memory store; data is lost on restart")
		return MemoryStores(memory.New()), nil
	}
	return MySQLStores(ctx, env, true, log)
}

// NewGateway returns the Stripe client, or the in-process fake when no key
// is configured.
func NewGateway(env intconfig.Env, m *metrics.Metrics, log utils.Logger) gateway.Gateway {
	var next gateway.Gateway
	if strings.TrimSpace(env.StripeSecretKey) == "" {
		log.Warn("STRIPE_SECRET_KEY not set; using fake payment gateway")
		next = gateway.NewFake()
	} else {
		next = gateway.NewStripe(gateway.StripeConfig{
			SecretKey: env.StripeSecretKey,
			APIURL:    env.StripeAPIURL,
			Timeout:   env.GatewayTimeout,
		})
	}
	return gateway.Instrumented{Next: next, Metrics: m}
}

// NewHandler builds every service over st and gw.
func NewHandler(env intconfig.Env, st Stores, gw gateway.Gateway, m *metrics.Metrics, log utils.Logger, now utils.Clock) *handlers.Handler {
	reservations := services.ReservationService{
		Flights:      st.Flights,
		Reservations: st.Reservations,
		Users:        st.Users,
		Payments:     st.Payments,
		Gateway:      gw,
		Metrics:      m,
		Log:          log,
		Now:          now,
	}
	return &handlers.Handler{
		Flights:      services.FlightService{Flights: st.Flights, Reservations: st.Reservations, Log: log, Now: now},
		Reservations: reservations,
		Payments: services.PaymentService{
			Flights:  st.Flights,
			Payments: st.Payments,
			Gateway:  gw,
			Currency: env.Currency,
			Log:      log,
			Now:      now,
		},
		Reconciler: services.Reconciler{
			Payments:     st.Payments,
			Reservations: st.Reservations,
			Flights:      st.Flights,
			Users:        st.Users,
			Gateway:      gw,
			Engine:       reservations,
			Grace:        env.ReconcileGrace,
			Metrics:      m,
			Log:          log,
			Now:          now,
		},
		Auth:    services.AuthService{Users: st.Users, Secret: []byte(env.JWTSecret), TTL: env.JWTTTL, Log: log, Now: now},
		Users:   services.UserAdminService{Users: st.Users, Payments: st.Payments, Log: log, Now: now},
		Docs:    services.DocsService{Reservations: reservations, Currency: env.Currency, Log: log, Now: now},
		Reports: services.ReportsService{Reports: st.Reports, Log: log},
		Log:     log,
		Ping:    st.Ping,
	}
}
