package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

type Env struct {
	AppAddr  string
	GinMode  string
	LogLevel string

	StoreDriver string
	DBDSN       string
	DBUser      string
	DBPassword  string
	DBHost      string
	DBName      string

	JWTSecret string
	JWTTTL    time.Duration

	StripeSecretKey string
	StripeAPIURL    string
	Currency        string
	GatewayTimeout  time.Duration

	ReconcileInterval time.Duration
	ReconcileGrace    time.Duration

	CORSAllowedOrigins []string
}

// LoadEnv reads .env when present, then the process environment.
func LoadEnv() Env {
	_ = godotenv.Load()

	return Env{
		AppAddr:  getEnv("APP_ADDR", ":8080"),
		GinMode:  getEnv("GIN_MODE", ""),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreMySQL)),
		DBDSN:       getEnv("DB_DSN", ""),
		DBUser:      getEnv("DB_USER", "root"),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DBHost:      getEnv("DB_HOST", "127.0.0.1:3306"),
		DBName:      getEnv("DB_NAME", "flightbook"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    getEnvAsDuration("JWT_TTL", 24*time.Hour),

		StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		StripeAPIURL:    getEnv("STRIPE_API_URL", ""),
		Currency:        strings.ToLower(getEnv("PAYMENT_CURRENCY", "cop")),
		GatewayTimeout:  getEnvAsDuration("GATEWAY_TIMEOUT", 10*time.Second),

		ReconcileInterval: getEnvAsDuration("RECONCILE_INTERVAL", 5*time.Minute),
		ReconcileGrace:    getEnvAsDuration("RECONCILE_GRACE", 15*time.Minute),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
	}
}

// Validate reports settings the server cannot start without.
func (e Env) Validate() error {
	if strings.TrimSpace(e.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch e.StoreDriver {
	case StoreMySQL, StoreMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMySQL, StoreMemory, e.StoreDriver)
	}
	return nil
}

// DSN returns DB_DSN or builds one from the DB_* parts.
func (e Env) DSN() string {
	if e.DBDSN != "" {
		return e.DBDSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s",
		e.DBUser,
		e.DBPassword,
		e.DBHost,
		e.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("15m") or whole seconds ("900").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
