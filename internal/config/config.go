package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds service configuration.
type Config struct {
	DatabaseURL        string
	ServerAddr         string
	MigrationsDir      string
	JWTSecret          string
	AuditSigningKey    string
	NegotiationWindow  time.Duration
	NotificationTTL    time.Duration
	SweepInterval      time.Duration
	SweepBatchSize     int
	EscalationRule     string
	EscalationDisabled bool
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "negotiation")
		pass := getenv("POSTGRES_PASSWORD", "negotiation_pass")
		db := getenv("POSTGRES_DB", "negotiation")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		DatabaseURL:        dsn,
		ServerAddr:         getenv("SERVER_ADDR", "0.0.0.0:8080"),
		MigrationsDir:      getenv("MIGRATIONS_DIR", "internal/migrations"),
		JWTSecret:          jwtSecret,
		AuditSigningKey:    os.Getenv("AUDIT_SIGNING_KEY"),
		NegotiationWindow:  parseDuration(getenv("NEGOTIATION_WINDOW", "24h"), 24*time.Hour),
		NotificationTTL:    parseDuration(getenv("NOTIFICATION_TTL", "72h"), 72*time.Hour),
		SweepInterval:      parseDuration(getenv("SWEEP_INTERVAL", "1m"), time.Minute),
		SweepBatchSize:     parseInt(getenv("SWEEP_BATCH_SIZE", "100"), 100),
		EscalationRule:     getenv("ESCALATION_RULE", "ageHours > 4 && priority == 'URGENT'"),
		EscalationDisabled: parseBool(getenv("ESCALATION_DISABLED", "false"), false),
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}

func parseBool(val string, def bool) bool {
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}
