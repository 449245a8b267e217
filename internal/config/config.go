package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Redis (auth-surface rate limiting)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Push gateway
	GatewayURL     string
	GatewayTimeout time.Duration

	// Periodic processor
	ProcessorBatchSize int
	ProcessorWorkers   int
	DispatchPerSec     int

	// Up-soon fan-out: how many downstream entries get an alert per score
	UpSoonSpan int

	// Rate limiting
	AnnouncementLimit  int
	AnnouncementWindow time.Duration
	AuthFailureLimit   int
	AuthFailureWindow  time.Duration

	// Cleanup windows
	SucceededRetention  time.Duration
	StaleSubscription   time.Duration
	RateCounterRetention time.Duration

	// Cron schedules for the in-process scheduler
	ProcessSchedule string
	CleanupSchedule string
}

func Load() (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		GatewayURL:     getEnv("GATEWAY_URL", "https://push.example.com/v1/send"),
		GatewayTimeout: getDuration("GATEWAY_TIMEOUT", 5*time.Second),

		ProcessorBatchSize: getInt("PROCESSOR_BATCH_SIZE", 50),
		ProcessorWorkers:   getInt("PROCESSOR_WORKERS", 6),
		DispatchPerSec:     getInt("DISPATCH_PER_SEC", 50),

		UpSoonSpan: getInt("UP_SOON_SPAN", 5),

		AnnouncementLimit:  getInt("ANNOUNCEMENT_LIMIT", 10),
		AnnouncementWindow: getDuration("ANNOUNCEMENT_WINDOW", time.Hour),
		AuthFailureLimit:   getInt("AUTH_FAILURE_LIMIT", 10),
		AuthFailureWindow:  getDuration("AUTH_FAILURE_WINDOW", 15*time.Minute),

		SucceededRetention:   getDuration("SUCCEEDED_RETENTION", 24*time.Hour),
		StaleSubscription:    getDuration("STALE_SUBSCRIPTION", 90*24*time.Hour),
		RateCounterRetention: getDuration("RATE_COUNTER_RETENTION", 48*time.Hour),

		ProcessSchedule: getEnv("PROCESS_SCHEDULE", "*/5 * * * *"),
		CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "0 4 * * 1"),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
