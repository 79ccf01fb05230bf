package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is read once at startup from the environment (and .env if present).
type Config struct {
	Port        string
	GinMode     string
	FrontendURL string

	DBDriver string
	DBDSN    string

	JWTSecret string
	JWTTTL    time.Duration

	TaxRate             decimal.Decimal
	MaxEstimatedMinutes int
	MinEstimatedMinutes int

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	IdempotencyTTL time.Duration

	HTTPTimeout    time.Duration
	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel  string
	LogFormat string

	WSSendBuffer int
	SeedDemo     bool
}

// Load reads .env (a missing file is not an error) and the process
// environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		DBDriver: getEnv("DB_DRIVER", "sqlite"),
		DBDSN:    getEnv("DB_DSN", "restaurant.db"),

		JWTSecret: getEnv("JWT_SECRET", "change-me-in-production"),
		JWTTTL:    time.Duration(getEnvInt("JWT_TTL_HOURS", 24)) * time.Hour,

		TaxRate:             getEnvDecimal("TAX_RATE", decimal.RequireFromString("0.18")),
		MaxEstimatedMinutes: getEnvInt("MAX_ESTIMATED_MINUTES", 60),
		MinEstimatedMinutes: getEnvInt("MIN_ESTIMATED_MINUTES", 15),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		IdempotencyTTL: time.Duration(getEnvInt("IDEMPOTENCY_TTL_HOURS", 24)) * time.Hour,

		HTTPTimeout:    time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 10)) * time.Second,
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		WSSendBuffer: getEnvInt("WS_SEND_BUFFER", 64),
		SeedDemo:     getEnvBool("SEED_DEMO_DATA", false),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil && !d.IsNegative() {
			return d
		}
	}
	return fallback
}
