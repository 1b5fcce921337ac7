package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string

	ServerPort  int
	CORSOrigins []string

	LogLevel  string
	LogFormat string

	StorageDriver string
	DatabaseURL   string
	SQLitePath    string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	CartTTL        time.Duration
	IdempotencyTTL time.Duration

	KafkaBrokers     []string
	OrderEventsTopic string
	UserEventsTopic  string

	NotifyWorkers   int
	NotifyQueueSize int
	NotifyTimeout   time.Duration

	AdminEmail     string
	AdminPassword  string
	AdminJWTSecret []byte
	AdminTokenTTL  time.Duration

	Coupons string
}

func Load() Config {
	LoadDotEnv(".env")

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "edu_shop"),

		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		CORSOrigins: CSV(os.Getenv("CORS_ORIGINS")),

		LogLevel:  EnvDefault("LOG_LEVEL", "info"),
		LogFormat: EnvDefault("LOG_FORMAT", "json"),

		StorageDriver: strings.ToLower(EnvDefault("STORAGE_DRIVER", "memory")),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SQLitePath:    EnvDefault("SQLITE_PATH", "file::memory:?cache=shared"),

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        EnvIntDefault("REDIS_DB", 0),
		CartTTL:        EnvDurationDefault("CART_TTL", 72*time.Hour),
		IdempotencyTTL: EnvDurationDefault("IDEMPOTENCY_TTL", 24*time.Hour),

		KafkaBrokers:     CSV(os.Getenv("KAFKA_BROKERS")),
		OrderEventsTopic: EnvDefault("ORDER_EVENTS_TOPIC", "order_events"),
		UserEventsTopic:  EnvDefault("USER_EVENTS_TOPIC", "user_events"),

		NotifyWorkers:   EnvIntDefault("NOTIFY_WORKERS", 4),
		NotifyQueueSize: EnvIntDefault("NOTIFY_QUEUE_SIZE", 256),
		NotifyTimeout:   EnvDurationDefault("NOTIFY_TIMEOUT", 5*time.Second),

		AdminEmail:     os.Getenv("ADMIN_EMAIL"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		AdminJWTSecret: []byte(os.Getenv("ADMIN_JWT_SECRET")),
		AdminTokenTTL:  EnvDurationDefault("ADMIN_TOKEN_TTL", 24*time.Hour),

		Coupons: os.Getenv("COUPONS"),
	}
}

// LoadDotEnv populates the environment from path without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("notice: cannot read %s: %v", path, err)
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
