package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env      string
	HTTPPort string

	// DBDriver is "sqlite3" or "pgx". DatabaseURL is a file path for SQLite
	// and a connection string for Postgres.
	DBDriver    string
	DatabaseURL string
	RedisAddr   string

	JWTIssuer     string
	JWTSigningKey string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	AuthRequired  bool

	QueueBackend     string
	RateLimitPerMin  int
	LoginLimitPerMin int

	UploadDir     string
	MaxUploadSize int64

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string

	ProfileCacheTTL time.Duration
	SummaryCacheTTL time.Duration

	CORSOrigins  []string
	OTLPEndpoint string

	// WorkerMetricsPort serves /metrics from the worker binary.
	WorkerMetricsPort string
}

// Load returns application config populated from environment variables with sensible defaults.
// A .env file in the working directory or one of its parents is applied first when present.
func Load() App {
	loadDotenv()

	return App{
		Env:                 getEnv("APP_ENV", "dev"),
		HTTPPort:            getEnv("HTTP_PORT", "3000"),
		DBDriver:            getEnv("DB_DRIVER", "sqlite3"),
		DatabaseURL:         getEnv("DATABASE_URL", "attendance.db"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		JWTIssuer:           getEnv("JWT_ISSUER", "rollbook"),
		JWTSigningKey:       getEnv("JWT_SIGNING_KEY", "dev-signing-secret-change"),
		AccessTTL:           durationEnv("ACCESS_TTL", 15*time.Minute),
		RefreshTTL:          durationEnv("REFRESH_TTL", 24*time.Hour),
		AuthRequired:        boolEnv("AUTH_REQUIRED", false),
		QueueBackend:        getEnv("QUEUE_BACKEND", "memory"),
		RateLimitPerMin:     intEnv("RATE_LIMIT_PER_MIN", 120),
		LoginLimitPerMin:    intEnv("LOGIN_LIMIT_PER_MIN", 10),
		UploadDir:           getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadSize:       int64(intEnv("MAX_UPLOAD_MB", 10)) << 20,
		CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		CloudinaryFolder:    getEnv("CLOUDINARY_FOLDER", "rollbook/rosters"),
		ProfileCacheTTL:     durationEnv("PROFILE_CACHE_TTL", 5*time.Minute),
		SummaryCacheTTL:     durationEnv("SUMMARY_CACHE_TTL", 10*time.Minute),
		CORSOrigins:         listEnv("CORS_ORIGINS", []string{"*"}),
		OTLPEndpoint:        getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		WorkerMetricsPort:   getEnv("WORKER_METRICS_PORT", "9091"),
	}
}

// CloudinaryConfigured reports whether roster archiving credentials are present.
func (a App) CloudinaryConfigured() bool {
	return a.CloudinaryCloudName != "" && a.CloudinaryAPIKey != "" && a.CloudinaryAPISecret != ""
}

// Production reports whether the app runs with release settings.
func (a App) Production() bool {
	return a.Env == "production" || a.Env == "prod"
}

func loadDotenv() {
	for _, p := range []string{".env", filepath.Join("..", ".env")} {
		if _, err := os.Stat(p); err == nil {
			// real environment wins over the file
			if err := godotenv.Load(p); err != nil {
				slog.Warn("could not load env file", "path", p, "err", err)
			}
			return
		}
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			slog.Warn("invalid duration, using fallback", "key", key, "err", err, "fallback", fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if val == "1" || val == "true" || val == "TRUE" {
			return true
		}
		if val == "0" || val == "false" || val == "FALSE" {
			return false
		}
		slog.Warn("invalid bool, using fallback", "key", key, "fallback", fallback)
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		slog.Warn("invalid int, using fallback", "key", key, "fallback", fallback)
	}
	return fallback
}

func listEnv(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
