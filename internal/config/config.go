package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins []string

	DBHost string
	DBUser string
	DBPass string
	DBName string
	DBPort string

	RedisURL string

	MeiliSearchHost string
	MeiliMasterKey  string

	CloudinaryCloudName    string
	CloudinaryUploadFolder string

	MarketplaceAPIURL string
	AuthServiceURL    string
	UpstreamTimeout   time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	RegistrationSessionTTL time.Duration
	SubmitLockTTL          time.Duration

	OTLPEndpoint string
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		DBHost: getEnv("DB_HOST", "localhost"),
		DBUser: getEnv("DB_USER", "postgres"),
		DBPass: os.Getenv("DB_PASS"),
		DBName: getEnv("DB_NAME", "legalconnect"),
		DBPort: getEnv("DB_PORT", "5432"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		MeiliSearchHost: normalizeMeiliHost(getEnv("MEILISEARCH_HOST", "http://localhost:7700")),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "legalconnect_registrations"),

		MarketplaceAPIURL: getEnv("MARKETPLACE_API_URL", "http://localhost:4000"),
		AuthServiceURL:    getEnv("AUTH_SERVICE_URL", "http://localhost:3000"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	var err error
	cfg.UpstreamTimeout, err = parseDuration(getEnv("UPSTREAM_TIMEOUT", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid UPSTREAM_TIMEOUT: %w", err)
	}
	cfg.RegistrationSessionTTL, err = parseDuration(getEnv("REGISTRATION_SESSION_TTL", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid REGISTRATION_SESSION_TTL: %w", err)
	}
	cfg.SubmitLockTTL, err = parseDuration(getEnv("SUBMIT_LOCK_TTL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SUBMIT_LOCK_TTL: %w", err)
	}

	minutes, err := strconv.Atoi(getEnv("JWT_TTL_MINUTES", "60"))
	if err != nil || minutes <= 0 {
		return nil, fmt.Errorf("invalid JWT_TTL_MINUTES: %q", os.Getenv("JWT_TTL_MINUTES"))
	}
	cfg.JWTTTL = time.Duration(minutes) * time.Minute

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET is required outside development")
		}
		cfg.JWTSecret = "dev-secret"
	}

	return cfg, nil
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPass, c.DBName, c.DBPort,
	)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// normalizeMeiliHost accepts a bare hostname as docker-compose setups pass it.
func normalizeMeiliHost(host string) string {
	if !strings.HasPrefix(host, "http") {
		return "http://" + host + ":7700"
	}
	return host
}
