package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// GetString retrieves an environment variable or returns a fallback when unset.
func GetString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetInt retrieves an environment variable as integer or returns fallback.
func GetInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("invalid value for %s: %v", key, err)
			return fallback
		}
		return parsed
	}
	return fallback
}

// APIConfig holds runtime configuration for the control plane.
type APIConfig struct {
	Environment         string
	Addr                string
	DatabaseURL         string
	MigrationsDir       string
	JWTSecret           string
	VaultSecret         string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	PublicBaseURL       string
	CloudflareAPIToken  string
	CloudflareAccountID string
	CloudflareBaseURL   string
	NetlifyAPIToken     string
	NetlifyBaseURL      string
	ProviderTimeout     time.Duration
	EventBuffer         int
	RateLimitRedisAddr  string
	RateLimitRedisPass  string
	RateLimitRedisDB    int
}

// LoadAPIConfig constructs an APIConfig from environment variables. A .env file
// in the working directory is applied first when present.
func LoadAPIConfig() APIConfig {
	_ = godotenv.Load()
	return APIConfig{
		Environment:         GetString("APP_ENV", "development"),
		Addr:                GetString("API_ADDR", ":4000"),
		DatabaseURL:         GetString("DATABASE_URL", "postgres://pagecrane:pagecrane@db:5432/pagecrane?sslmode=disable"),
		MigrationsDir:       GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		JWTSecret:           GetString("JWT_SECRET", "supersecuresecret"),
		VaultSecret:         GetString("CREDENTIAL_VAULT_SECRET", "supersecuresecret"),
		AccessTokenTTL:      time.Duration(GetInt("ACCESS_TOKEN_TTL_MIN", 15)) * time.Minute,
		RefreshTokenTTL:     time.Duration(GetInt("REFRESH_TOKEN_TTL_HOURS", 24)) * time.Hour,
		PublicBaseURL:       GetString("PUBLIC_BASE_URL", "http://localhost:4000"),
		CloudflareAPIToken:  GetString("CLOUDFLARE_API_TOKEN", ""),
		CloudflareAccountID: GetString("CLOUDFLARE_ACCOUNT_ID", ""),
		CloudflareBaseURL:   GetString("CLOUDFLARE_API_BASE", "https://api.cloudflare.com/client/v4"),
		NetlifyAPIToken:     GetString("NETLIFY_API_TOKEN", ""),
		NetlifyBaseURL:      GetString("NETLIFY_API_BASE", "https://api.netlify.com/api/v1"),
		ProviderTimeout:     time.Duration(GetInt("PROVIDER_TIMEOUT_SECONDS", 30)) * time.Second,
		EventBuffer:         GetInt("WS_EVENT_BUFFER", 100),
		RateLimitRedisAddr:  GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass:  GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:    GetInt("RATE_LIMIT_REDIS_DB", 0),
	}
}
