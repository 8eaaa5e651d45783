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
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Identity provider tokens. One of secret (HS256) or public key (RS256).
	IdentityJWTSecret    string
	IdentityJWTPublicKey string

	AI AIConfig

	// Firebase custom-token minting
	Firebase FirebaseConfig

	// Ingestion
	MaxUploadMB int

	// Frontend
	FrontendURL string
}

// AIConfig is the subset needed to run the flows, shared with the CLI.
type AIConfig struct {
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int
	MaxAttempts          int
	BaseDelay            time.Duration
	RateLimitPerMinute   int
}

type FirebaseConfig struct {
	ProjectID   string
	ClientEmail string
	PrivateKey  string
}

// Missing lists the names of unset Firebase variables.
func (f FirebaseConfig) Missing() []string {
	var missing []string
	if f.ProjectID == "" {
		missing = append(missing, "FIREBASE_PROJECT_ID")
	}
	if f.ClientEmail == "" {
		missing = append(missing, "FIREBASE_CLIENT_EMAIL")
	}
	if f.PrivateKey == "" {
		missing = append(missing, "FIREBASE_PRIVATE_KEY")
	}
	return missing
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		DatabaseURL:          mustGetEnv("DATABASE_URL"),
		RedisURL:             mustGetEnv("REDIS_URL"),
		IdentityJWTSecret:    getEnvOrDefault("IDENTITY_JWT_SECRET", ""),
		IdentityJWTPublicKey: normalizePEM(getEnvOrDefault("IDENTITY_JWT_PUBLIC_KEY", "")),
		AI:                   loadAI(),
		Firebase: FirebaseConfig{
			ProjectID:   getEnvOrDefault("FIREBASE_PROJECT_ID", ""),
			ClientEmail: getEnvOrDefault("FIREBASE_CLIENT_EMAIL", ""),
			PrivateKey:  normalizePEM(getEnvOrDefault("FIREBASE_PRIVATE_KEY", "")),
		},
		MaxUploadMB: getEnvAsIntOrDefault("MAX_UPLOAD_MB", 10),
		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}

	if cfg.IdentityJWTSecret == "" && cfg.IdentityJWTPublicKey == "" {
		panic("one of IDENTITY_JWT_SECRET or IDENTITY_JWT_PUBLIC_KEY must be set")
	}

	return cfg
}

// LoadAI reads only the AI settings. Used by aetherctl, which has no
// database or identity provider.
func LoadAI() AIConfig {
	godotenv.Load()
	return loadAI()
}

func loadAI() AIConfig {
	return AIConfig{
		GeminiAPIKey:         mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		MaxAttempts:          getEnvAsIntOrDefault("AI_MAX_ATTEMPTS", 3),
		BaseDelay:            time.Duration(getEnvAsIntOrDefault("AI_BASE_DELAY_MS", 1000)) * time.Millisecond,
		RateLimitPerMinute:   getEnvAsIntOrDefault("AI_RATE_LIMIT_PER_MINUTE", 30),
	}
}

// normalizePEM turns literal "\n" sequences (as stored in most env files)
// into real newlines.
func normalizePEM(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
