package config

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// Store backend selectors.
const (
	StoreMemory  = "memory"
	StoreSurreal = "surreal"
)

// Config holds all configuration values.
type Config struct {
	// HTTP server
	ListenAddr string

	// Inference gateway
	GatewayURL string

	// Domain catalog (functions, variants, metrics)
	CatalogPath string

	// Job store backend: "memory" (default) or "surreal"
	Store string

	// SurrealDB connection (used when Store is "surreal")
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Fine-tuning providers
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	BedrockRoleARN string

	// Cadence of the server-side websocket watch loop
	WatchInterval time.Duration

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		ListenAddr: getEnv("TUNEBOARD_LISTEN_ADDR", ":8585"),

		GatewayURL:  getEnv("TUNEBOARD_GATEWAY_URL", "http://localhost:3000"),
		CatalogPath: getEnv("TUNEBOARD_CATALOG", "tuneboard.yaml"),

		Store:              getEnv("TUNEBOARD_STORE", StoreMemory),
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "tuneboard"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "jobs"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),
		BedrockRoleARN: os.Getenv("TUNEBOARD_BEDROCK_ROLE_ARN"),

		WatchInterval: parseDuration(getEnv("TUNEBOARD_WATCH_INTERVAL", "10s"), 10*time.Second),

		LogFile:  getEnv("TUNEBOARD_LOG_FILE", "/tmp/tuneboard.log"),
		LogLevel: parseLogLevel(getEnv("TUNEBOARD_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
