// Package config loads engine configuration from environment variables.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider identifies the LLM backend for the reasoning agents.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderBedrock   Provider = "bedrock"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Datasets
	DataDir string

	// LLM reasoners
	LLMProvider     Provider
	LLMModel        string
	OllamaHost      string
	OpenAIAPIKey    string
	AnthropicAPIKey string

	// Agent execution
	AgentTimeout     time.Duration
	ModelLoadTimeout time.Duration

	// Anomaly detection
	AnomalyThreshold float64
	AnomalyWindow    int

	// Forecasting
	ForecastHorizon   int
	ForecastMinPoints int

	// Realtime simulation
	RealtimeInterval time.Duration

	// Server
	ServerPort string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "iris"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "analytics"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		DataDir: getEnv("IRIS_DATA_DIR", "./data"),

		LLMProvider:     Provider(getEnv("IRIS_LLM_PROVIDER", "ollama")),
		LLMModel:        getEnv("IRIS_LLM_MODEL", "llama3.1"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),

		AgentTimeout:     getDuration("IRIS_AGENT_TIMEOUT", 2*time.Minute),
		ModelLoadTimeout: getDuration("IRIS_MODEL_LOAD_TIMEOUT", 30*time.Second),

		AnomalyThreshold: getFloat("IRIS_ANOMALY_THRESHOLD", 0.8),
		AnomalyWindow:    getInt("IRIS_ANOMALY_WINDOW", 64),

		ForecastHorizon:   getInt("IRIS_FORECAST_HORIZON", 12),
		ForecastMinPoints: getInt("IRIS_FORECAST_MIN_POINTS", 5),

		RealtimeInterval: getDuration("IRIS_REALTIME_INTERVAL", time.Second),

		ServerPort: getEnv("IRIS_SERVER_PORT", "8686"),

		LogFile:  getEnv("IRIS_LOG_FILE", "/tmp/iris.log"),
		LogLevel: parseLogLevel(getEnv("IRIS_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
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
