package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Calendar CalendarConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	TurnTimeoutSeconds int
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	LLMProvider        string // "ollama"
	OllamaBaseURL      string
	RouterModel        string
	SimpleModel        string
	ComplexModel       string
	EmbeddingModel     string
	EmbeddingDimension int
	MaxToolHops        int
}

type CalendarConfig struct {
	BaseURL          string
	Token            string
	FallbackCalendar string
	DirectoryTTLSec  int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			TurnTimeoutSeconds: getEnvAsInt("TURN_TIMEOUT_SECONDS", 300),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:        getEnv("LLM_PROVIDER", "ollama"),
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			RouterModel:        getEnv("ROUTER_MODEL", "qwen2.5:3b"),
			SimpleModel:        getEnv("SIMPLE_MODEL", "qwen2.5:7b"),
			ComplexModel:       getEnv("COMPLEX_MODEL", "qwen2.5:14b"),
			EmbeddingModel:     getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingDimension: getEnvAsInt("EMBEDDING_DIMENSION", 768),
			MaxToolHops:        getEnvAsInt("MAX_TOOL_HOPS", 4),
		},
		Calendar: CalendarConfig{
			BaseURL:          getEnv("CALENDAR_API_BASE_URL", "http://localhost:8090"),
			Token:            getEnv("CALENDAR_API_TOKEN", ""),
			FallbackCalendar: getEnv("MEETING_FALLBACK_CALENDAR", "[WS] Inc."),
			DirectoryTTLSec:  getEnvAsInt("CALENDAR_DIRECTORY_TTL_SECONDS", 300),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
