package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Producer ProducerConfig
	Durable  DurableConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	WsLogFilePath      string
	CorsAllowedOrigins string
	UserID             string
}

type ProducerConfig struct {
	APIBaseURL        string
	VoiceHighlightURL string
	Timeout           time.Duration
}

type DurableConfig struct {
	Backend    string // "memory", "file" or "redis"
	Dir        string
	RedisURL   string
	SessionTTL time.Duration
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			WsLogFilePath:      getEnv("WS_LOG_FILE_PATH", "logs/websocket.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3001"),
			UserID:             getEnv("USER_ID", "default_user"),
		},
		Producer: ProducerConfig{
			APIBaseURL:        getEnv("API_BASE_URL", "http://localhost:8000"),
			VoiceHighlightURL: getEnv("VOICE_HIGHLIGHT_URL", "http://127.0.0.1:8000/highlight_voice"),
			Timeout:           getEnvAsDuration("PRODUCER_TIMEOUT", 10*time.Minute),
		},
		Durable: DurableConfig{
			Backend:    getEnv("DURABLE_BACKEND", "file"),
			Dir:        getEnv("DURABLE_DIR", ".cache/sessions"),
			RedisURL:   getEnv("REDIS_URL", "redis://localhost:6379"),
			SessionTTL: getEnvAsDuration("SESSION_TTL", 12*time.Hour),
		},
		Tracing: TracingConfig{
			Enabled:  getEnv("OTEL_ENABLED", "false") == "true",
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
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

// getEnvAsDuration accepts Go durations ("90s", "12h") or a bare number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil && d > 0 {
		return d
	}
	if secs := getEnvAsInt(key, 0); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
