package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers   []string
	KafkaGroupID   string
	FlagEventTopic string

	// LLM
	LLMAPIKey    string
	LLMBaseURL   string
	LLMModelName string
	LLMTimeout   time.Duration

	// FHIR retrieval service
	FHIRBaseURL       string
	FHIRTimeout       time.Duration
	FHIRTokenURL      string
	FHIRClientID      string
	FHIRClientSecret  string
	FHIRScopes        []string
	FHIRMaxItemsCap   int

	// Pipeline
	DefaultCount    int
	DefaultMaxItems int
	SessionTTL      time.Duration
	CatalogPath     string

	// Rate limiting
	RateLimitRPS   int
	RateLimitBurst int
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 60*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "vitaltrace"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "vitaltrace123"),
		PostgresDB:       getEnv("POSTGRES_DB", "vitaltrace"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:   getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:   getEnv("KAFKA_GROUP_ID", "vitaltrace-platform"),
		FlagEventTopic: getEnv("FLAG_EVENT_TOPIC", "vitals.flags"),

		LLMAPIKey:    getEnv("LLM_API_KEY", ""),
		LLMBaseURL:   getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMModelName: getEnv("LLM_MODEL_NAME", "gpt-4"),
		LLMTimeout:   getDuration("LLM_TIMEOUT", 30*time.Second),

		FHIRBaseURL:      getEnv("FHIR_BASE_URL", "http://localhost:8090"),
		FHIRTimeout:      getDuration("FHIR_TIMEOUT", 20*time.Second),
		FHIRTokenURL:     getEnv("FHIR_TOKEN_URL", ""),
		FHIRClientID:     getEnv("FHIR_CLIENT_ID", ""),
		FHIRClientSecret: getEnv("FHIR_CLIENT_SECRET", ""),
		FHIRScopes:       getStringSliceEnv("FHIR_SCOPES", []string{"system/Observation.read"}),
		FHIRMaxItemsCap:  getIntEnv("FHIR_MAX_ITEMS_CAP", 200),

		DefaultCount:    getIntEnv("PIPELINE_DEFAULT_COUNT", 100),
		DefaultMaxItems: getIntEnv("PIPELINE_DEFAULT_MAX_ITEMS", 200),
		SessionTTL:      getDuration("SESSION_TTL", 24*time.Hour),
		CatalogPath:     getEnv("TERMINOLOGY_CATALOG_PATH", ""),

		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 100),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
