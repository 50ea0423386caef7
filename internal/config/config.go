// Package config loads worker configuration from the environment with an
// optional YAML file overlay.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderOllama    Provider = "ollama"
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

	// LLM
	LLMProvider       Provider
	LLMModel          string
	AnthropicAPIKey   string
	OpenAIAPIKey      string
	OllamaHost        string
	LLMMaxTokens      int
	LLMRequestTimeout time.Duration

	// Object storage
	AWSRegion     string
	S3Endpoint    string
	DefaultBucket string

	// Worker behavior
	WorkerID      string
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration

	// Assignment
	DemoCaseworkerID string

	// Kafka (batch delivery mode)
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// fileOverlay mirrors the subset of Config settable from a YAML file.
// Environment variables provide defaults; file values win when present.
type fileOverlay struct {
	SurrealDBURL     string `yaml:"surrealdb_url"`
	LLMProvider      string `yaml:"llm_provider"`
	LLMModel         string `yaml:"llm_model"`
	DefaultBucket    string `yaml:"default_bucket"`
	DemoCaseworkerID string `yaml:"demo_caseworker_id"`
	PollInterval     string `yaml:"poll_interval"`
	KafkaBrokers     string `yaml:"kafka_brokers"`
	KafkaTopic       string `yaml:"kafka_topic"`
}

// Load reads configuration from environment variables, then applies the YAML
// file named by CLAIMD_CONFIG when set.
func Load() (Config, error) {
	cfg := Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "claimd"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "intake"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		LLMProvider:       Provider(getEnv("CLAIMD_LLM_PROVIDER", string(ProviderAnthropic))),
		LLMModel:          getEnv("CLAIMD_LLM_MODEL", "claude-haiku-4-5-20251001"),
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OllamaHost:        getEnv("OLLAMA_HOST", "http://localhost:11434"),
		LLMMaxTokens:      getEnvInt("CLAIMD_LLM_MAX_TOKENS", 16000),
		LLMRequestTimeout: getEnvDuration("CLAIMD_LLM_TIMEOUT", 120*time.Second),

		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
		S3Endpoint:    os.Getenv("S3_ENDPOINT"),
		DefaultBucket: getEnv("CLAIMD_FILE_BUCKET", "application-files"),

		WorkerID:      getEnv("CLAIMD_WORKER_ID", "worker-1"),
		PollInterval:  getEnvDuration("CLAIMD_POLL_INTERVAL", 5*time.Second),
		RetryAttempts: getEnvInt("CLAIMD_RETRY_ATTEMPTS", 2),
		RetryDelay:    getEnvDuration("CLAIMD_RETRY_DELAY", time.Second),

		DemoCaseworkerID: os.Getenv("DEMO_CASEWORKER_USER_ID"),

		KafkaBrokers: splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "claimd-tasks"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "claimd-workers"),

		LogFile:  getEnv("CLAIMD_LOG_FILE", "/tmp/claimd-worker.log"),
		LogLevel: parseLogLevel(getEnv("CLAIMD_LOG_LEVEL", "INFO")),
	}

	if path := os.Getenv("CLAIMD_CONFIG"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return cfg, fmt.Errorf("apply config file: %w", err)
		}
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if overlay.SurrealDBURL != "" {
		cfg.SurrealDBURL = overlay.SurrealDBURL
	}
	if overlay.LLMProvider != "" {
		cfg.LLMProvider = Provider(overlay.LLMProvider)
	}
	if overlay.LLMModel != "" {
		cfg.LLMModel = overlay.LLMModel
	}
	if overlay.DefaultBucket != "" {
		cfg.DefaultBucket = overlay.DefaultBucket
	}
	if overlay.DemoCaseworkerID != "" {
		cfg.DemoCaseworkerID = overlay.DemoCaseworkerID
	}
	if overlay.PollInterval != "" {
		d, err := time.ParseDuration(overlay.PollInterval)
		if err != nil {
			return fmt.Errorf("poll_interval: %w", err)
		}
		cfg.PollInterval = d
	}
	if overlay.KafkaBrokers != "" {
		cfg.KafkaBrokers = splitCSV(overlay.KafkaBrokers)
	}
	if overlay.KafkaTopic != "" {
		cfg.KafkaTopic = overlay.KafkaTopic
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
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
