package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	LLM      LLMConfig
	Loop     LoopConfig
	Targets  TargetConfig
	Worker   WorkerConfig
	Ads      AdsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LogLevel     string
}

// DatabaseConfig holds PostgreSQL configuration. Archival is optional:
// binaries decide whether a missing database is fatal.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	URL             string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	URL      string
	Host     string
	Port     int
	Password string
	DB       int
}

// LLMConfig holds LLM provider configuration for the creative and
// keyword producers. Providers with no key configured are skipped.
type LLMConfig struct {
	OpenAIAPIKey     string
	OpenAIModel      string
	OllamaBaseURL    string
	OllamaModel      string
	AnthropicAPIKey  string
	AnthropicModel   string
	OpenRouterAPIKey string
	OpenRouterModel  string
	DefaultProvider  string // "openai", "ollama", "anthropic" or "openrouter"
	Timeout          time.Duration
}

// LoopConfig drives the operational loop and the approval gate.
type LoopConfig struct {
	Phase             string
	Interval          time.Duration
	ApprovalExpiry    time.Duration
	ApprovalThreshold float64
	AutoApplyLowRisk  bool
}

// TargetConfig carries the account-level performance targets every
// engine scores against.
type TargetConfig struct {
	CPA                     float64
	ROAS                    float64
	QualityScore            float64
	AdApprovalRate          float64
	ImpressionShare         float64
	DailyBudgetCeiling      float64
	AverageOrderValue       float64
	BaselineConversionRate  float64
	AssumedDailyConversions float64
}

// WorkerConfig holds worker configuration.
type WorkerConfig struct {
	Concurrency   int
	BatchSize     int
	RequestStream string
	ReplyStream   string
	ConsumerGroup string
	ConsumerName  string
}

// AdsConfig points the pipeline at an ad account. Only the sandbox
// client ships; SeedFile preloads it with campaign snapshots.
type AdsConfig struct {
	SeedFile string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsInt("SERVER_PORT", getEnvAsInt("PORT", 8080)),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "adpipeline"),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", time.Hour),
		},
		Redis: loadRedisConfig(),
		LLM: LLMConfig{
			OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:      getEnv("OLLAMA_MODEL", "llama3.1:8b"),
			AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicModel:   getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
			OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
			OpenRouterModel:  getEnv("OPENROUTER_MODEL", "meta-llama/llama-3.1-70b-instruct"),
			DefaultProvider:  getEnv("LLM_DEFAULT_PROVIDER", "openai"),
			Timeout:          getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		},
		Loop: LoopConfig{
			Phase:             getEnv("PIPELINE_PHASE", "learning"),
			Interval:          getEnvAsDuration("LOOP_INTERVAL", time.Hour),
			ApprovalExpiry:    getEnvAsDuration("APPROVAL_EXPIRY", 24*time.Hour),
			ApprovalThreshold: getEnvAsFloat("APPROVAL_COST_THRESHOLD", 500),
			AutoApplyLowRisk:  getEnvAsBool("AUTO_APPLY_LOW_RISK", false),
		},
		Targets: TargetConfig{
			CPA:                     getEnvAsFloat("TARGET_CPA", 40),
			ROAS:                    getEnvAsFloat("TARGET_ROAS", 3),
			QualityScore:            getEnvAsFloat("TARGET_QUALITY_SCORE", 7),
			AdApprovalRate:          getEnvAsFloat("TARGET_AD_APPROVAL_RATE", 0.95),
			ImpressionShare:         getEnvAsFloat("TARGET_IMPRESSION_SHARE", 0.8),
			DailyBudgetCeiling:      getEnvAsFloat("DAILY_BUDGET_CEILING", 500),
			AverageOrderValue:       getEnvAsFloat("AVERAGE_ORDER_VALUE", 65),
			BaselineConversionRate:  getEnvAsFloat("BASELINE_CONVERSION_RATE", 0.02),
			AssumedDailyConversions: getEnvAsFloat("ASSUMED_DAILY_CONVERSIONS", 10),
		},
		Worker: WorkerConfig{
			Concurrency:   getEnvAsInt("WORKER_CONCURRENCY", 4),
			BatchSize:     getEnvAsInt("WORKER_BATCH_SIZE", 10),
			RequestStream: getEnv("WORKER_REQUEST_STREAM", "agent-requests"),
			ReplyStream:   getEnv("WORKER_REPLY_STREAM", "agent-replies"),
			ConsumerGroup: getEnv("WORKER_CONSUMER_GROUP", "pipeline-workers"),
			ConsumerName:  getEnv("WORKER_CONSUMER_NAME", "worker-1"),
		},
		Ads: AdsConfig{
			SeedFile: getEnv("ADS_SEED_FILE", ""),
		},
	}

	if err := cfg.Loop.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *LoopConfig) validate() error {
	switch c.Phase {
	case "learning", "optimizing", "scaling":
	default:
		return fmt.Errorf("invalid PIPELINE_PHASE %q: must be learning, optimizing or scaling", c.Phase)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("LOOP_INTERVAL must be positive")
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.Database + "?sslmode=disable"
}

// Addr returns the Redis address.
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func (c *RedisConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("Redis host is empty. Set REDIS_URL or REDIS_HOST environment variable")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid Redis port: %d", c.Port)
	}
	return nil
}

func loadRedisConfig() RedisConfig {
	redisURL := getEnv("REDIS_URL", "")
	if redisURL != "" {
		return parseRedisURL(redisURL)
	}

	return RedisConfig{
		Host:     getEnv("REDISHOST", getEnv("REDIS_HOST", "")),
		Port:     getEnvAsInt("REDISPORT", getEnvAsInt("REDIS_PORT", 6379)),
		Password: getEnv("REDISPASSWORD", getEnv("REDIS_PASSWORD", "")),
		DB:       getEnvAsInt("REDIS_DB", 0),
	}
}

func parseRedisURL(redisURL string) RedisConfig {
	cfg := RedisConfig{
		URL:  redisURL,
		Port: 6379,
		DB:   0,
	}

	if !strings.HasPrefix(redisURL, "redis://") && !strings.HasPrefix(redisURL, "rediss://") {
		redisURL = "redis://" + redisURL
		cfg.URL = redisURL
	}

	u, err := url.Parse(redisURL)
	if err != nil {
		return cfg
	}

	if u.User != nil {
		cfg.Password, _ = u.User.Password()
	}

	cfg.Host = u.Hostname()
	if u.Port() != "" {
		if port, err := strconv.Atoi(u.Port()); err == nil {
			cfg.Port = port
		}
	}

	if u.Path != "" {
		dbStr := strings.TrimPrefix(u.Path, "/")
		if dbStr != "" {
			if db, err := strconv.Atoi(dbStr); err == nil {
				cfg.DB = db
			}
		}
	}

	return cfg
}

// Addr returns the server address.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
