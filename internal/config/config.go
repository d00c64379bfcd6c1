package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the feedback-backend server.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	AI         AIConfig
	Enrichment EnrichmentConfig
	Import     ImportConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type AIConfig struct {
	Provider  string
	MaxTokens int
	Groq      GroqConfig
	OpenAI    OpenAIConfig
}

type GroqConfig struct {
	APIKey            string
	Model             string
	BaseURL           string
	RequestsPerSecond int
	Timeout           time.Duration
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type EnrichmentConfig struct {
	BatchSize     int
	PacingDelay   time.Duration
	InsightWindow int
}

type ImportConfig struct {
	MaxUploadBytes int64
}

var validProviders = map[string]bool{
	"groq":   true,
	"openai": true,
	"mock":   true,
}

// Load reads configuration from environment variables and returns a validated Config.
// A .env file in the working directory is loaded first if present.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("FEEDBACK_PORT", 8080),
			Env:  envString("FEEDBACK_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  envDuration("JWT_TOKEN_TTL", 24*time.Hour),
		},
		AI: AIConfig{
			Provider:  envString("AI_PROVIDER", "groq"),
			MaxTokens: envInt("AI_MAX_TOKENS", 500),
			Groq: GroqConfig{
				APIKey:            os.Getenv("GROQ_API_KEY"),
				Model:             envString("GROQ_MODEL", "llama-3.3-70b-versatile"),
				BaseURL:           envString("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
				RequestsPerSecond: envInt("GROQ_REQUESTS_PER_SECOND", 2),
				Timeout:           envDuration("GROQ_TIMEOUT", 60*time.Second),
			},
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				Model:   envString("OPENAI_MODEL", "gpt-4o-mini"),
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				Timeout: envDuration("OPENAI_TIMEOUT", 60*time.Second),
			},
		},
		Enrichment: EnrichmentConfig{
			BatchSize:     envInt("ENRICH_BATCH_SIZE", 20),
			PacingDelay:   envDuration("ENRICH_PACING_DELAY", 500*time.Millisecond),
			InsightWindow: envInt("INSIGHT_WINDOW", 50),
		},
		Import: ImportConfig{
			MaxUploadBytes: int64(envInt("IMPORT_MAX_UPLOAD_MB", 5)) * 1024 * 1024,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of groq, openai, mock; got %q", c.AI.Provider)
	}
	if c.AI.Provider == "groq" && c.AI.Groq.APIKey == "" {
		return fmt.Errorf("GROQ_API_KEY is required when AI_PROVIDER is groq")
	}
	if c.AI.Provider == "openai" && c.AI.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
	}

	if c.Enrichment.BatchSize <= 0 {
		return fmt.Errorf("ENRICH_BATCH_SIZE must be positive, got %d", c.Enrichment.BatchSize)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
