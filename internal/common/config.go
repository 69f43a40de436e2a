package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	LLM      LLMConfig
	Batch    BatchConfig
	Export   ExportConfig
	LogLevel string
}

// DatabaseConfig holds run-history database configuration
type DatabaseConfig struct {
	DSN             string
	Disabled        bool
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
}

// LLMConfig holds model provider configuration
type LLMConfig struct {
	Provider    string // gemini | vertex
	Model       string
	APIKey      string
	BaseURL     string
	ProjectID   string
	Region      string
	Temperature float32
	Timeout     time.Duration
}

// BatchConfig holds scheduling and retry configuration
type BatchConfig struct {
	Concurrency    int
	MaxRetries     int
	InitialBackoff time.Duration
	MaxUploadMB    int
	PDFPreflight   bool
	CacheTTL       time.Duration
}

// ExportConfig holds export destination configuration
type ExportConfig struct {
	Bucket string
}

// Supported LLM providers.
const (
	ProviderGemini = "gemini"
	ProviderVertex = "vertex"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("KK_DB_URL", "file:kk.db?_pragma=busy_timeout(5000)"),
			Disabled:        getEnvAsBool("KK_DB_DISABLED", false),
			MaxConns:        getEnvAsInt32("KK_DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("KK_DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("KK_DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("KK_DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("KK_DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			HTTPAddr:        getEnv("KK_HTTP_ADDR", ":8080"),
			ShutdownTimeout: getEnvAsDuration("KK_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(getEnv("KK_LLM_PROVIDER", ProviderGemini)),
			Model:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			APIKey:      getEnv("GEMINI_API_KEY", ""),
			BaseURL:     getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			ProjectID:   getEnv("VERTEX_PROJECT_ID", ""),
			Region:      getEnv("VERTEX_REGION", "us-central1"),
			Temperature: getEnvAsFloat32("KK_LLM_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("KK_LLM_TIMEOUT", 120*time.Second),
		},
		Batch: BatchConfig{
			Concurrency:    getEnvAsInt("KK_CONCURRENCY", 5),
			MaxRetries:     getEnvAsInt("KK_MAX_RETRIES", 3),
			InitialBackoff: getEnvAsDuration("KK_RETRY_DELAY", time.Second),
			MaxUploadMB:    getEnvAsInt("KK_MAX_UPLOAD_MB", 50),
			PDFPreflight:   getEnvAsBool("KK_PDF_PREFLIGHT", true),
			CacheTTL:       getEnvAsDuration("KK_CACHE_TTL", 30*time.Minute),
		},
		Export: ExportConfig{
			Bucket: getEnv("KK_EXPORT_BUCKET", ""),
		},
		LogLevel: getEnv("KK_LOG_LEVEL", "info"),
	}
}

// MaxUploadBytes returns the per-file upload cap in bytes.
func (c BatchConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

// Validate checks the loaded configuration. The API key is only required for
// the gemini provider; vertex authenticates through application credentials.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGemini:
		if c.LLM.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", ErrInvalidInput)
		}
	case ProviderVertex:
		if c.LLM.ProjectID == "" || c.LLM.Region == "" {
			return NewAppError("CONFIG_ERROR", "VERTEX_PROJECT_ID and VERTEX_REGION are required", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "unknown KK_LLM_PROVIDER "+strconv.Quote(c.LLM.Provider), ErrInvalidInput)
	}
	if c.LLM.Model == "" {
		return NewAppError("CONFIG_ERROR", "GEMINI_MODEL is required", ErrInvalidInput)
	}
	if c.Batch.Concurrency < 1 {
		return NewAppError("CONFIG_ERROR", "KK_CONCURRENCY must be at least 1", ErrInvalidInput)
	}
	if c.Batch.MaxRetries < 0 {
		return NewAppError("CONFIG_ERROR", "KK_MAX_RETRIES must not be negative", ErrInvalidInput)
	}
	if c.Batch.MaxUploadMB < 1 {
		return NewAppError("CONFIG_ERROR", "KK_MAX_UPLOAD_MB must be at least 1", ErrInvalidInput)
	}
	if !c.Database.Disabled && c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "KK_DB_URL is required unless KK_DB_DISABLED is set", ErrInvalidInput)
	}
	return nil
}
