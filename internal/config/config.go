package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"alfredoptarigan/resume-matcher/internal/matching"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Qdrant   QdrantConfig
	Gemini   GeminiConfig
	Storage  StorageConfig
	Worker   WorkerConfig
	Matching MatchingConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// QdrantConfig points at the embedding cache. An empty URL keeps embeddings
// in process memory.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	VectorSize uint64
}

// GeminiConfig enables semantic matching when APIKey is set.
type GeminiConfig struct {
	APIKey       string
	EmbedModel   string
	MaxRetries   int
	RetryBackoff time.Duration
}

type StorageConfig struct {
	UploadPath  string
	MaxFileSize int64
}

type WorkerConfig struct {
	Concurrency  int
	PollInterval time.Duration
}

type MatchingConfig struct {
	Strategy         string
	AllowFallback    bool
	Workers          int
	EmbedConcurrency int
	EmbedTimeout     time.Duration
	EmbedRatePerSec  float64
	TopK             int
}

type LogConfig struct {
	JSON  bool
	Debug bool
}

// Load reads the environment, after merging a .env file when one exists.
// The bool result reports whether a .env file was found.
func Load() (*Config, bool) {
	loaded := godotenv.Load() == nil

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "resume_matcher"),
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", ""),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "resume_matcher_embeddings"),
			VectorSize: uint64(getEnvAsInt64("QDRANT_VECTOR_SIZE", 768)),
		},
		Gemini: GeminiConfig{
			APIKey:       getEnv("GEMINI_API_KEY", ""),
			EmbedModel:   getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
			MaxRetries:   getEnvAsInt("GEMINI_MAX_RETRIES", 3),
			RetryBackoff: getEnvAsDuration("GEMINI_RETRY_BACKOFF", "2s"),
		},
		Storage: StorageConfig{
			UploadPath:  getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10485760),
		},
		Worker: WorkerConfig{
			Concurrency:  getEnvAsInt("WORKER_CONCURRENCY", 2),
			PollInterval: getEnvAsDuration("WORKER_POLL_INTERVAL", "10s"),
		},
		Matching: MatchingConfig{
			Strategy:         getEnv("MATCH_STRATEGY", string(matching.StrategyLexical)),
			AllowFallback:    getEnvAsBool("MATCH_ALLOW_FALLBACK", true),
			Workers:          getEnvAsInt("MATCH_WORKERS", 8),
			EmbedConcurrency: getEnvAsInt("EMBED_CONCURRENCY", 4),
			EmbedTimeout:     getEnvAsDuration("EMBED_TIMEOUT", "30s"),
			EmbedRatePerSec:  getEnvAsFloat("EMBED_RATE_PER_SEC", 5),
			TopK:             getEnvAsInt("MATCH_TOP_K", 0),
		},
		Log: LogConfig{
			JSON:  getEnvAsBool("LOG_JSON", false),
			Debug: getEnvAsBool("LOG_DEBUG", false),
		},
	}, loaded
}

// Validate rejects settings the matcher cannot run with.
func (c *Config) Validate() error {
	var errs []error

	strategy, err := matching.ParseStrategy(c.Matching.Strategy)
	if err != nil {
		errs = append(errs, fmt.Errorf("MATCH_STRATEGY: %w", err))
	}
	if err == nil && strategy == matching.StrategySemantic && c.Gemini.APIKey == "" && !c.Matching.AllowFallback {
		errs = append(errs, errors.New("MATCH_STRATEGY=semantic requires GEMINI_API_KEY or MATCH_ALLOW_FALLBACK=true"))
	}
	if c.Matching.TopK < 0 {
		errs = append(errs, errors.New("MATCH_TOP_K must not be negative"))
	}
	if c.Storage.MaxFileSize <= 0 {
		errs = append(errs, errors.New("MAX_FILE_SIZE must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
