package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/RishiKendai/provenance/internal/configs/env"
	"github.com/RishiKendai/provenance/internal/plagiarism"
	"github.com/pelletier/go-toml/v2"
)

const (
	VectorBackendSQLite = "sqlite"
	VectorBackendMemory = "memory"
)

// Config holds all configuration for the application
type Config struct {
	// MongoDB
	MongoURI    string
	MongoDBName string

	// Redis
	RedisHost               string
	RedisPassword           string
	RedisStreamKey          string
	RedisConsumerGroup      string
	RedisDeadLetterKey      string
	StreamRetentionDuration time.Duration

	// JWT
	JWTSecret string
	JWTIssuer string

	// Rate Limiting
	RateLimitRPS float64

	// Concurrency
	MaxConcurrentCompute int

	// Computation
	ComputationTimeout time.Duration

	// Embeddings
	EmbeddingProvider string
	EmbeddingBaseURL  string
	EmbeddingAPIKey   string
	EmbeddingModel    string
	EmbeddingTimeout  time.Duration

	// Corpus
	VectorBackend      string
	VectorDBPath       string
	CorpusDir          string
	AIReferenceEnabled bool
	CitationsEnabled   bool
	WeightsFile        string

	// Logging
	LogLevel  string
	LogFormat string

	// Server
	ServerPort  string
	MetricsPort string
}

func Load() (*Config, error) {
	cfg := &Config{}

	// MongoDB
	cfg.MongoURI = env.GetEnv("MONGO_URI", "")
	cfg.MongoDBName = env.GetEnv("MONGO_DB_NAME", "provenance")

	// Redis
	cfg.RedisHost = env.GetEnv("REDIS_HOST", "localhost:6379")
	cfg.RedisPassword = env.GetEnv("REDIS_PASSWORD", "")
	cfg.RedisStreamKey = env.GetEnv("REDIS_STREAM_KEY", "originality:stream")
	cfg.RedisConsumerGroup = env.GetEnv("REDIS_CONSUMER_GROUP", "originality:group")
	cfg.RedisDeadLetterKey = env.GetEnv("REDIS_DEAD_LETTER_KEY", "originality:dlq")
	cfg.StreamRetentionDuration = env.GetEnvDuration("STREAM_RETENTION_DURATION", time.Hour, 24*time.Hour)

	// JWT
	cfg.JWTSecret = env.GetEnv("JWT_SECRET", "")
	cfg.JWTIssuer = env.GetEnv("JWT_ISSUER", "provenance")

	// Rate Limiting
	cfg.RateLimitRPS = env.GetEnvFloat("RATE_LIMIT_RPS", 10.0)

	// Concurrency
	cfg.MaxConcurrentCompute = env.GetEnvInt("MAX_CONCURRENT_COMPUTE", 5)

	// Computation
	cfg.ComputationTimeout = env.GetEnvDuration("COMPUTATION_TIMEOUT_MINUTES", time.Minute, 5*time.Minute)

	// Embeddings
	cfg.EmbeddingProvider = strings.ToLower(env.GetEnv("EMBEDDING_PROVIDER", "ollama"))
	cfg.EmbeddingBaseURL = env.GetEnv("EMBEDDING_BASE_URL", "")
	cfg.EmbeddingAPIKey = env.GetEnv("EMBEDDING_API_KEY", "")
	cfg.EmbeddingModel = env.GetEnv("EMBEDDING_MODEL", "")
	cfg.EmbeddingTimeout = env.GetEnvDuration("EMBEDDING_TIMEOUT_SECONDS", time.Second, 30*time.Second)

	// Corpus
	cfg.VectorBackend = strings.ToLower(env.GetEnv("VECTOR_BACKEND", VectorBackendSQLite))
	cfg.VectorDBPath = env.GetEnv("VECTOR_DB_PATH", "data/vectors.db")
	cfg.CorpusDir = env.GetEnv("CORPUS_DIR", "data/corpus")
	cfg.AIReferenceEnabled = env.GetEnvBool("AI_REFERENCE_ENABLED", true)
	cfg.CitationsEnabled = env.GetEnvBool("CITATIONS_ENABLED", true)
	cfg.WeightsFile = env.GetEnv("WEIGHTS_FILE", "")

	// Logging
	cfg.LogLevel = env.GetEnv("LOG_LEVEL", "info")
	cfg.LogFormat = env.GetEnv("LOG_FORMAT", "json")

	// Server
	cfg.ServerPort = env.GetEnv("SERVER_PORT", "8080")
	cfg.MetricsPort = env.GetEnv("METRICS_PORT", "2112")

	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.MongoDBName == "" {
		return fmt.Errorf("MONGO_DB_NAME is required")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return c.ValidateEngine()
}

// ValidateEngine checks only what local analysis needs, so the CLI can run
// without Mongo, Redis or JWT settings.
func (c *Config) ValidateEngine() error {
	if c.MaxConcurrentCompute <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_COMPUTE must be greater than 0")
	}
	if c.ComputationTimeout <= 0 {
		return fmt.Errorf("COMPUTATION_TIMEOUT_MINUTES must be greater than 0")
	}
	if c.StreamRetentionDuration <= 0 {
		return fmt.Errorf("STREAM_RETENTION_DURATION must be greater than 0")
	}
	if c.EmbeddingTimeout <= 0 {
		return fmt.Errorf("EMBEDDING_TIMEOUT_SECONDS must be greater than 0")
	}
	switch c.EmbeddingProvider {
	case "ollama":
	case "openai":
		if c.EmbeddingAPIKey == "" {
			return fmt.Errorf("EMBEDDING_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("EMBEDDING_PROVIDER must be openai or ollama, got %q", c.EmbeddingProvider)
	}
	switch c.VectorBackend {
	case VectorBackendSQLite:
		if c.VectorDBPath == "" {
			return fmt.Errorf("VECTOR_DB_PATH is required for the sqlite backend")
		}
	case VectorBackendMemory:
	default:
		return fmt.Errorf("VECTOR_BACKEND must be sqlite or memory, got %q", c.VectorBackend)
	}
	return nil
}

// LoadWeights reads scoring weights from a TOML file over the defaults. Keys
// missing from the file keep their default value; an empty path returns the
// defaults.
func LoadWeights(path string) (plagiarism.Weights, error) {
	weights := plagiarism.DefaultWeights()
	if path == "" {
		return weights, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return weights, fmt.Errorf("failed to read weights file: %w", err)
	}

	if err := toml.Unmarshal(data, &weights); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return weights, fmt.Errorf("failed to parse weights file %s at %d:%d: %w", path, row, col, err)
		}
		return weights, fmt.Errorf("failed to parse weights file %s: %w", path, err)
	}

	if err := validateWeights(weights); err != nil {
		return weights, fmt.Errorf("invalid weights file %s: %w", path, err)
	}
	return weights, nil
}

func validateWeights(w plagiarism.Weights) error {
	for name, v := range map[string]float64{
		"signals.exact":          w.Signals.Exact,
		"signals.paraphrase":     w.Signals.Paraphrase,
		"signals.semantic":       w.Signals.Semantic,
		"signals.ai_generated":   w.Signals.AIGenerated,
		"signals.code_structure": w.Signals.CodeStructure,
		"signals.code_block":     w.Signals.CodeBlock,
		"semantic.similarity":    w.Semantic.Similarity,
		"code.line_similarity":   w.Code.LineSimilarity,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %g", name, v)
		}
	}
	if w.Semantic.TopK <= 0 {
		return fmt.Errorf("semantic.top_k must be greater than 0")
	}
	if w.Code.MinBlock <= 0 {
		return fmt.Errorf("code.min_block must be greater than 0")
	}
	return nil
}
