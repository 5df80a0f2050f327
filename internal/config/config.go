package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Blob      BlobConfig
	Embedding EmbeddingConfig
	Pipeline  PipelineConfig
	Auth      AuthConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type BlobConfig struct {
	BaseURL         string
	ServiceKey      string
	Bucket          string
	DownloadTimeout time.Duration // documents may be large; longer than metadata calls
}

type EmbeddingConfig struct {
	Provider  string // "openai" or "ollama"
	Model     string
	OpenAIKey string
	OllamaURL string
	Timeout   time.Duration
	BatchSize int
}

// PipelineConfig carries the ingestion tunables. Similarity thresholds and
// chunk constants are configuration, not code constants.
type PipelineConfig struct {
	ScanPrefix          string
	GeneralCollection   string
	CaseStudyCollection string
	ChunkSize           int
	ChunkOverlap        int
	SimilarityThreshold float64 // above this, a candidate needs review
	DuplicateThreshold  float64 // above this, classified as duplicate
	ProbeSampleChars    int
	ProbeTopK           int
	MinTextChars        int
	ScanConcurrency     int
	ScanInterval        time.Duration // 0 disables the periodic scheduler
}

type AuthConfig struct {
	AdminAPIKey  string
	APIKeyHeader string
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	chunkSize, err := getEnvInt("PIPELINE_CHUNK_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("invalid PIPELINE_CHUNK_SIZE: %w", err)
	}

	chunkOverlap, err := getEnvInt("PIPELINE_CHUNK_OVERLAP", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid PIPELINE_CHUNK_OVERLAP: %w", err)
	}

	simThreshold, err := getEnvFloat("PIPELINE_SIMILARITY_THRESHOLD", 0.85)
	if err != nil {
		return nil, fmt.Errorf("invalid PIPELINE_SIMILARITY_THRESHOLD: %w", err)
	}

	dupThreshold, err := getEnvFloat("PIPELINE_DUPLICATE_THRESHOLD", 0.95)
	if err != nil {
		return nil, fmt.Errorf("invalid PIPELINE_DUPLICATE_THRESHOLD: %w", err)
	}

	sampleChars, err := getEnvInt("PIPELINE_PROBE_SAMPLE_CHARS", 2000)
	if err != nil {
		return nil, fmt.Errorf("invalid PIPELINE_PROBE_SAMPLE_CHARS: %w", err)
	}

	topK, err := getEnvInt("PIPELINE_PROBE_TOP_K", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid PIPELINE_PROBE_TOP_K: %w", err)
	}

	minText, err := getEnvInt("PIPELINE_MIN_TEXT_CHARS", 50)
	if err != nil {
		return nil, fmt.Errorf("invalid PIPELINE_MIN_TEXT_CHARS: %w", err)
	}

	concurrency, err := getEnvInt("PIPELINE_SCAN_CONCURRENCY", 4)
	if err != nil {
		return nil, fmt.Errorf("invalid PIPELINE_SCAN_CONCURRENCY: %w", err)
	}

	batchSize, err := getEnvInt("EMBEDDING_BATCH_SIZE", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid EMBEDDING_BATCH_SIZE: %w", err)
	}

	downloadTimeout, err := getEnvDuration("BLOB_DOWNLOAD_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid BLOB_DOWNLOAD_TIMEOUT: %w", err)
	}

	embedTimeout, err := getEnvDuration("EMBEDDING_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid EMBEDDING_TIMEOUT: %w", err)
	}

	scanInterval, err := getEnvDuration("PIPELINE_SCAN_INTERVAL", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid PIPELINE_SCAN_INTERVAL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Blob: BlobConfig{
			BaseURL:         getEnv("BLOB_BASE_URL", ""),
			ServiceKey:      getEnv("BLOB_SERVICE_KEY", ""),
			Bucket:          getEnv("BLOB_BUCKET", "knowledge-base"),
			DownloadTimeout: downloadTimeout,
		},
		Embedding: EmbeddingConfig{
			Provider:  getEnv("EMBEDDING_PROVIDER", "ollama"),
			Model:     getEnv("EMBEDDING_MODEL", ""),
			OpenAIKey: getEnv("OPENAI_API_KEY", ""),
			OllamaURL: getEnv("OLLAMA_URL", "http://localhost:11434"),
			Timeout:   embedTimeout,
			BatchSize: batchSize,
		},
		Pipeline: PipelineConfig{
			ScanPrefix:          getEnv("PIPELINE_SCAN_PREFIX", "knowledge_base/"),
			GeneralCollection:   getEnv("PIPELINE_GENERAL_COLLECTION", "kb_documents"),
			CaseStudyCollection: getEnv("PIPELINE_CASE_STUDY_COLLECTION", "case_studies"),
			ChunkSize:           chunkSize,
			ChunkOverlap:        chunkOverlap,
			SimilarityThreshold: simThreshold,
			DuplicateThreshold:  dupThreshold,
			ProbeSampleChars:    sampleChars,
			ProbeTopK:           topK,
			MinTextChars:        minText,
			ScanConcurrency:     concurrency,
			ScanInterval:        scanInterval,
		},
		Auth: AuthConfig{
			AdminAPIKey:  getEnv("ADMIN_API_KEY", ""),
			APIKeyHeader: getEnv("API_KEY_HEADER", "X-API-Key"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Blob.BaseURL == "" {
		missing = append(missing, "BLOB_BASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if c.Pipeline.ChunkOverlap >= c.Pipeline.ChunkSize {
		return fmt.Errorf("PIPELINE_CHUNK_OVERLAP (%d) must be smaller than PIPELINE_CHUNK_SIZE (%d)",
			c.Pipeline.ChunkOverlap, c.Pipeline.ChunkSize)
	}
	if c.Pipeline.DuplicateThreshold < c.Pipeline.SimilarityThreshold {
		return fmt.Errorf("PIPELINE_DUPLICATE_THRESHOLD must be >= PIPELINE_SIMILARITY_THRESHOLD")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
