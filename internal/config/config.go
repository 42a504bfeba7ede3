package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is built once by LoadConfig and treated as read-only afterwards.
type Config struct {
	Port        string   `yaml:"port"`
	GinMode     string   `yaml:"gin_mode"`
	CORSOrigins []string `yaml:"cors_origins"`
	MaxBodySize int64    `yaml:"max_body_size"`

	RateLimitReqs   int `yaml:"rate_limit_requests"`
	RateLimitWindow int `yaml:"rate_limit_window"` // seconds

	// Corpus and index
	PDFPath         string `yaml:"pdf_path"`
	VectorStorePath string `yaml:"vector_store_path"`
	IndexBackend    string `yaml:"index_backend"` // "file" (default) or "mongo"
	ChunkSize       int    `yaml:"chunk_size"`
	ChunkOverlap    int    `yaml:"chunk_overlap"`
	RetrievalK      int    `yaml:"retrieval_k"`
	EmbedBatchSize  int    `yaml:"embed_batch_size"`
	EmbedWorkers    int    `yaml:"embed_workers"`

	// Embeddings
	EmbeddingsProvider string `yaml:"embeddings_provider"` // "local" (default), "google", "openai"
	EmbeddingModel     string `yaml:"embedding_model"`
	EmbeddingDevice    string `yaml:"embedding_device"`
	EmbeddingDim       int    `yaml:"embedding_dim"`
	OpenAIAPIKey       string `yaml:"-"`
	OpenAIBaseURL      string `yaml:"openai_base_url"`

	// LLM
	LLMProvider  string        `yaml:"llm_provider"` // "groq" (default) or "gemini"
	LLMModel     string        `yaml:"llm_model"`
	LLMBaseURL   string        `yaml:"llm_base_url"`
	LLMTier      string        `yaml:"llm_tier"`
	LLMTimeout   time.Duration `yaml:"llm_timeout"`
	GroqAPIKey   string        `yaml:"-"`
	GeminiAPIKey string        `yaml:"-"`

	Analysis    GenerationConfig `yaml:"analysis"`
	Chat        GenerationConfig `yaml:"chat"`
	MedicalInfo GenerationConfig `yaml:"medical_info"`

	// Redis (optional): retrieval cache and shared rate limiting
	RedisURL          string        `yaml:"redis_url"`
	RedisPassword     string        `yaml:"-"`
	RedisDB           int           `yaml:"redis_db"`
	RetrievalCacheTTL time.Duration `yaml:"retrieval_cache_ttl"`

	// MongoDB (only when IndexBackend == "mongo")
	MongoURI string `yaml:"mongo_uri"`
	DBName   string `yaml:"db_name"`

	// Telemetry
	OTelEnabled     bool    `yaml:"otel_enabled"`
	OTelEndpoint    string  `yaml:"otel_endpoint"`
	OTelSampleRatio float64 `yaml:"otel_sample_ratio"`
	ServiceName     string  `yaml:"service_name"`
}

// GenerationConfig holds the per-endpoint LLM sampling settings.
type GenerationConfig struct {
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
	ContextDepth int     `yaml:"context_depth"`
}

const (
	DefaultPDFPath  = "RAG/The-Gale-Encyclopedia-of-Medicine-3rd-Edition.pdf"
	DefaultLLMModel = "meta-llama/llama-4-scout-17b-16e-instruct"
	GroqBaseURL     = "https://api.groq.com/openai/v1"
)

// Defaults returns the documented configuration defaults.
func Defaults() *Config {
	return &Config{
		Port:            "8000",
		GinMode:         "debug",
		CORSOrigins:     []string{"*"},
		MaxBodySize:     1 << 20,
		RateLimitReqs:   60,
		RateLimitWindow: 60,

		PDFPath:         DefaultPDFPath,
		VectorStorePath: "vector_store",
		IndexBackend:    "file",
		ChunkSize:       1000,
		ChunkOverlap:    200,
		RetrievalK:      5,
		EmbedBatchSize:  64,
		EmbedWorkers:    4,

		EmbeddingsProvider: "local",
		EmbeddingModel:     "feature-hashing-384",
		EmbeddingDevice:    "cpu",
		EmbeddingDim:       384,
		OpenAIBaseURL:      "https://api.openai.com/v1",

		LLMProvider: "groq",
		LLMModel:    DefaultLLMModel,
		LLMBaseURL:  GroqBaseURL,
		LLMTier:     "free",
		LLMTimeout:  60 * time.Second,

		Analysis:    GenerationConfig{MaxTokens: 1500, Temperature: 0.3, ContextDepth: 3},
		Chat:        GenerationConfig{MaxTokens: 800, Temperature: 0.4, ContextDepth: 2},
		MedicalInfo: GenerationConfig{MaxTokens: 1200, Temperature: 0.3, ContextDepth: 3},

		RetrievalCacheTTL: time.Hour,

		MongoURI: "mongodb://localhost:27017/docbot",
		DBName:   "docbot",

		OTelEndpoint:    "localhost:4317",
		OTelSampleRatio: 0.1,
		ServiceName:     "docbot-rag",
	}
}

// LoadConfig applies defaults, then the optional YAML file named by CONFIG_FILE,
// then the environment (including a .env file when present).
func LoadConfig() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.GinMode = getEnv("GIN_MODE", cfg.GinMode)
	cfg.CORSOrigins = getEnvList("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", cfg.MaxBodySize)
	cfg.RateLimitReqs = getEnvInt("RATE_LIMIT_REQUESTS", cfg.RateLimitReqs)
	cfg.RateLimitWindow = getEnvInt("RATE_LIMIT_WINDOW", cfg.RateLimitWindow)

	cfg.PDFPath = getEnv("PDF_PATH", cfg.PDFPath)
	cfg.VectorStorePath = getEnv("VECTOR_STORE_PATH", cfg.VectorStorePath)
	cfg.IndexBackend = getEnv("INDEX_BACKEND", cfg.IndexBackend)
	cfg.ChunkSize = getEnvInt("CHUNK_SIZE", cfg.ChunkSize)
	cfg.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", cfg.ChunkOverlap)
	cfg.RetrievalK = getEnvInt("RETRIEVAL_K", cfg.RetrievalK)
	cfg.EmbedBatchSize = getEnvInt("EMBED_BATCH_SIZE", cfg.EmbedBatchSize)
	cfg.EmbedWorkers = getEnvInt("EMBED_WORKERS", cfg.EmbedWorkers)

	cfg.EmbeddingsProvider = getEnv("EMBEDDINGS_PROVIDER", cfg.EmbeddingsProvider)
	cfg.EmbeddingModel = getEnv("EMBEDDING_MODEL", cfg.EmbeddingModel)
	cfg.EmbeddingDevice = getEnv("EMBEDDING_DEVICE", cfg.EmbeddingDevice)
	cfg.EmbeddingDim = getEnvInt("EMBEDDING_DIM", cfg.EmbeddingDim)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)

	cfg.LLMProvider = getEnv("LLM_PROVIDER", cfg.LLMProvider)
	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)
	cfg.LLMBaseURL = getEnv("LLM_BASE_URL", cfg.LLMBaseURL)
	cfg.LLMTier = getEnv("LLM_TIER", cfg.LLMTier)
	cfg.LLMTimeout = getEnvDuration("LLM_TIMEOUT", cfg.LLMTimeout)
	cfg.GroqAPIKey = getEnv("GROQ_API_KEY", cfg.GroqAPIKey)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)

	cfg.Analysis.MaxTokens = getEnvInt("LLM_MAX_TOKENS", cfg.Analysis.MaxTokens)
	cfg.Analysis.Temperature = getEnvFloat64("LLM_TEMPERATURE", cfg.Analysis.Temperature)
	cfg.Chat.MaxTokens = getEnvInt("CHAT_MAX_TOKENS", cfg.Chat.MaxTokens)
	cfg.Chat.Temperature = getEnvFloat64("CHAT_TEMPERATURE", cfg.Chat.Temperature)
	cfg.MedicalInfo.MaxTokens = getEnvInt("MEDICAL_INFO_MAX_TOKENS", cfg.MedicalInfo.MaxTokens)
	cfg.MedicalInfo.Temperature = getEnvFloat64("MEDICAL_INFO_TEMPERATURE", cfg.MedicalInfo.Temperature)

	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.RetrievalCacheTTL = getEnvDuration("RETRIEVAL_CACHE_TTL", cfg.RetrievalCacheTTL)

	cfg.MongoURI = getEnv("MONGO_URI", cfg.MongoURI)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)

	cfg.OTelEnabled = getEnvBool("OTEL_ENABLED", cfg.OTelEnabled)
	cfg.OTelEndpoint = getEnv("OTEL_ENDPOINT", cfg.OTelEndpoint)
	cfg.OTelSampleRatio = getEnvFloat64("OTEL_SAMPLE_RATIO", cfg.OTelSampleRatio)
	cfg.ServiceName = getEnv("SERVICE_NAME", cfg.ServiceName)
}

// Validate reports configuration errors that must stop the process at startup.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLMProvider {
	case "groq":
		if c.GroqAPIKey == "" {
			errs = append(errs, errors.New("GROQ_API_KEY is required - set it in .env file"))
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required when LLM_PROVIDER=gemini"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER: %s", c.LLMProvider))
	}

	switch c.EmbeddingsProvider {
	case "local":
		if c.EmbeddingDim <= 0 {
			errs = append(errs, errors.New("EMBEDDING_DIM must be positive"))
		}
	case "google":
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for google embeddings"))
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for openai embeddings"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EMBEDDINGS_PROVIDER: %s", c.EmbeddingsProvider))
	}

	if c.IndexBackend != "file" && c.IndexBackend != "mongo" {
		errs = append(errs, fmt.Errorf("unknown INDEX_BACKEND: %s", c.IndexBackend))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, errors.New("CHUNK_SIZE must be positive"))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in [0, %d)", c.ChunkSize))
	}
	if c.RetrievalK <= 0 {
		errs = append(errs, errors.New("RETRIEVAL_K must be positive"))
	}
	if strings.TrimSpace(c.PDFPath) == "" {
		errs = append(errs, errors.New("PDF_PATH is required"))
	}

	return errors.Join(errs...)
}

// LLMAPIKey returns the credential of the selected LLM provider.
func (c *Config) LLMAPIKey() string {
	if c.LLMProvider == "gemini" {
		return c.GeminiAPIKey
	}
	return c.GroqAPIKey
}
