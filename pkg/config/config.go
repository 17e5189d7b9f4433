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

// Config holds all application configuration. Values come from defaults, then
// the optional YAML file named by CONFIG_FILE, then environment variables.
type Config struct {
	// Server
	Port    string `yaml:"port"`
	AppName string `yaml:"app_name"`

	// Database: postgres:// URL or a SQLite file path (optionally sqlite://)
	DatabaseURL string `yaml:"database_url"`

	// Ollama embed endpoint
	OllamaEmbedURL   string `yaml:"ollama_embed_url"`
	OllamaEmbedModel string `yaml:"ollama_embed_model"`
	OllamaEmbedToken string `yaml:"ollama_embed_token"` // Bearer token for Ollama Cloud (empty = local)

	// Ollama generation endpoint
	OllamaChatURL   string `yaml:"ollama_chat_url"`
	OllamaChatModel string `yaml:"ollama_chat_model"`
	OllamaChatToken string `yaml:"ollama_chat_token"`

	// Retrieval
	EmbeddingDimension int    `yaml:"embedding_dimension"`
	ChunkSize          int    `yaml:"chunk_size"`
	// TopK is the number of context chunks per answer; 3 unless overridden.
	TopK               int    `yaml:"top_k"`
	Similarity         string `yaml:"similarity"` // dot | cosine

	// Gateways
	EmbedTimeout     time.Duration `yaml:"embed_timeout"`
	GenerateTimeout  time.Duration `yaml:"generate_timeout"`
	EmbedRPS         float64       `yaml:"embed_rps"` // 0 = unlimited
	EmbedConcurrency int           `yaml:"embed_concurrency"`
	MaxOutputTokens  int           `yaml:"max_output_tokens"`
	MaxAnswerChars   int           `yaml:"max_answer_chars"`
	MaxQuestionChars int           `yaml:"max_question_chars"` // negative = no cap

	// Scraping
	ScrapeWorkers int           `yaml:"scrape_workers"`
	ScrapeTimeout time.Duration `yaml:"scrape_timeout"`

	// MCP
	MCPEnabled bool   `yaml:"mcp_enabled"`
	MCPPort    string `yaml:"mcp_port"`

	// Frontend
	FrontendURL string `yaml:"frontend_url"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:    "3001",
		AppName: "RAG QA",

		DatabaseURL: "rag.db",

		OllamaEmbedURL:   "http://localhost:11434",
		OllamaEmbedModel: "all-minilm",
		OllamaChatURL:    "http://localhost:11434",
		OllamaChatModel:  "llama3.2",

		EmbeddingDimension: 384,
		ChunkSize:          512,
		TopK:               3,
		Similarity:         "dot",

		EmbedTimeout:     30 * time.Second,
		GenerateTimeout:  2 * time.Minute,
		EmbedConcurrency: 4,
		MaxOutputTokens:  512,
		MaxAnswerChars:   8000,
		MaxQuestionChars: 200,

		ScrapeWorkers: 5,
		ScrapeTimeout: 30 * time.Second,

		MCPEnabled: false,
		MCPPort:    "3002",

		FrontendURL: "http://localhost:3000",
		LogLevel:    "info",
	}
}

// Load builds the configuration. A CONFIG_FILE that cannot be read or parsed is an error;
// malformed environment values are ignored in favour of the previous layer.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Port = envOrDefault("PORT", cfg.Port)
	cfg.AppName = envOrDefault("APP_NAME", cfg.AppName)
	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)

	cfg.OllamaEmbedURL = envOrDefault("OLLAMA_EMBED_URL", envOrDefault("OLLAMA_BASE_URL", cfg.OllamaEmbedURL))
	cfg.OllamaEmbedModel = envOrDefault("OLLAMA_EMBED_MODEL", cfg.OllamaEmbedModel)
	cfg.OllamaEmbedToken = envOrDefault("OLLAMA_EMBED_TOKEN", cfg.OllamaEmbedToken)
	cfg.OllamaChatURL = envOrDefault("OLLAMA_CHAT_URL", envOrDefault("OLLAMA_BASE_URL", cfg.OllamaChatURL))
	cfg.OllamaChatModel = envOrDefault("OLLAMA_CHAT_MODEL", cfg.OllamaChatModel)
	cfg.OllamaChatToken = envOrDefault("OLLAMA_CHAT_TOKEN", cfg.OllamaChatToken)

	cfg.EmbeddingDimension = envOrDefaultInt("EMBEDDING_DIMENSION", cfg.EmbeddingDimension)
	cfg.ChunkSize = envOrDefaultInt("CHUNK_SIZE", cfg.ChunkSize)
	cfg.TopK = envOrDefaultInt("TOP_K", cfg.TopK)
	cfg.Similarity = strings.ToLower(envOrDefault("SIMILARITY", cfg.Similarity))

	cfg.EmbedTimeout = envOrDefaultDuration("EMBED_TIMEOUT", cfg.EmbedTimeout)
	cfg.GenerateTimeout = envOrDefaultDuration("GENERATE_TIMEOUT", cfg.GenerateTimeout)
	cfg.EmbedRPS = envOrDefaultFloat("EMBED_RPS", cfg.EmbedRPS)
	cfg.EmbedConcurrency = envOrDefaultInt("EMBED_CONCURRENCY", cfg.EmbedConcurrency)
	cfg.MaxOutputTokens = envOrDefaultInt("MAX_OUTPUT_TOKENS", cfg.MaxOutputTokens)
	cfg.MaxAnswerChars = envOrDefaultInt("MAX_ANSWER_CHARS", cfg.MaxAnswerChars)
	cfg.MaxQuestionChars = envOrDefaultInt("MAX_QUESTION_CHARS", cfg.MaxQuestionChars)

	cfg.ScrapeWorkers = envOrDefaultInt("SCRAPE_WORKERS", cfg.ScrapeWorkers)
	cfg.ScrapeTimeout = envOrDefaultDuration("SCRAPE_TIMEOUT", cfg.ScrapeTimeout)

	cfg.MCPEnabled = envOrDefaultBool("MCP_ENABLED", cfg.MCPEnabled)
	cfg.MCPPort = envOrDefault("MCP_PORT", cfg.MCPPort)

	cfg.FrontendURL = envOrDefault("FRONTEND_URL", cfg.FrontendURL)
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)

	return cfg, nil
}

// SlogLevel maps LogLevel to a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DSN returns the database location for logging, with any password masked.
func (c *Config) DSN() string {
	if i := strings.Index(c.DatabaseURL, "@"); i >= 0 && strings.Contains(c.DatabaseURL, "://") {
		scheme := c.DatabaseURL[:strings.Index(c.DatabaseURL, "://")+3]
		return scheme + "***" + c.DatabaseURL[i:]
	}
	return c.DatabaseURL
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

// envOrDefaultDuration accepts Go durations ("45s") or whole seconds ("45").
func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
