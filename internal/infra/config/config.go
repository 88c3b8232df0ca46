package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env        string
	Server     ServerConfig
	DB         DBConfig
	Completion CompletionConfig
	Embedder   EmbedderConfig
	Index      IndexConfig
	Sources    SourcesConfig
	Report     ReportConfig
	Pipeline   PipelineConfig
	History    HistoryConfig
	OTel       OTelConfig
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
	BatchRegion     string
	ClientTimeout   time.Duration
}

// DBConfig is optional; the database is only used when Enabled.
type DBConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	MaxConns int
}

// DSN builds a pgx connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.User, c.Password, c.Host, c.Port, c.Name)
}

type CompletionConfig struct {
	URL               string
	Model             string
	Temperature       float64
	NumPredict        int
	RequestsPerSecond float64
	Burst             int
}

type EmbedderConfig struct {
	URL       string
	Model     string
	Timeout   time.Duration
	BatchSize int
	CacheSize int
}

type IndexConfig struct {
	// Backend is "memory" or "pgvector".
	Backend      string
	Path         string
	ChunkSize    int
	ChunkOverlap int
}

type SourcesConfig struct {
	ClientsPath      string
	ChatPath         string
	PublicationsPath string
	ChatCoverageDays int
}

type ReportConfig struct {
	// OutputPath may contain {client} and {date} placeholders.
	OutputPath string
}

type PipelineConfig struct {
	Workers                int
	CallTimeout            time.Duration
	QueriesPerFacet        int
	RecallK                int
	HistoryK               int
	HistoryFetchK          int
	HistoryThreshold       float64
	PassagesPerPublication int
	PrecisionMinScore      int
	PrecisionMinConfidence float64
	PrecisionTopN          int
}

type HistoryConfig struct {
	Enabled bool
}

type OTelConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Endpoint       string
}

func Load() *Config {
	return &Config{
		Env: getEnv("ENV", "development"),
		Server: ServerConfig{
			Port:            getEnv("PORT", "9020"),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			BatchRegion:     getEnv("SCHEDULE_REGION", ""),
			ClientTimeout:   getEnvDuration("RECSYS_CLIENT_TIMEOUT", 30*time.Minute),
		},
		DB: DBConfig{
			Enabled:  getEnvBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "recsys-db"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "recsys_user"),
			Password: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "recsys_password"),
			Name:     getEnv("DB_NAME", "recsys_db"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
		},
		Completion: CompletionConfig{
			URL:               getEnvWithAlt("COMPLETION_URL", "OLLAMA_URL", "http://ollama:11434"),
			Model:             getEnv("COMPLETION_MODEL", "gemma3:4b"),
			Temperature:       getEnvFloat("COMPLETION_TEMPERATURE", 0),
			NumPredict:        getEnvInt("COMPLETION_NUM_PREDICT", 1024),
			RequestsPerSecond: getEnvFloat("COMPLETION_RPS", 0),
			Burst:             getEnvInt("COMPLETION_BURST", 10),
		},
		Embedder: EmbedderConfig{
			URL:       getEnvWithAlt("EMBEDDER_URL", "OLLAMA_URL", "http://ollama:11434"),
			Model:     getEnv("EMBEDDING_MODEL", "embeddinggemma"),
			Timeout:   getEnvDuration("EMBEDDER_TIMEOUT", 60*time.Second),
			BatchSize: getEnvInt("EMBEDDER_BATCH_SIZE", 32),
			CacheSize: getEnvInt("EMBEDDER_CACHE_SIZE", 4096),
		},
		Index: IndexConfig{
			Backend:      getEnv("INDEX_BACKEND", "memory"),
			Path:         getEnv("INDEX_PATH", "data/publication_index.json"),
			ChunkSize:    getEnvInt("INDEX_CHUNK_SIZE", 1000),
			ChunkOverlap: getEnvInt("INDEX_CHUNK_OVERLAP", 100),
		},
		Sources: SourcesConfig{
			ClientsPath:      getEnv("CLIENTS_PATH", "data/clients.yaml"),
			ChatPath:         getEnv("CHAT_PATH", "data/chats.csv"),
			PublicationsPath: getEnv("PUBLICATIONS_PATH", "data/publications.json"),
			ChatCoverageDays: getEnvInt("CHAT_COVERAGE_DAYS", 30),
		},
		Report: ReportConfig{
			OutputPath: getEnv("REPORT_OUTPUT_PATH", "results/recsys_output_{client}_{date}.csv"),
		},
		Pipeline: PipelineConfig{
			Workers:                getEnvInt("RECSYS_WORKERS", 10),
			CallTimeout:            getEnvDuration("RECSYS_CALL_TIMEOUT", 120*time.Second),
			QueriesPerFacet:        getEnvInt("RECSYS_QUERIES_PER_FACET", 2),
			RecallK:                getEnvInt("RECSYS_RECALL_K", 20),
			HistoryK:               getEnvInt("RECSYS_HISTORY_K", 20),
			HistoryFetchK:          getEnvInt("RECSYS_HISTORY_FETCH_K", 200),
			HistoryThreshold:       getEnvFloat("RECSYS_HISTORY_THRESHOLD", 0.5),
			PassagesPerPublication: getEnvInt("RECSYS_PASSAGES_PER_PUBLICATION", 3),
			PrecisionMinScore:      getEnvInt("RECSYS_PRECISION_MIN_SCORE", 5),
			PrecisionMinConfidence: getEnvFloat("RECSYS_PRECISION_MIN_CONFIDENCE", 0.5),
			PrecisionTopN:          getEnvInt("RECSYS_PRECISION_TOP_N", 30),
		},
		History: HistoryConfig{
			Enabled: getEnvBool("HISTORY_ENABLED", false),
		},
		OTel: OTelConfig{
			Enabled:        getEnvBool("OTEL_ENABLED", false),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "recsys-orchestrator"),
			ServiceVersion: getEnv("SERVICE_VERSION", "0.1.0"),
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://otel-collector:4318"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvWithAlt(key, altKey, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	if value, ok := os.LookupEnv(altKey); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
