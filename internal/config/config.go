package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// Gemini API
	GeminiAPIKey   string
	GeminiModel    string
	EmbeddingModel string
	GeminiTier     string

	// Google Drive (manual corpus + diagram source)
	DriveFolderID    string
	DriveCredentials string

	// Knowledge base
	IndexDir      string
	ScratchDir    string
	MaxChunkSize  int
	ChunkOverlap  int
	TopK          int
	MinSimilarity float64

	// Chat monitoring
	MemoryWindow int
	MemoryChats  int

	// Record log
	DatabasePath string

	// Redis (rate limiting + task queue)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	RateLimitReqs   int
	RateLimitWindow int

	// Optional cron expression for periodic Drive re-sync ("" disables it)
	SyncSchedule string

	// Observability
	OTLPEndpoint   string
	TracingEnabled bool
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		GeminiTier:     getEnv("GEMINI_TIER", "free"),

		DriveFolderID:    getEnv("DRIVE_FOLDER_ID", ""),
		DriveCredentials: getEnv("GOOGLE_DRIVE_CREDENTIALS", ""),

		IndexDir:      getEnv("INDEX_DIR", "./manual_index"),
		ScratchDir:    getEnv("SCRATCH_DIR", os.TempDir()),
		MaxChunkSize:  getEnvInt("MAX_CHUNK_SIZE", 1000),
		ChunkOverlap:  getEnvInt("CHUNK_OVERLAP", 100),
		TopK:          getEnvInt("SEARCH_TOP_K", 3),
		MinSimilarity: getEnvFloat64("MIN_SIMILARITY", 0),

		MemoryWindow: getEnvInt("MEMORY_WINDOW", 5),
		MemoryChats:  getEnvInt("MEMORY_MAX_CHATS", 1000),

		DatabasePath: getEnv("DATABASE_PATH", "./railway_data.db"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		SyncSchedule: getEnv("SYNC_SCHEDULE", ""),

		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.DriveFolderID == "" {
		return nil, fmt.Errorf("DRIVE_FOLDER_ID is required - set it in .env file")
	}

	if cfg.ChunkOverlap >= cfg.MaxChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than MAX_CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.MaxChunkSize)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
