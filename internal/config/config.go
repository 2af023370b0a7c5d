package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every setting read from the environment. cmd/* load .env
// through godotenv before calling Load.
type Config struct {
	Port        string
	Environment string

	DatabasePath string
	CatalogDir   string

	MemoryURL         string
	MemoryID          string
	MemoryMaxResults  int
	MemoryHTTPTimeout time.Duration

	LLMGatewayURL   string
	LLMAPIKey       string
	LLMModel        string
	LLMVideoModel   string
	LLMEmbedModel   string
	UseMockLLM      bool
	FeedbackTimeout time.Duration

	RecordingDir    string
	RecordingBucket string

	StatusBackend string // sqlite | redis
	RedisAddr     string

	WorkflowTimeout   time.Duration
	ReferenceParallel int

	StatusTTL   time.Duration
	AnalysisTTL time.Duration
}

func Load() Config {
	return Config{
		Port:        envOr("PORT", "8080"),
		Environment: envOr("ENVIRONMENT", "local"),

		DatabasePath: envOr("DATABASE_PATH", "roleplay-insights.db"),
		CatalogDir:   envOr("SCENARIO_CATALOG_DIR", "scenarios"),

		MemoryURL:         os.Getenv("MEMORY_URL"),
		MemoryID:          os.Getenv("MEMORY_ID"),
		MemoryMaxResults:  envInt("MEMORY_MAX_RESULTS", 100),
		MemoryHTTPTimeout: envDuration("MEMORY_HTTP_TIMEOUT", 12*time.Second),

		LLMGatewayURL:   os.Getenv("LLM_GATEWAY_URL"),
		LLMAPIKey:       os.Getenv("LLM_API_KEY"),
		LLMModel:        envOr("LLM_MODEL", "gpt-4o-mini"),
		LLMVideoModel:   envOr("LLM_VIDEO_MODEL", "gpt-4o"),
		LLMEmbedModel:   envOr("LLM_EMBED_MODEL", "text-embedding-3-small"),
		UseMockLLM:      envBool("USE_MOCK_LLM", false),
		FeedbackTimeout: envDuration("FEEDBACK_READ_TIMEOUT", 10*time.Minute),

		RecordingDir:    os.Getenv("RECORDING_DIR"),
		RecordingBucket: os.Getenv("RECORDING_BUCKET"),

		StatusBackend: envOr("STATUS_BACKEND", "sqlite"),
		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),

		WorkflowTimeout:   envDuration("WORKFLOW_TIMEOUT", time.Hour),
		ReferenceParallel: envInt("REFERENCE_PARALLELISM", 4),

		StatusTTL:   envDuration("STATUS_TTL", 24*time.Hour),
		AnalysisTTL: envDuration("ANALYSIS_TTL", 180*24*time.Hour),
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// envDuration accepts Go duration strings ("90s") or plain seconds ("90").
func envDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
