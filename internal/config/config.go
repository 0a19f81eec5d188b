package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderVenice = "venice"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"

	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	// LLM
	LLMProvider      string
	OpenAIAPIKey     string
	VeniceAPIKey     string
	GeminiAPIKey     string
	OllamaBaseURL    string
	ActionModel      string
	CreationModel    string
	ObservationModel string
	PromptsFile      string

	// Storage
	RedisURL       string
	StorageBackend string
	SQLitePath     string
	StoryTTL       time.Duration

	// Orchestration
	MaxToolCallsPerTurn int
	PhaseTimeout        time.Duration
	InventoryMaxWeight  float64
	EnforceMaxWeight    bool

	WorkerID string
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	provider := strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI))
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),

		LLMProvider:      provider,
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		VeniceAPIKey:     os.Getenv("VENICE_API_KEY"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		ActionModel:      getEnv("ACTION_MODEL", defaultModel(provider, false)),
		CreationModel:    getEnv("CREATION_MODEL", defaultModel(provider, false)),
		ObservationModel: getEnv("OBSERVATION_MODEL", defaultModel(provider, true)),
		PromptsFile:      os.Getenv("PROMPTS_FILE"),

		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379"),
		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", BackendRedis)),
		SQLitePath:     getEnv("SQLITE_PATH", "stories.db"),
		StoryTTL:       getDuration("STORY_TTL", 0),

		MaxToolCallsPerTurn: getInt("MAX_TOOL_CALLS_PER_TURN", 24),
		PhaseTimeout:        getDuration("PHASE_TIMEOUT", 60*time.Second),
		InventoryMaxWeight:  getFloat("INVENTORY_MAX_WEIGHT", 30),
		EnforceMaxWeight:    getBool("ENFORCE_MAX_WEIGHT", false),

		WorkerID: os.Getenv("WORKER_ID"),
	}
}

// defaultModel picks a large model for acting and creation and a small one
// for observation.
func defaultModel(provider string, small bool) string {
	switch provider {
	case ProviderGemini:
		if small {
			return "gemini-1.5-flash"
		}
		return "gemini-1.5-pro"
	case ProviderVenice:
		return "llama-3.3-70b"
	case ProviderOllama:
		return "llama3.1"
	}
	if small {
		return "gpt-4o-mini"
	}
	return "gpt-4o"
}

// Validate rejects configurations the services cannot start with
func (c *Config) Validate() error {
	var errs []error

	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
	case ProviderVenice:
		if c.VeniceAPIKey == "" {
			errs = append(errs, errors.New("VENICE_API_KEY is required for the venice provider"))
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini provider"))
		}
	case ProviderOllama:
		if c.OllamaBaseURL == "" {
			errs = append(errs, errors.New("OLLAMA_BASE_URL is required for the ollama provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}

	switch c.StorageBackend {
	case BackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis backend"))
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}

	if c.MaxToolCallsPerTurn < 1 {
		errs = append(errs, errors.New("MAX_TOOL_CALLS_PER_TURN must be at least 1"))
	}
	if c.PhaseTimeout <= 0 {
		errs = append(errs, errors.New("PHASE_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
