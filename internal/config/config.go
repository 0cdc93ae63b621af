package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by MEMORA_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("MEMORA_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func GroqAPIKey() string {
	return os.Getenv("GROQ_API_KEY")
}

func CerebrasAPIKey() string {
	return os.Getenv("CEREBRAS_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

func GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

// LLMProvider returns the configured LLM provider.
// Defaults to "openai" if not set.
// Valid values: openai, groq, cerebras, anthropic, gemini, mock
func LLMProvider() string {
	p := os.Getenv("LLM_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// LLMAPIKey returns LLM_API_KEY when set, otherwise the provider-specific key.
func LLMAPIKey() string {
	if k := os.Getenv("LLM_API_KEY"); k != "" {
		return k
	}
	switch LLMProvider() {
	case "groq":
		return GroqAPIKey()
	case "cerebras":
		return CerebrasAPIKey()
	case "anthropic":
		return AnthropicAPIKey()
	case "gemini":
		return GeminiAPIKey()
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// LLMModel overrides the provider's default model. Empty means default.
func LLMModel() string {
	return os.Getenv("LLM_MODEL")
}

// LLMBaseURL overrides the provider endpoint, e.g. for a local
// OpenAI-compatible server.
func LLMBaseURL() string {
	return os.Getenv("LLM_BASE_URL")
}

// EmbeddingProvider returns the configured embedding provider.
// Defaults to "openai" if not set.
// Valid values: openai, mock
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// EmbeddingAPIKey returns the API key for the configured embedding provider.
func EmbeddingAPIKey() string {
	switch EmbeddingProvider() {
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// TaskBackend selects where background tasks run: memory or redis.
func TaskBackend() string {
	b := os.Getenv("TASK_BACKEND")
	if b == "" {
		return "memory"
	}
	return b
}

func TaskWorkers() int {
	n, err := strconv.Atoi(os.Getenv("TASK_WORKERS"))
	if err != nil || n <= 0 {
		return 4
	}
	return n
}

func TaskQueueSize() int {
	n, err := strconv.Atoi(os.Getenv("TASK_QUEUE_SIZE"))
	if err != nil || n <= 0 {
		return 256
	}
	return n
}

// TaskTimeout bounds a single background task. Accepts Go durations ("90s").
func TaskTimeout() time.Duration {
	d, err := time.ParseDuration(os.Getenv("TASK_TIMEOUT"))
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

func RedisURL() string {
	u := os.Getenv("REDIS_URL")
	if u == "" {
		return "redis://localhost:6379/0"
	}
	return u
}

func TaskStream() string {
	s := os.Getenv("TASK_STREAM")
	if s == "" {
		return "memora:tasks"
	}
	return s
}

func TaskGroup() string {
	g := os.Getenv("TASK_GROUP")
	if g == "" {
		return "memora-workers"
	}
	return g
}

// OpinionMinConfidence drops extracted opinions below this confidence.
// Defaults to 0, which keeps all of them.
func OpinionMinConfidence() float64 {
	v, err := strconv.ParseFloat(os.Getenv("OPINION_MIN_CONFIDENCE"), 64)
	if err != nil || v < 0 || v > 1 {
		return 0
	}
	return v
}

// APIURL is the server address used by the CLI.
func APIURL() string {
	u := os.Getenv("MEMORA_API_URL")
	if u == "" {
		return "http://localhost:8080"
	}
	return u
}

// APIKey is the tenant API key used by the CLI.
func APIKey() string {
	return os.Getenv("MEMORA_API_KEY")
}
