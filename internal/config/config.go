package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

var (
	ErrMissingToken       = errors.New("TELEGRAM_BOT_TOKEN is required")
	ErrMissingDB          = errors.New("DATABASE_URL is required")
	ErrInvalidLLMProvider = errors.New("LLM_PROVIDER must be mock or openrouter")
	ErrMissingLLMKey      = errors.New("OPENROUTER_API_KEY is required for openrouter provider")
	ErrInvalidInsurer     = errors.New("INSURER_PROVIDER must be mock or ancileo")
	ErrMissingInsurerKey  = errors.New("ANCILEO_API_KEY is required for ancileo provider")
	ErrInvalidRateLimit   = errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	ErrInvalidLogFormat   = errors.New("LOG_FORMAT must be json or console")
)

const (
	ProviderMock       = "mock"
	ProviderOpenRouter = "openrouter"
	ProviderAncileo    = "ancileo"
)

type Config struct {
	Telegram  TelegramConfig
	Database  DatabaseConfig
	LLM       LLMConfig
	Insurer   InsurerConfig
	HTTP      HTTPConfig
	Log       LogConfig
	Timeouts  TimeoutConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

type TelegramConfig struct {
	Token string
}

type DatabaseConfig struct {
	URL string
}

type LLMConfig struct {
	Provider   string
	OpenRouter OpenRouterConfig
	Timeout    time.Duration
}

type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type InsurerConfig struct {
	Provider string
	Market   string
	Ancileo  AncileoConfig
}

type AncileoConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type HTTPConfig struct {
	// пусто - HTTP API не поднимаем
	Addr string
}

type LogConfig struct {
	Level  string
	Format string
}

type TimeoutConfig struct {
	Agent time.Duration
	Turn  time.Duration
}

type CacheConfig struct {
	TTL time.Duration
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

// Load - конфиг бота, токен телеграма обязателен
func Load() (*Config, error) {
	cfg := load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Telegram.Token == "" {
		return nil, ErrMissingToken
	}
	return cfg, nil
}

// LoadDatabase - для утилит, которым нужна только база
func LoadDatabase() (*Config, error) {
	cfg := load()
	if cfg.Database.URL == "" {
		return nil, ErrMissingDB
	}
	return cfg, nil
}

func load() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Token: os.Getenv("TELEGRAM_BOT_TOKEN"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		LLM: LLMConfig{
			Provider: getEnvOrDefault("LLM_PROVIDER", ProviderMock),
			OpenRouter: OpenRouterConfig{
				APIKey:  os.Getenv("OPENROUTER_API_KEY"),
				Model:   getEnvOrDefault("OPENROUTER_MODEL", "openai/gpt-4o-mini"),
				BaseURL: getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			},
			Timeout: time.Duration(getEnvIntOrDefault("LLM_TIMEOUT_SEC", 60)) * time.Second,
		},
		Insurer: InsurerConfig{
			Provider: getEnvOrDefault("INSURER_PROVIDER", ProviderMock),
			Market:   getEnvOrDefault("INSURER_MARKET", "SG"),
			Ancileo: AncileoConfig{
				APIKey:  os.Getenv("ANCILEO_API_KEY"),
				BaseURL: getEnvOrDefault("ANCILEO_BASE_URL", "https://dev.api.ancileo.com"),
				Timeout: time.Duration(getEnvIntOrDefault("ANCILEO_TIMEOUT_SEC", 30)) * time.Second,
			},
		},
		HTTP: HTTPConfig{
			Addr: os.Getenv("HTTP_ADDR"),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		Timeouts: TimeoutConfig{
			Agent: time.Duration(getEnvIntOrDefault("AGENT_TIMEOUT_SEC", 45)) * time.Second,
			Turn:  time.Duration(getEnvIntOrDefault("TURN_TIMEOUT_SEC", 120)) * time.Second,
		},
		Cache: CacheConfig{
			TTL: time.Duration(getEnvIntOrDefault("CACHE_TTL_SEC", 900)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", 20),
		},
	}
}

func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return ErrMissingDB
	}

	switch c.LLM.Provider {
	case ProviderMock:
	case ProviderOpenRouter:
		if c.LLM.OpenRouter.APIKey == "" {
			return ErrMissingLLMKey
		}
	default:
		return ErrInvalidLLMProvider
	}

	switch c.Insurer.Provider {
	case ProviderMock:
	case ProviderAncileo:
		if c.Insurer.Ancileo.APIKey == "" {
			return ErrMissingInsurerKey
		}
	default:
		return ErrInvalidInsurer
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		return ErrInvalidRateLimit
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return ErrInvalidLogFormat
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
