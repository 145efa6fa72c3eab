package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App          AppConfig       `mapstructure:"app"`
	Server       ServerConfig    `mapstructure:"server"`
	Auth         AuthConfig      `mapstructure:"auth"`
	LLM          LLMConfig       `mapstructure:"llm"`
	Reference    ReferenceConfig `mapstructure:"reference"`
	Cache        CacheConfig     `mapstructure:"cache"`
	Callback     CallbackConfig  `mapstructure:"callback"`
	LogLevel     string          `mapstructure:"log_level"`
	MaxBodyBytes int64           `mapstructure:"max_body_bytes"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AuthConfig 共享金鑰驗證設定
type AuthConfig struct {
	APIKey string `mapstructure:"api_key"`
	Header string `mapstructure:"header"`
}

// LLMConfig 語言模型供應商設定
type LLMConfig struct {
	APIKey           string        `mapstructure:"api_key"`
	BaseURL          string        `mapstructure:"base_url"`
	Model            string        `mapstructure:"model"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	Temperature      float64       `mapstructure:"temperature"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxResponseChars int           `mapstructure:"max_response_chars"`
}

// Enabled 是否已設定金鑰
func (c LLMConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// ReferenceConfig 第三方參考資料（添加物說明）抓取設定
type ReferenceConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxItems    int           `mapstructure:"max_items"`
	Concurrency int           `mapstructure:"concurrency"`
}

// CacheConfig 參考資料快取設定
type CacheConfig struct {
	Backend         string        `mapstructure:"backend"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
}

// CallbackConfig 回呼派送設定
type CallbackConfig struct {
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// 快取後端
const (
	CacheBackendNone   = "none"
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// envBindings 常用環境變數對應
var envBindings = map[string]string{
	"auth.api_key":       "API_KEY",
	"auth.header":        "API_KEY_HEADER",
	"llm.api_key":        "GROQ_API_KEY",
	"llm.base_url":       "GROQ_BASE_URL",
	"llm.model":          "LLM_MODEL",
	"llm.max_tokens":     "MODEL_MAX_TOKENS",
	"server.port":        "PORT",
	"reference.enabled":  "REFERENCE_ENABLED",
	"reference.base_url": "REFERENCE_BASE_URL",
	"cache.backend":      "CACHE_BACKEND",
	"cache.redis_addr":   "REDIS_ADDR",
	"log_level":          "LOG_LEVEL",
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 為選用
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	normalize(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Default 返回只含預設值的設定（測試與工具使用）
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	_ = v.Unmarshal(&config)
	normalize(&config)
	return &config
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "nutrition-advisor")

	// 伺服器設定
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "45s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// 驗證
	v.SetDefault("auth.api_key", "")
	v.SetDefault("auth.header", "X-API-Key")

	// LLM 設定
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.max_tokens", 500)
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.max_response_chars", 4000)

	// 參考資料
	v.SetDefault("reference.enabled", false)
	v.SetDefault("reference.base_url", "https://world.openfoodfacts.org/additive")
	v.SetDefault("reference.timeout", "5s")
	v.SetDefault("reference.max_items", 5)
	v.SetDefault("reference.concurrency", 3)

	// 快取設定
	v.SetDefault("cache.backend", CacheBackendNone)
	v.SetDefault("cache.max_size", 500)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)

	// 回呼設定
	v.SetDefault("callback.workers", 2)
	v.SetDefault("callback.queue_size", 100)
	v.SetDefault("callback.timeout", "10s")

	v.SetDefault("log_level", "info")
	v.SetDefault("max_body_bytes", 1<<20)
}

// normalize 整理字串設定
func normalize(config *Config) {
	config.Auth.APIKey = strings.TrimSpace(config.Auth.APIKey)
	config.Auth.Header = strings.TrimSpace(config.Auth.Header)
	config.LLM.APIKey = strings.TrimSpace(config.LLM.APIKey)
	config.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(config.LLM.BaseURL), "/")
	config.Reference.BaseURL = strings.TrimRight(strings.TrimSpace(config.Reference.BaseURL), "/")
	config.Cache.Backend = strings.ToLower(strings.TrimSpace(config.Cache.Backend))
	if config.Cache.Backend == "" {
		config.Cache.Backend = CacheBackendNone
	}
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 {
		return fmt.Errorf("server port is required")
	}
	if config.Auth.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	if config.Auth.Header == "" {
		return fmt.Errorf("auth header name is required")
	}
	if config.LLM.MaxTokens <= 0 {
		return fmt.Errorf("invalid llm max tokens")
	}
	if config.LLM.MaxResponseChars <= 0 {
		return fmt.Errorf("invalid llm max response chars")
	}
	if config.Callback.Workers <= 0 {
		return fmt.Errorf("invalid callback workers")
	}
	if config.Callback.QueueSize <= 0 {
		return fmt.Errorf("invalid callback queue size")
	}
	if config.Callback.Timeout <= 0 {
		return fmt.Errorf("invalid callback timeout")
	}

	switch config.Cache.Backend {
	case CacheBackendNone:
	case CacheBackendMemory:
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 || config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache ttl or cleanup interval")
		}
	case CacheBackendRedis:
		if config.Cache.RedisAddr == "" {
			return fmt.Errorf("redis address is required for redis cache backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", config.Cache.Backend)
	}

	if config.Reference.Enabled && config.Reference.BaseURL == "" {
		return fmt.Errorf("reference base url is required when reference lookup is enabled")
	}

	return nil
}
