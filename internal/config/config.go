// Package config loads agentgraph's runtime configuration from a YAML file,
// a .env file and AGENTGRAPH_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config is the full runtime configuration.
type Config struct {
	LLM    LLMConfig    `yaml:"llm"`
	Store  StoreConfig  `yaml:"store"`
	Redis  RedisConfig  `yaml:"redis"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`

	// Functions points at a YAML or JSON file of process-backed worker functions.
	Functions string `yaml:"functions"`
}

type LLMConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"base_url"`
	APIKey      string   `yaml:"api_key"`
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature *float32 `yaml:"temperature"`
}

// StoreConfig selects where run memory is persisted.
// EncryptionKey and FallbackKeys are base64-encoded 32-byte keys.
type StoreConfig struct {
	Backend       string   `yaml:"backend"`
	Dir           string   `yaml:"dir"`
	EncryptionKey string   `yaml:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys"`
	Redact        []string `yaml:"redact"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Store: StoreConfig{
			Backend: StoreMemory,
			Dir:     ".agentgraph/runs",
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "agentgraph:",
		},
		Log:    LogConfig{Level: "info"},
		Server: ServerConfig{Port: 8080},
	}
}

// Load builds the configuration. path may be empty; a missing .env file is ignored.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing YAML: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component can act on.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	switch c.Store.Backend {
	case StoreMemory, StoreRedis:
	case StoreFile:
		if c.Store.Dir == "" {
			return errors.New("file store requires store.dir")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("OPENAI_API_KEY", &c.LLM.APIKey)
	str("AGENTGRAPH_LLM_API_KEY", &c.LLM.APIKey)
	str("AGENTGRAPH_LLM_PROVIDER", &c.LLM.Provider)
	str("AGENTGRAPH_LLM_MODEL", &c.LLM.Model)
	str("AGENTGRAPH_LLM_BASE_URL", &c.LLM.BaseURL)
	str("AGENTGRAPH_STORE", &c.Store.Backend)
	str("AGENTGRAPH_STORE_DIR", &c.Store.Dir)
	str("AGENTGRAPH_STORE_KEY", &c.Store.EncryptionKey)
	str("AGENTGRAPH_REDIS_ADDR", &c.Redis.Addr)
	str("AGENTGRAPH_REDIS_PASSWORD", &c.Redis.Password)
	str("AGENTGRAPH_REDIS_PREFIX", &c.Redis.Prefix)
	str("AGENTGRAPH_LOG_LEVEL", &c.Log.Level)
	str("AGENTGRAPH_FUNCTIONS", &c.Functions)

	if err := num("AGENTGRAPH_LLM_MAX_TOKENS", &c.LLM.MaxTokens); err != nil {
		return err
	}
	if err := num("AGENTGRAPH_REDIS_DB", &c.Redis.DB); err != nil {
		return err
	}
	if err := num("AGENTGRAPH_PORT", &c.Server.Port); err != nil {
		return err
	}
	if v, ok := lookup("AGENTGRAPH_REDIS_TTL"); ok && v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AGENTGRAPH_REDIS_TTL: %w", err)
		}
		c.Redis.TTL = ttl
	}
	if v, ok := lookup("AGENTGRAPH_LLM_TEMPERATURE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("AGENTGRAPH_LLM_TEMPERATURE: %w", err)
		}
		t := float32(f)
		c.LLM.Temperature = &t
	}
	return nil
}
