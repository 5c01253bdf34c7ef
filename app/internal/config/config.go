package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	IsDev   bool `yaml:"is_dev" env:"IS_DEV" env-default:"false"`
	IsDebug bool `yaml:"is_debug" env:"IS_DEBUG" env-default:"false"`

	OpenAI struct {
		APIKey          string  `yaml:"api_key" env:"OPENAI_API_KEY" env-description:"seed API key used until one is saved from the page"`
		BaseURL         string  `yaml:"base_url" env:"OPENAI_BASE_URL" env-default:"https://api.openai.com/v1"`
		Model           string  `yaml:"model" env:"OPENAI_MODEL" env-default:"gpt-3.5-turbo"`
		MaxTokens       int     `yaml:"max_tokens" env:"OPENAI_MAX_TOKENS" env-default:"1000"`
		Temperature     float64 `yaml:"temperature" env:"OPENAI_TEMPERATURE" env-default:"0.7"`
		RateLimitPerMin int     `yaml:"rate_limit_per_min" env:"RATE_LIMIT_PER_MIN" env-default:"60"`
	} `yaml:"openai"`
	HTTP struct {
		Port        int           `yaml:"port" env:"PORT" env-default:"8080"`
		ReadTimeout time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"30s"`
	} `yaml:"http"`
	Repository struct {
		Type      string `yaml:"type" env:"REPOSITORY_TYPE" env-default:"sqlite"`
		SQLiteDSN string `yaml:"sqlite_dsn" env:"SQLITE_DSN" env-default:"catfart.db"`
	} `yaml:"repository"`
	Reaction struct {
		FrameInterval time.Duration `yaml:"frame_interval" env:"FRAME_INTERVAL" env-default:"800ms"`
	} `yaml:"reaction"`
	Media struct {
		MaxUploadBytes int64 `yaml:"max_upload_bytes" env:"MEDIA_MAX_UPLOAD_BYTES" env-default:"10485760"`
	} `yaml:"media"`
}

// Singleton: Config should only ever be created once.
var instance *Config

var once sync.Once

// GetConfig returns pointer to Config. CONFIG_FILE, when set, names a
// yaml/toml/json/env file read before the environment.
func GetConfig() *Config {
	once.Do(func() {
		slog.Info("collecting config...")

		cfg, err := Load(os.Getenv("CONFIG_FILE"))
		if err != nil {
			helpText := "Environment variables error:"
			help, descErr := cleanenv.GetDescription(&Config{}, &helpText)
			if descErr == nil {
				fmt.Fprintln(os.Stderr, help)
			}
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		instance = cfg
	})
	return instance
}

// Load reads the config file at path (if any) and then the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges cleanenv cannot express.
func (c *Config) Validate() error {
	if c.OpenAI.MaxTokens <= 0 {
		return fmt.Errorf("OPENAI_MAX_TOKENS must be > 0")
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		return fmt.Errorf("OPENAI_TEMPERATURE must be within [0, 2]")
	}
	if c.Reaction.FrameInterval <= 0 {
		return fmt.Errorf("FRAME_INTERVAL must be > 0")
	}
	if c.Media.MaxUploadBytes <= 0 {
		return fmt.Errorf("MEDIA_MAX_UPLOAD_BYTES must be > 0")
	}
	switch c.Repository.Type {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("REPOSITORY_TYPE must be memory or sqlite, got %q", c.Repository.Type)
	}
	return nil
}
