// Package config loads the service configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Http struct {
		Port           int           `yaml:"port" env:"HEART_HTTP_PORT"`
		Timeout        time.Duration `yaml:"timeout" env:"HEART_HTTP_TIMEOUT"`
		AllowedOrigins []string      `yaml:"allowed_origins" env:"HEART_HTTP_ALLOWED_ORIGINS"`
	} `yaml:"http"`
	Log struct {
		Level       string `yaml:"level" env:"HEART_LOG_LEVEL"`
		File        string `yaml:"file" env:"HEART_LOG_FILE"`
		MaxSizeMB   int    `yaml:"max_size_mb"`
		MaxBackups  int    `yaml:"max_backups"`
		MaxAgeDays  int    `yaml:"max_age_days"`
		Development bool   `yaml:"development" env:"HEART_LOG_DEVELOPMENT"`
	} `yaml:"log"`
	Artifacts struct {
		Schema    string `yaml:"schema" env:"HEART_ARTIFACT_SCHEMA"`
		Scaler    string `yaml:"scaler" env:"HEART_ARTIFACT_SCALER"`
		Model     string `yaml:"model" env:"HEART_ARTIFACT_MODEL"`
		ModelType string `yaml:"model_type" env:"HEART_MODEL_TYPE"`
		Watch     bool   `yaml:"watch" env:"HEART_ARTIFACT_WATCH"`
	} `yaml:"artifacts"`
	Cache struct {
		Size int `yaml:"size" env:"HEART_CACHE_SIZE"`
	} `yaml:"cache"`
}

func Default() *Config {
	var cfg Config
	cfg.Http.Port = 8080
	cfg.Http.Timeout = 30 * time.Second
	cfg.Http.AllowedOrigins = []string{"*"}
	cfg.Log.Level = "info"
	cfg.Log.MaxSizeMB = 50
	cfg.Log.MaxBackups = 3
	cfg.Log.MaxAgeDays = 14
	cfg.Artifacts.Schema = "artifacts/columns.json"
	cfg.Artifacts.Scaler = "artifacts/scaler.json"
	cfg.Artifacts.Model = "artifacts/model.json"
	cfg.Artifacts.ModelType = "knn"
	cfg.Cache.Size = 256
	return &cfg
}

// Load reads path over the defaults, then applies a .env file (if any) and
// HEART_* environment variables. A missing config file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.Http.Port)
	}
	if c.Artifacts.Schema == "" || c.Artifacts.Scaler == "" || c.Artifacts.Model == "" {
		return errors.New("artifact paths are required")
	}
	if c.Artifacts.ModelType == "" {
		return errors.New("artifacts.model_type is required")
	}
	return nil
}
