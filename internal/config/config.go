package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingModelArkKey is returned by Load when no generative-model API key is configured.
var ErrMissingModelArkKey = errors.New("MODELARK_API_KEY not configured")

// Config holds every setting the triage backend needs. It is built once at
// startup and passed by pointer; nothing mutates it afterwards.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	ModelArk   ModelArkConfig   `yaml:"modelark"`
	Detector   DetectorConfig   `yaml:"detector"`
	Reputation ReputationConfig `yaml:"reputation"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port            string        `yaml:"port"`
	CORSOrigin      string        `yaml:"corsOrigin"`
	MaxUploadMB     int64         `yaml:"maxUploadMB"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	ReleaseMode     bool          `yaml:"releaseMode"`
}

// ModelArkConfig configures the chat-completion provider.
type ModelArkConfig struct {
	APIKey            string        `yaml:"apiKey"`
	ChatURL           string        `yaml:"chatURL"`
	TextModel         string        `yaml:"textModel"`
	VisionModel       string        `yaml:"visionModel"`
	TextTemperature   float64       `yaml:"textTemperature"`
	VisionTemperature float64       `yaml:"visionTemperature"`
	MaxTokens         int           `yaml:"maxTokens"`
	Timeout           time.Duration `yaml:"timeout"`
}

// DetectorConfig configures the anomaly-detection microservice.
type DetectorConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ReputationConfig configures IP reputation lookups. An empty APIKey disables
// lookups without affecting triage.
type ReputationConfig struct {
	APIKey   string        `yaml:"apiKey"`
	BaseURL  string        `yaml:"baseURL"`
	Timezone string        `yaml:"timezone"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DatabaseConfig points at the Postgres instance holding users, knowledge and audit rows.
type DatabaseConfig struct {
	URL     string `yaml:"url"`
	Host    string `yaml:"host"`
	Port    string `yaml:"port"`
	User    string `yaml:"user"`
	Pass    string `yaml:"password"`
	Name    string `yaml:"name"`
	SSLMode string `yaml:"sslMode"`
}

// AuthConfig controls JWT issuance and enforcement.
type AuthConfig struct {
	Required bool          `yaml:"required"`
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"tokenTTL"`
}

// LoggingConfig controls the logrus setup.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DSN renders the gorm/postgres connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Pass, d.Name, d.Port, d.SSLMode)
}

// MaxUploadBytes is the multipart body limit.
func (s ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

// Load builds a Config from defaults, an optional YAML file and the
// environment, in that order. path falls back to SANTAI_CONFIG.
func Load(path string) (*Config, error) {
	cfg, err := LoadRaw(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadRaw is Load without Validate, for tools that only need the database.
func LoadRaw(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("SANTAI_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Validate checks the mandatory settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ModelArk.APIKey) == "" {
		return ErrMissingModelArkKey
	}
	if strings.TrimSpace(c.ModelArk.ChatURL) == "" {
		return errors.New("modelark chat URL not configured")
	}
	if strings.TrimSpace(c.Detector.URL) == "" {
		return errors.New("anomaly detector URL not configured")
	}
	if c.Auth.Required && c.Auth.Secret == "" {
		return errors.New("JWT_SECRET is required when AUTH_REQUIRED is enabled")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            "5001",
			CORSOrigin:      "http://localhost:3000",
			MaxUploadMB:     10,
			GracefulTimeout: 30 * time.Second,
		},
		ModelArk: ModelArkConfig{
			ChatURL:           "https://ark.ap-southeast.bytepluses.com/api/v3/chat/completions",
			TextModel:         "seed-1-6-250615",
			VisionModel:       "seed-1-6-250615",
			TextTemperature:   0.7,
			VisionTemperature: 0.5,
			MaxTokens:         2048,
			Timeout:           120 * time.Second,
		},
		Detector: DetectorConfig{
			URL:     "http://localhost:5002/detect",
			Timeout: 60 * time.Second,
		},
		Reputation: ReputationConfig{
			BaseURL:  "https://www.virustotal.com/api/v3",
			Timezone: "Asia/Jakarta",
			Timeout:  15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			Name:    "santai",
			SSLMode: "disable",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{Level: "INFO"},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("CORS_ORIGIN"); v != "" {
		cfg.Server.CORSOrigin = v
	}
	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		if mb, err := strconv.ParseInt(v, 10, 64); err == nil && mb > 0 {
			cfg.Server.MaxUploadMB = mb
		}
	}
	if os.Getenv("GIN_MODE") == "release" {
		cfg.Server.ReleaseMode = true
	}

	if v := os.Getenv("BYTEPLUS_MODELARK_API_KEY"); v != "" {
		cfg.ModelArk.APIKey = v
	}
	if v := os.Getenv("MODELARK_API_KEY"); v != "" {
		cfg.ModelArk.APIKey = v
	}
	if v := os.Getenv("MODELARK_CHAT_API_URL"); v != "" {
		cfg.ModelArk.ChatURL = v
	}
	if v := os.Getenv("MODELARK_TEXT_MODEL"); v != "" {
		cfg.ModelArk.TextModel = v
	}
	if v := os.Getenv("MODELARK_VISION_MODEL"); v != "" {
		cfg.ModelArk.VisionModel = v
	}
	if v := os.Getenv("MODELARK_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ModelArk.MaxTokens = n
		}
	}
	if v := os.Getenv("MODELARK_TIMEOUT_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			cfg.ModelArk.Timeout = d
		}
	}

	if v := os.Getenv("ML_SERVICE_URL"); v != "" {
		cfg.Detector.URL = v
	}
	if v := os.Getenv("ML_SERVICE_TIMEOUT_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			cfg.Detector.Timeout = d
		}
	}

	if v := os.Getenv("VIRUSTOTAL_API_KEY"); v != "" {
		cfg.Reputation.APIKey = v
	}
	if v := os.Getenv("VIRUSTOTAL_BASE_URL"); v != "" {
		cfg.Reputation.BaseURL = v
	}
	if v := os.Getenv("REPUTATION_TIMEZONE"); v != "" {
		cfg.Reputation.Timezone = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		cfg.Database.Port = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Pass = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}

	if v := os.Getenv("AUTH_REQUIRED"); v != "" {
		cfg.Auth.Required = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("JWT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Auth.TokenTTL = d
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
}
