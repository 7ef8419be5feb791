// Package config provides YAML-based configuration for the importer daemon,
// with environment-variable overrides for deployment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server        ServerConfig  `yaml:"server"`
	Backend       BackendConfig `yaml:"backend"`
	Intake        IntakeConfig  `yaml:"intake"`
	Retry         RetryConfig   `yaml:"retry"`
	Notifications NotifyConfig  `yaml:"notifications"`
	Spool         SpoolConfig   `yaml:"spool"`
	LogLevel      string        `yaml:"logLevel"`
}

// ServerConfig contains the local HTTP surface settings.
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bindAddress"`
	EnableCORS   bool   `yaml:"enableCors"`
	AllowOrigins string `yaml:"allowOrigins"`
	ReadTimeout  int    `yaml:"readTimeoutSeconds"`
	WriteTimeout int    `yaml:"writeTimeoutSeconds"`
	IdleTimeout  int    `yaml:"idleTimeoutSeconds"`
	BodyLimit    string `yaml:"bodyLimit"`
}

// BackendConfig points at the portfolio backend's batch-upload endpoint.
type BackendConfig struct {
	UploadURL      string `yaml:"uploadUrl"`
	FieldName      string `yaml:"fieldName"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// IntakeConfig bounds what the intake validator accepts.
type IntakeConfig struct {
	MaxFileSizeBytes int64 `yaml:"maxFileSizeBytes"`
}

// RetryConfig controls the soft-retry policy.
type RetryConfig struct {
	MaxAttempts      int `yaml:"maxAttempts"`
	SoftRetryDelayMS int `yaml:"softRetryDelayMs"`
}

// NotifyConfig sets per-level auto-dismiss durations; errors are sticky.
type NotifyConfig struct {
	SuccessDismissSeconds int `yaml:"successDismissSeconds"`
	WarningDismissSeconds int `yaml:"warningDismissSeconds"`
	InfoDismissSeconds    int `yaml:"infoDismissSeconds"`
}

// SpoolConfig locates the staging directory for accepted files.
type SpoolConfig struct {
	Directory string `yaml:"directory"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8074,
			BindAddress:  "127.0.0.1",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 60,
			IdleTimeout:  120,
			BodyLimit:    "64M",
		},
		Backend: BackendConfig{
			UploadURL:      "http://localhost:8000/api/transactions/upload",
			FieldName:      "files",
			TimeoutSeconds: 30,
		},
		Intake: IntakeConfig{
			MaxFileSizeBytes: 10 * 1024 * 1024,
		},
		Retry: RetryConfig{
			MaxAttempts:      2,
			SoftRetryDelayMS: 1500,
		},
		Notifications: NotifyConfig{
			SuccessDismissSeconds: 6,
			WarningDismissSeconds: 10,
			InfoDismissSeconds:    6,
		},
		Spool: SpoolConfig{
			Directory: "./data/spool",
		},
		LogLevel: "info",
	}
}

// Load reads configuration from a YAML file, writing the defaults out when
// the file does not exist yet, then applies environment overrides. A .env
// file in the working directory is honored.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("IMPORTER_BACKEND_URL"); v != "" {
		c.Backend.UploadURL = v
	}
	if v := os.Getenv("IMPORTER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("IMPORTER_SPOOL_DIR"); v != "" {
		c.Spool.Directory = v
	}
	if v := os.Getenv("IMPORTER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) validate() error {
	if c.Backend.UploadURL == "" {
		return fmt.Errorf("backend.uploadUrl must be set")
	}
	if c.Backend.FieldName == "" {
		return fmt.Errorf("backend.fieldName must be set")
	}
	if c.Intake.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("intake.maxFileSizeBytes must be positive")
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.maxAttempts must not be negative")
	}
	return nil
}

// EnsureDirectories creates the directories the daemon needs.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Spool.Directory, 0o755); err != nil {
		return fmt.Errorf("creating spool directory: %w", err)
	}
	return nil
}

// Addr returns the listen address for the HTTP surface.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// ClientTimeout is the fixed bound on the batch-upload request.
func (c *Config) ClientTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// SoftRetryDelay is how long after a transient failure entries are re-armed.
func (c *Config) SoftRetryDelay() time.Duration {
	return time.Duration(c.Retry.SoftRetryDelayMS) * time.Millisecond
}
