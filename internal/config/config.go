// Package config loads InterviewGuru settings from defaults, an optional
// YAML file, a .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	OllamaHost        string        `yaml:"ollama_host"`
	Model             string        `yaml:"model"`
	Port              int           `yaml:"port"`
	SessionTTLMinutes int           `yaml:"session_ttl_min"`
	SweepInterval     time.Duration `yaml:"session_sweep_interval"`
	GenerateTimeout   time.Duration `yaml:"generate_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	LogDir            string        `yaml:"log_dir"`
	Debug             bool          `yaml:"debug"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		OllamaHost:        "http://localhost:11434",
		Model:             "llama3:8b",
		Port:              4000,
		SessionTTLMinutes: 120,
		SweepInterval:     time.Minute,
		GenerateTimeout:   120 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogDir:            "logs",
	}
}

// Load builds the configuration. path and envFile are optional; a missing
// envFile is ignored. Variables already set in the environment win over the
// .env file.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("OLLAMA_HOST"); ok && v != "" {
		c.OllamaHost = v
	}
	if v, ok := os.LookupEnv("MODEL"); ok && v != "" {
		c.Model = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"PORT", &c.Port},
		{"SESSION_TTL_MIN", &c.SessionTTLMinutes},
	}
	for _, e := range ints {
		v, ok := os.LookupEnv(e.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", e.key, v, err)
		}
		*e.dst = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SESSION_SWEEP_INTERVAL", &c.SweepInterval},
		{"GENERATE_TIMEOUT", &c.GenerateTimeout},
		{"SHUTDOWN_TIMEOUT", &c.ShutdownTimeout},
	}
	for _, e := range durations {
		v, ok := os.LookupEnv(e.key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", e.key, v, err)
		}
		*e.dst = d
	}

	if v, ok := os.LookupEnv("LOG_DIR"); ok && v != "" {
		c.LogDir = v
	}
	if v, ok := os.LookupEnv("DEBUG"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DEBUG %q: %w", v, err)
		}
		c.Debug = b
	}
	return nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.OllamaHost == "":
		return errors.New("ollama host is required")
	case c.Model == "":
		return errors.New("model is required")
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("port %d out of range", c.Port)
	case c.SessionTTLMinutes <= 0:
		return fmt.Errorf("session ttl must be positive, got %d minutes", c.SessionTTLMinutes)
	case c.SweepInterval <= 0:
		return fmt.Errorf("sweep interval must be positive, got %s", c.SweepInterval)
	case c.GenerateTimeout <= 0:
		return fmt.Errorf("generate timeout must be positive, got %s", c.GenerateTimeout)
	}
	return nil
}

// SessionTTL is how long a session lives after creation.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
