package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oukeidos/xraylens/internal/httpclient"
	"github.com/oukeidos/xraylens/internal/metadata"
	"github.com/oukeidos/xraylens/internal/retry"
	"gopkg.in/yaml.v3"
)

// Config holds settings shared by the CLI and the HTTP server. Values from the
// YAML file are overridden by explicit command-line flags.
type Config struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	// BaseURL points the openai provider at a compatible endpoint.
	BaseURL string `yaml:"base_url"`

	Retry struct {
		MaxAttempts int           `yaml:"max_attempts"`
		BaseDelay   time.Duration `yaml:"base_delay"`
	} `yaml:"retry"`

	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	MaxImageBytes  int64         `yaml:"max_image_bytes"`
	MaxPromptChars int           `yaml:"max_prompt_chars"`
	Language       string        `yaml:"language"`

	// MaxOutputTokens caps each model reply; 0 keeps the provider default.
	MaxOutputTokens int `yaml:"max_output_tokens"`

	Server struct {
		Addr           string        `yaml:"addr"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"server"`

	LogFile  string `yaml:"log_file"`
	Debug    bool   `yaml:"debug"`
	AllowEnv bool   `yaml:"allow_env"`
}

const (
	MaxRetryAttempts   = 10
	MaxRetryBaseDelay  = 30 * time.Second
	MaxImageBytesCap   = 50 * 1024 * 1024
	MaxPromptCharsCap  = 20000
	MaxOutputTokensCap = 65536

	DefaultServerAddr     = "127.0.0.1:8080"
	DefaultRequestTimeout = 5 * time.Minute
	DefaultMaxPromptChars = 4000
)

// Defaults returns the built-in configuration.
func Defaults() Config {
	var c Config
	c.Provider = string(metadata.ProviderGemini)
	c.Retry.MaxAttempts = retry.DefaultMaxAttempts
	c.Retry.BaseDelay = retry.DefaultBaseDelay
	c.HTTPTimeout = httpclient.DefaultTimeout
	c.MaxImageBytes = httpclient.MaxResponseBytes
	c.MaxPromptChars = DefaultMaxPromptChars
	c.Language = "english"
	c.Server.Addr = DefaultServerAddr
	c.Server.RequestTimeout = DefaultRequestTimeout
	return c
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "xraylens", "config.yaml"), nil
}

// Load reads path over Defaults. A missing file is only an error when
// required is true.
func Load(path string, required bool) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := Decode(bytes.NewReader(data), &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode overlays YAML from r onto cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Normalize fills empty values and applies safe bounds, returning any adjustments.
func (c Config) Normalize() (Config, []string) {
	var notes []string
	if strings.TrimSpace(c.Provider) == "" {
		c.Provider = string(metadata.ProviderGemini)
	}
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if strings.TrimSpace(c.Model) == "" {
		c.Model = metadata.DefaultModel(metadata.Provider(c.Provider))
	}
	if c.Retry.MaxAttempts > MaxRetryAttempts {
		notes = append(notes, fmt.Sprintf("retry.max_attempts clamped from %d to %d", c.Retry.MaxAttempts, MaxRetryAttempts))
		c.Retry.MaxAttempts = MaxRetryAttempts
	}
	if c.Retry.BaseDelay > MaxRetryBaseDelay {
		notes = append(notes, fmt.Sprintf("retry.base_delay clamped from %s to %s", c.Retry.BaseDelay, MaxRetryBaseDelay))
		c.Retry.BaseDelay = MaxRetryBaseDelay
	}
	if c.MaxImageBytes > MaxImageBytesCap {
		notes = append(notes, fmt.Sprintf("max_image_bytes clamped from %d to %d", c.MaxImageBytes, MaxImageBytesCap))
		c.MaxImageBytes = MaxImageBytesCap
	}
	if c.MaxPromptChars > MaxPromptCharsCap {
		notes = append(notes, fmt.Sprintf("max_prompt_chars clamped from %d to %d", c.MaxPromptChars, MaxPromptCharsCap))
		c.MaxPromptChars = MaxPromptCharsCap
	}
	if c.MaxOutputTokens > MaxOutputTokensCap {
		notes = append(notes, fmt.Sprintf("max_output_tokens clamped from %d to %d", c.MaxOutputTokens, MaxOutputTokensCap))
		c.MaxOutputTokens = MaxOutputTokensCap
	}
	return c, notes
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if _, err := metadata.ParseProvider(c.Provider); err != nil {
		return err
	}
	if err := c.RetryPolicy().Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be greater than 0, got %s", c.HTTPTimeout)
	}
	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("max_image_bytes must be greater than 0, got %d", c.MaxImageBytes)
	}
	if c.MaxPromptChars <= 0 {
		return fmt.Errorf("max_prompt_chars must be greater than 0, got %d", c.MaxPromptChars)
	}
	if c.MaxOutputTokens < 0 {
		return fmt.Errorf("max_output_tokens must not be negative, got %d", c.MaxOutputTokens)
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// ProviderID returns the parsed provider; call Validate first.
func (c Config) ProviderID() metadata.Provider {
	p, _ := metadata.ParseProvider(c.Provider)
	return p
}

func (c Config) RetryPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: c.Retry.MaxAttempts, BaseDelay: c.Retry.BaseDelay}
}
