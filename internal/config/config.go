// Package config loads the service configuration.
// Values come from defaults, then an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/feitianbubu/animago"
	"github.com/feitianbubu/animago/adapters/huggingface"
	"github.com/feitianbubu/animago/adapters/kling"
)

const (
	// Default values
	DefaultPort           = 8080
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultAttemptTimeout = 90 * time.Second
	DefaultRequestTimeout = 10 * time.Minute
	DefaultRateBurst      = 5

	// Environment variable names
	EnvConfigFile     = "ANIMAGO_CONFIG"
	EnvPort           = "ANIMAGO_PORT"
	EnvLogLevel       = "ANIMAGO_LOG_LEVEL"
	EnvLogFormat      = "ANIMAGO_LOG_FORMAT"
	EnvAttemptTimeout = "ANIMAGO_ATTEMPT_TIMEOUT"
	EnvRequestTimeout = "ANIMAGO_REQUEST_TIMEOUT"
	EnvLoadingPolicy  = "ANIMAGO_LOADING_POLICY"
	EnvRateLimitRPS   = "ANIMAGO_RATE_LIMIT_RPS"
	EnvRateLimitBurst = "ANIMAGO_RATE_LIMIT_BURST"
	EnvHFToken        = "HUGGINGFACE_API_TOKEN"
	EnvHFBaseURL      = "ANIMAGO_HF_BASE_URL"
	EnvHFModels       = "ANIMAGO_HF_MODELS"
	EnvKlingAccessKey = "KLING_ACCESS_KEY"
	EnvKlingSecretKey = "KLING_SECRET_KEY"
	EnvKlingBaseURL   = "KLING_BASE_URL"
	EnvKlingTimeout   = "KLING_TIMEOUT"
	EnvKlingAttempt   = "KLING_ATTEMPT_TIMEOUT"
	EnvSentryDSN      = "SENTRY_DSN"
	EnvEnvironment    = "ANIMAGO_ENV"
)

// Config is the complete service configuration
type Config struct {
	Environment string            `yaml:"environment"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Chain       ChainConfig       `yaml:"chain"`
	HuggingFace HuggingFaceConfig `yaml:"huggingface"`
	Kling       KlingConfig       `yaml:"kling"`
	SentryDSN   string            `yaml:"sentry_dsn"`
}

// ServerConfig configures the inbound HTTP surface.
// A RateLimitRPS of zero disables inbound rate limiting.
type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ChainConfig configures the provider chain
type ChainConfig struct {
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	LoadingPolicy  string        `yaml:"loading_policy"`
}

// HuggingFaceConfig configures the Inference API providers, one per model, in priority order
type HuggingFaceConfig struct {
	// Token is the required credential
	Token   string   `yaml:"token"`
	BaseURL string   `yaml:"base_url"`
	Models  []string `yaml:"models"`
	Frames  int      `yaml:"frames"`
	Steps   int      `yaml:"steps"`
	FPS     int      `yaml:"fps"`
}

// KlingConfig configures the optional Kling fallback.
// Timeout bounds each HTTP call; AttemptTimeout replaces the chain's
// attempt timeout for the whole Kling task.
type KlingConfig struct {
	AccessKey      string        `yaml:"access_key"`
	SecretKey      string        `yaml:"secret_key"`
	BaseURL        string        `yaml:"base_url"`
	Model          string        `yaml:"model"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	Timeout        time.Duration `yaml:"timeout"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
}

// Enabled reports whether both Kling keys are present
func (k KlingConfig) Enabled() bool {
	return k.AccessKey != "" && k.SecretKey != ""
}

// Default returns the configuration used before any file or environment override
func Default() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:           DefaultPort,
			RequestTimeout: DefaultRequestTimeout,
			RateLimitBurst: DefaultRateBurst,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Chain: ChainConfig{
			AttemptTimeout: DefaultAttemptTimeout,
			LoadingPolicy:  string(animago.LoadingAbort),
		},
		HuggingFace: HuggingFaceConfig{
			BaseURL: huggingface.DefaultBaseURL,
			Models:  append([]string(nil), huggingface.DefaultModels...),
		},
		Kling: KlingConfig{
			BaseURL:        kling.DefaultBaseURL,
			Model:          kling.DefaultModel,
			Timeout:        kling.DefaultTimeout,
			AttemptTimeout: kling.DefaultAttemptTimeout,
		},
	}
}

// Load builds the configuration from defaults, the file named by ANIMAGO_CONFIG and the environment
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
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

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.Server.Port = port
	}
	if err := durationEnv(EnvAttemptTimeout, &c.Chain.AttemptTimeout); err != nil {
		return err
	}
	if err := durationEnv(EnvRequestTimeout, &c.Server.RequestTimeout); err != nil {
		return err
	}
	if err := durationEnv(EnvKlingTimeout, &c.Kling.Timeout); err != nil {
		return err
	}
	if err := durationEnv(EnvKlingAttempt, &c.Kling.AttemptTimeout); err != nil {
		return err
	}
	if v := os.Getenv(EnvRateLimitRPS); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRateLimitRPS, err)
		}
		c.Server.RateLimitRPS = rps
	}
	if v := os.Getenv(EnvRateLimitBurst); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRateLimitBurst, err)
		}
		c.Server.RateLimitBurst = burst
	}
	if v := os.Getenv(EnvHFModels); v != "" {
		c.HuggingFace.Models = splitList(v)
	}

	stringEnv(EnvEnvironment, &c.Environment)
	stringEnv(EnvLogLevel, &c.Log.Level)
	stringEnv(EnvLogFormat, &c.Log.Format)
	stringEnv(EnvLoadingPolicy, &c.Chain.LoadingPolicy)
	stringEnv(EnvHFToken, &c.HuggingFace.Token)
	stringEnv(EnvHFBaseURL, &c.HuggingFace.BaseURL)
	stringEnv(EnvKlingAccessKey, &c.Kling.AccessKey)
	stringEnv(EnvKlingSecretKey, &c.Kling.SecretKey)
	stringEnv(EnvKlingBaseURL, &c.Kling.BaseURL)
	stringEnv(EnvSentryDSN, &c.SentryDSN)
	return nil
}

// Validate rejects values the service cannot start with.
// A missing Hugging Face token is not rejected here; requests report it.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Server.Port)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.Chain.AttemptTimeout <= 0 {
		return fmt.Errorf("attempt timeout must be positive")
	}
	if c.Kling.Timeout <= 0 || c.Kling.AttemptTimeout <= 0 {
		return fmt.Errorf("kling timeouts must be positive")
	}
	if c.Server.RateLimitRPS < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	switch animago.LoadingPolicy(c.Chain.LoadingPolicy) {
	case animago.LoadingAbort, animago.LoadingContinue:
	default:
		return fmt.Errorf("invalid loading policy %q: must be abort or continue", c.Chain.LoadingPolicy)
	}
	if len(c.HuggingFace.Models) == 0 && !c.Kling.Enabled() {
		return fmt.Errorf("no providers configured")
	}
	return nil
}

// Credentials returns the secrets of the configured providers, in chain order.
// The Hugging Face token is only listed when at least one model is configured.
func (c *Config) Credentials() []animago.Credential {
	var creds []animago.Credential
	if len(c.HuggingFace.Models) > 0 {
		creds = append(creds, animago.Credential{Name: EnvHFToken, Value: c.HuggingFace.Token})
	}
	if c.Kling.Enabled() {
		creds = append(creds,
			animago.Credential{Name: EnvKlingAccessKey, Value: c.Kling.AccessKey},
			animago.Credential{Name: EnvKlingSecretKey, Value: c.Kling.SecretKey},
		)
	}
	return creds
}

func stringEnv(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func durationEnv(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
