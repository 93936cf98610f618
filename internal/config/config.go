package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SketchMode selects the generation strategy for sketch input.
type SketchMode string

const (
	// SketchModeDirect sends the raster straight to the edit adapter.
	SketchModeDirect SketchMode = "direct"
	// SketchModeDescribe derives a text description first, then generates
	// from that description with the selected text provider.
	SketchModeDescribe SketchMode = "describe"
)

// Config is the application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" json:"server"`
	Providers  ProvidersConfig  `yaml:"providers" json:"providers"`
	Generation GenerationConfig `yaml:"generation" json:"generation"`
	Security   SecurityConfig   `yaml:"security" json:"security"`
	HTTPClient HTTPClientConfig `yaml:"http_client" json:"http_client"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host" json:"host"`
	Port         int           `yaml:"port" json:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
}

// ProvidersConfig groups per-vendor credentials and fixed parameters. The
// orchestrator treats these as opaque beyond presence checks.
type ProvidersConfig struct {
	OpenAI    OpenAIConfig    `yaml:"openai" json:"openai"`
	Replicate ReplicateConfig `yaml:"replicate" json:"replicate"`
	Fal       FalConfig       `yaml:"fal" json:"fal"`
	GptImage  GptImageConfig  `yaml:"gptimage" json:"gptimage"`
	Vision    VisionConfig    `yaml:"vision" json:"vision"`
}

// OpenAIConfig configures the synchronous DALL-E style image endpoint.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key" json:"api_key"`
	BaseURL string `yaml:"base_url" json:"base_url"`
	Model   string `yaml:"model" json:"model"`
	Size    string `yaml:"size" json:"size"`
	Quality string `yaml:"quality" json:"quality"`
}

// ReplicateConfig configures the blocking prediction endpoint.
type ReplicateConfig struct {
	APIToken    string `yaml:"api_token" json:"api_token"`
	BaseURL     string `yaml:"base_url" json:"base_url"`
	Model       string `yaml:"model" json:"model"`
	WaitSeconds int    `yaml:"wait_seconds" json:"wait_seconds"`
}

// FalConfig configures the queue-based endpoint driven by the polling engine.
type FalConfig struct {
	APIKey       string        `yaml:"api_key" json:"api_key"`
	BaseURL      string        `yaml:"base_url" json:"base_url"`
	Model        string        `yaml:"model" json:"model"`
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
	MaxPolls     int           `yaml:"max_polls" json:"max_polls"`
}

// GptImageConfig configures the multipart image-edit endpoint. The API key
// falls back to the OpenAI key when unset.
type GptImageConfig struct {
	APIKey  string `yaml:"api_key" json:"api_key"`
	BaseURL string `yaml:"base_url" json:"base_url"`
	Model   string `yaml:"model" json:"model"`
	Size    string `yaml:"size" json:"size"`
}

// VisionConfig configures the chat-completion endpoint used by the sketch
// interpreter.
type VisionConfig struct {
	APIKey    string `yaml:"api_key" json:"api_key"`
	BaseURL   string `yaml:"base_url" json:"base_url"`
	Model     string `yaml:"model" json:"model"`
	MaxTokens int    `yaml:"max_tokens" json:"max_tokens"`
}

// GenerationConfig holds orchestrator-level settings.
type GenerationConfig struct {
	DefaultProvider string     `yaml:"default_provider" json:"default_provider"`
	SketchMode      SketchMode `yaml:"sketch_mode" json:"sketch_mode"`
	CameraEnabled   bool       `yaml:"camera_enabled" json:"camera_enabled"`
}

// SecurityConfig holds auth and rate-limit settings.
type SecurityConfig struct {
	BearerToken      string        `yaml:"bearer_token" json:"bearer_token"`
	TLSSkipVerify    bool          `yaml:"tls_skip_verify" json:"tls_skip_verify"`
	RateLimitEnabled bool          `yaml:"rate_limit_enabled" json:"rate_limit_enabled"`
	RateLimitRPS     int           `yaml:"rate_limit_rps" json:"rate_limit_rps"`
	RequestTimeout   time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// HTTPClientConfig tunes the outbound resty clients.
type HTTPClientConfig struct {
	Timeout             time.Duration `yaml:"timeout" json:"timeout"`
	MaxIdleConns        int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host" json:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host" json:"max_conns_per_host"`
	RetryCount          int           `yaml:"retry_count" json:"retry_count"`
	RetryWaitTime       time.Duration `yaml:"retry_wait_time" json:"retry_wait_time"`
	RetryMaxWaitTime    time.Duration `yaml:"retry_max_wait_time" json:"retry_max_wait_time"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level            string `yaml:"level" json:"level"`
	Format           string `yaml:"format" json:"format"`
	Output           string `yaml:"output" json:"output"`
	EnableRequestLog bool   `yaml:"enable_request_log" json:"enable_request_log"`
	MaskSensitive    bool   `yaml:"mask_sensitive" json:"mask_sensitive"`
}

// AppConfig is the loaded global configuration.
var AppConfig *Config

// Load loads configuration with precedence: config file > environment > defaults.
func Load() (*Config, error) {
	config := getDefaultConfig()

	_ = godotenv.Load()

	if err := loadConfigFile(config); err != nil {
		// A missing config file is not fatal; env and defaults still apply.
		fmt.Printf("Warning: Failed to load config file: %v\n", err)
	}

	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	AppConfig = config

	return config, nil
}

// getDefaultConfig returns the built-in defaults.
func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Providers: ProvidersConfig{
			OpenAI: OpenAIConfig{
				BaseURL: "https://api.openai.com/v1",
				Model:   "dall-e-3",
				Size:    "1024x1024",
				Quality: "hd",
			},
			Replicate: ReplicateConfig{
				BaseURL:     "https://api.replicate.com/v1",
				Model:       "black-forest-labs/flux-1.1-pro",
				WaitSeconds: 60,
			},
			Fal: FalConfig{
				BaseURL:      "https://queue.fal.run",
				Model:        "fal-ai/flux-pro",
				PollInterval: 15 * time.Second,
				MaxPolls:     10,
			},
			GptImage: GptImageConfig{
				BaseURL: "https://api.openai.com/v1",
				Model:   "gpt-image-1",
				Size:    "1024x1024",
			},
			Vision: VisionConfig{
				BaseURL:   "https://api.openai.com/v1",
				Model:     "gpt-4o",
				MaxTokens: 300,
			},
		},
		Generation: GenerationConfig{
			DefaultProvider: "openai",
			SketchMode:      SketchModeDescribe,
			CameraEnabled:   true,
		},
		Security: SecurityConfig{
			TLSSkipVerify:    false,
			RateLimitEnabled: false,
			RateLimitRPS:     0,
			RequestTimeout:   30 * time.Second,
		},
		HTTPClient: HTTPClientConfig{
			Timeout:             3 * time.Minute,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			MaxConnsPerHost:     50,
			RetryCount:          3,
			RetryWaitTime:       1 * time.Second,
			RetryMaxWaitTime:    10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:            "info",
			Format:           "json",
			Output:           "stdout",
			EnableRequestLog: true,
			MaskSensitive:    true,
		},
	}
}

// loadConfigFile locates and loads an optional config file.
func loadConfigFile(config *Config) error {
	configPaths := []string{
		"config.yaml",
		"config.yml",
		"config.json",
		"./configs/config.yaml",
		"./configs/config.yml",
		"./configs/config.json",
	}

	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			return loadFromFile(path, config)
		}
	}

	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath, config)
	}

	return fmt.Errorf("no config file found")
}

// loadFromFile parses a single yaml or json config file.
func loadFromFile(path string, config *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	case ".json":
		return json.Unmarshal(data, config)
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}
}

// overrideWithEnv applies environment variable overrides.
func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	// Provider credentials and models.
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.Providers.OpenAI.APIKey = key
	}
	if model := os.Getenv("OPENAI_IMAGE_MODEL"); model != "" {
		config.Providers.OpenAI.Model = model
	}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		config.Providers.OpenAI.BaseURL = base
	}
	if token := os.Getenv("REPLICATE_API_TOKEN"); token != "" {
		config.Providers.Replicate.APIToken = token
	}
	if model := os.Getenv("REPLICATE_MODEL"); model != "" {
		config.Providers.Replicate.Model = model
	}
	if key := os.Getenv("FAL_API_KEY"); key != "" {
		config.Providers.Fal.APIKey = key
	}
	if model := os.Getenv("FAL_MODEL"); model != "" {
		config.Providers.Fal.Model = model
	}
	if interval := os.Getenv("FAL_POLL_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.Providers.Fal.PollInterval = d
		}
	}
	if polls := os.Getenv("FAL_MAX_POLLS"); polls != "" {
		if n, err := strconv.Atoi(polls); err == nil {
			config.Providers.Fal.MaxPolls = n
		}
	}
	if key := os.Getenv("GPTIMAGE_API_KEY"); key != "" {
		config.Providers.GptImage.APIKey = key
	}
	if key := os.Getenv("VISION_API_KEY"); key != "" {
		config.Providers.Vision.APIKey = key
	}
	if model := os.Getenv("VISION_MODEL"); model != "" {
		config.Providers.Vision.Model = model
	}

	// Generation behavior.
	if provider := os.Getenv("DEFAULT_PROVIDER"); provider != "" {
		config.Generation.DefaultProvider = provider
	}
	if mode := os.Getenv("SKETCH_MODE"); mode != "" {
		config.Generation.SketchMode = SketchMode(mode)
	}
	if enabled := os.Getenv("CAMERA_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Generation.CameraEnabled = b
		}
	}

	// Security.
	if token := os.Getenv("BEARER_TOKEN"); token != "" {
		config.Security.BearerToken = token
	}
	if skipVerify := os.Getenv("TLS_SKIP_VERIFY"); skipVerify != "" {
		if skip, err := strconv.ParseBool(skipVerify); err == nil {
			config.Security.TLSSkipVerify = skip
		}
	}
	if rateLimitEnabled := os.Getenv("RATE_LIMIT_ENABLED"); rateLimitEnabled != "" {
		if enabled, err := strconv.ParseBool(rateLimitEnabled); err == nil {
			config.Security.RateLimitEnabled = enabled
		}
	}
	if rateLimitRPS := os.Getenv("RATE_LIMIT_RPS"); rateLimitRPS != "" {
		if rps, err := strconv.Atoi(rateLimitRPS); err == nil {
			config.Security.RateLimitRPS = rps
		}
	}

	// Logging.
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
}

// fallback keys: the edit endpoint shares OpenAI credentials unless
// configured separately.
func (c *Config) applyKeyFallbacks() {
	if c.Providers.GptImage.APIKey == "" {
		c.Providers.GptImage.APIKey = c.Providers.OpenAI.APIKey
	}
	if c.Providers.Vision.APIKey == "" {
		c.Providers.Vision.APIKey = c.Providers.OpenAI.APIKey
	}
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	c.applyKeyFallbacks()

	var errs []string

	if c.Security.BearerToken == "" {
		errs = append(errs, "BEARER_TOKEN is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "SERVER_PORT must be between 1 and 65535")
	}

	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be positive")
	}
	if c.HTTPClient.Timeout < 0 {
		errs = append(errs, "HTTP_CLIENT_TIMEOUT must be positive")
	}

	switch c.Generation.SketchMode {
	case SketchModeDirect, SketchModeDescribe:
	default:
		errs = append(errs, fmt.Sprintf("SKETCH_MODE must be %q or %q", SketchModeDirect, SketchModeDescribe))
	}

	if c.Generation.DefaultProvider == "" {
		errs = append(errs, "DEFAULT_PROVIDER is required")
	}

	if c.Providers.Fal.MaxPolls <= 0 {
		errs = append(errs, "FAL_MAX_POLLS must be positive")
	}
	if c.Providers.Fal.PollInterval <= 0 {
		errs = append(errs, "FAL_POLL_INTERVAL must be positive")
	}
	if c.Providers.Replicate.WaitSeconds <= 0 {
		errs = append(errs, "replicate wait_seconds must be positive")
	}

	if c.Security.RateLimitRPS <= 0 {
		c.Security.RateLimitEnabled = false
	}
	if c.Security.RateLimitEnabled && c.Security.RateLimitRPS <= 0 {
		errs = append(errs, "RATE_LIMIT_RPS must be positive when rate limiting is enabled")
	}
	if c.Security.RateLimitRPS > 10000 {
		errs = append(errs, "RATE_LIMIT_RPS should not exceed 10000 for performance reasons")
	}

	validLevels := []string{"debug", "info", "warn", "error", "dpanic", "panic", "fatal"}
	if !contains(validLevels, c.Logging.Level) {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLevels, ", ")))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return nil
}

// GetAddress returns the server listen address.
func (c *Config) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// GetConfig returns the loaded configuration.
func GetConfig() *Config {
	if AppConfig == nil {
		panic("Config not loaded. Call Load() first.")
	}
	return AppConfig
}
