package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"datapilot/internal/errors"
)

// Backend modes
const (
	BackendSimulated = "simulated"
	BackendHTTP      = "http"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig
	Backend    BackendConfig
	Simulation SimulationConfig
	Session    SessionConfig
	DevBackend DevBackendConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// BackendConfig selects and addresses the analytics backend
type BackendConfig struct {
	Mode    string
	BaseURL string
	Token   string
}

// SimulationConfig holds the artificial delays of the simulated backend
type SimulationConfig struct {
	UploadDelay  time.Duration
	CleanDelay   time.Duration
	TaskDelay    time.Duration
	InsightDelay time.Duration
}

// SessionConfig holds wizard session settings
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
	CookieName    string
	Secure        bool
}

// DevBackendConfig holds settings for the development analytics backend
type DevBackendConfig struct {
	Port        string
	DatabaseURL string
	OpenAIKey   string
	OpenAIModel string
	MaxTokens   int
	Temperature float64
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server:     *loadServerConfig(),
		Backend:    *loadBackendConfig(),
		Simulation: *loadSimulationConfig(),
		Session:    *loadSessionConfig(),
		DevBackend: *loadDevBackendConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadBackendConfig() *BackendConfig {
	return &BackendConfig{
		Mode:    strings.ToLower(getEnvOrDefault("BACKEND_MODE", BackendSimulated)),
		BaseURL: strings.TrimRight(getEnvOrDefault("BACKEND_URL", "http://localhost:8000"), "/"),
		Token:   os.Getenv("BACKEND_TOKEN"),
	}
}

func loadSimulationConfig() *SimulationConfig {
	return &SimulationConfig{
		UploadDelay:  getEnvDurationOrDefault("SIM_UPLOAD_DELAY", 2*time.Second),
		CleanDelay:   getEnvDurationOrDefault("SIM_CLEAN_DELAY", 1500*time.Millisecond),
		TaskDelay:    getEnvDurationOrDefault("SIM_TASK_DELAY", 2*time.Second),
		InsightDelay: getEnvDurationOrDefault("SIM_INSIGHT_DELAY", 1500*time.Millisecond),
	}
}

func loadSessionConfig() *SessionConfig {
	return &SessionConfig{
		TTL:           getEnvDurationOrDefault("SESSION_TTL", 2*time.Hour),
		SweepInterval: getEnvDurationOrDefault("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		CookieName:    getEnvOrDefault("SESSION_COOKIE", "datapilot_session"),
		Secure:        getEnvBoolOrDefault("SESSION_COOKIE_SECURE", false),
	}
}

func loadDevBackendConfig() *DevBackendConfig {
	return &DevBackendConfig{
		Port:        getEnvOrDefault("DEV_BACKEND_PORT", "8000"),
		DatabaseURL: getEnvOrDefault("DATABASE_URL", "sqlite://file:datapilot?mode=memory&cache=shared"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel: getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
		MaxTokens:   getEnvIntOrDefault("MAX_TOKENS", 1200),
		Temperature: getEnvFloatOrDefault("TEMPERATURE", 0.3),
	}
}

func validateConfig(config *Config) error {
	switch config.Backend.Mode {
	case BackendSimulated:
	case BackendHTTP:
		u, err := url.Parse(config.Backend.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.ConfigInvalid("BACKEND_URL must be an absolute http(s) URL when BACKEND_MODE=http")
		}
	default:
		return errors.ConfigInvalid("BACKEND_MODE must be \"simulated\" or \"http\"")
	}
	if config.Session.TTL <= 0 {
		return errors.ConfigInvalid("SESSION_TTL must be positive")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
