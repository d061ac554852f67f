package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"lumi/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Workspace WorkspaceConfig
	Server    ServerConfig
	Admin     AdminConfig
	Dashboard DashboardConfig
}

// WorkspaceConfig holds the scanned workspace settings
type WorkspaceConfig struct {
	Dir             string
	ScanConcurrency int
	CategoryLimit   int
	Watch           bool
	WatchDebounce   time.Duration
}

// ServerConfig holds backend + dashboard web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// AdminConfig holds admin server settings
type AdminConfig struct {
	Port string
}

// DashboardConfig holds the rule fetcher settings
type DashboardConfig struct {
	BackendURL   string
	FetchTimeout time.Duration
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	workspaceConfig, err := loadWorkspaceConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load workspace configuration")
	}
	config.Workspace = *workspaceConfig

	config.Server = *loadServerConfig()
	config.Admin = AdminConfig{Port: getEnvOrDefault("ADMIN_PORT", "3001")}

	dashboardConfig, err := loadDashboardConfig(config.Server.Port)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load dashboard configuration")
	}
	config.Dashboard = *dashboardConfig

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadWorkspaceConfig() (*WorkspaceConfig, error) {
	dir := os.Getenv("LUMI_WORKSPACE")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.ConfigInvalid("LUMI_WORKSPACE is required when the home directory is unknown")
		}
		dir = filepath.Join(home, ".openclaw", "workspace")
	}

	concurrency, err := getEnvIntOrDefault("SCAN_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	limit, err := getEnvIntOrDefault("CATEGORY_LIMIT", 10)
	if err != nil {
		return nil, err
	}
	watch, err := getEnvBoolOrDefault("WATCH_WORKSPACE", true)
	if err != nil {
		return nil, err
	}
	debounce, err := getEnvDurationOrDefault("WATCH_DEBOUNCE", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}

	return &WorkspaceConfig{
		Dir:             dir,
		ScanConcurrency: concurrency,
		CategoryLimit:   limit,
		Watch:           watch,
		WatchDebounce:   debounce,
	}, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "5000"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func loadDashboardConfig(serverPort string) (*DashboardConfig, error) {
	backend := getEnvOrDefault("BACKEND_URL", "http://localhost:"+serverPort)
	parsed, err := url.Parse(backend)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.ConfigInvalid("BACKEND_URL must be an absolute URL")
	}

	timeout, err := getEnvDurationOrDefault("FETCH_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	return &DashboardConfig{
		BackendURL:   backend,
		FetchTimeout: timeout,
	}, nil
}

func validateConfig(config *Config) error {
	if config.Workspace.Dir == "" {
		return errors.ConfigInvalid("workspace directory is required")
	}
	if config.Workspace.ScanConcurrency < 1 {
		return errors.ConfigInvalid("SCAN_CONCURRENCY must be at least 1")
	}
	if config.Workspace.CategoryLimit < 1 {
		return errors.ConfigInvalid("CATEGORY_LIMIT must be at least 1")
	}
	if _, err := strconv.Atoi(config.Server.Port); err != nil {
		return errors.ConfigInvalid("PORT must be numeric")
	}
	if _, err := strconv.Atoi(config.Admin.Port); err != nil {
		return errors.ConfigInvalid("ADMIN_PORT must be numeric")
	}
	if config.Dashboard.FetchTimeout <= 0 {
		return errors.ConfigInvalid("FETCH_TIMEOUT must be positive")
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

// The typed helpers fall back to the default only when the variable is unset;
// a value that does not parse is a configuration error.
func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be an integer, got %q", key, value))
	}
	return intValue, nil
}

func getEnvBoolOrDefault(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return false, errors.ConfigInvalid(fmt.Sprintf("%s must be a boolean, got %q", key, value))
	}
	return boolValue, nil
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be a duration such as 10s, got %q", key, value))
	}
	return duration, nil
}
