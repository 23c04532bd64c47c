package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Redis configuration. Empty disables the cross-process app lock.
	RedisURL string

	// Kubernetes configuration
	K8sInCluster      bool
	K8sKubeConfigPath string

	// Waiter configuration
	PollIntervalSeconds   int
	CleanupTimeoutSeconds int
	DeleteTimeoutSeconds  int

	// Logging configuration
	LogLevel  string
	LogFormat string

	// Application metadata
	AppName    string
	AppVersion string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		ServerHost:            getEnv("SERVER_HOST", "0.0.0.0"),
		RedisURL:              getEnv("REDIS_URL", ""),
		K8sInCluster:          getEnvBool("K8S_IN_CLUSTER", false),
		K8sKubeConfigPath:     getEnv("K8S_KUBECONFIG_PATH", ""),
		PollIntervalSeconds:   getEnvInt("POLL_INTERVAL_SECONDS", 1),
		CleanupTimeoutSeconds: getEnvInt("CLEANUP_TIMEOUT_SECONDS", 300),
		DeleteTimeoutSeconds:  getEnvInt("DELETE_TIMEOUT_SECONDS", 120),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "json"),
		AppName:               "kubernetes-shell",
		AppVersion:            getEnv("APP_VERSION", "dev"),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	// In-cluster auth and an explicit kubeconfig are mutually exclusive
	if c.K8sInCluster && c.K8sKubeConfigPath != "" {
		return fmt.Errorf("K8S_IN_CLUSTER and K8S_KUBECONFIG_PATH are mutually exclusive")
	}

	if c.PollIntervalSeconds < 1 {
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be at least 1, got %d", c.PollIntervalSeconds)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", c.LogLevel)
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return c.ServerHost + ":" + c.ServerPort
}

// PollInterval returns the waiter poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// CleanupTimeout returns how long sandbox cleanup waits for namespace
// termination.
func (c *Config) CleanupTimeout() time.Duration {
	return time.Duration(c.CleanupTimeoutSeconds) * time.Second
}

// DeleteTimeout returns how long instance deletion waits for the
// deployment's pods to disappear.
func (c *Config) DeleteTimeout() time.Duration {
	return time.Duration(c.DeleteTimeoutSeconds) * time.Second
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return defaultVal
		}
		return b
	}
	return defaultVal
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return defaultVal
		}
		return i
	}
	return defaultVal
}
