package server

import (
	"os"
	"strconv"
)

// Config holds the HTTP server configuration
type Config struct {
	Host string
	Port int

	// DatabaseName names the single database this server exposes
	DatabaseName string

	// Compression selects the document blob codec: snappy, zstd or none
	Compression string

	// EnableGraphQL mounts the /graphql endpoint
	EnableGraphQL bool

	// AdminUser/AdminPassword seed an initial user; authentication is
	// enforced only when at least one user exists
	AdminUser     string
	AdminPassword string
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:         "127.0.0.1",
		Port:         27027,
		DatabaseName: "test",
		Compression:  "snappy",
	}
}

// ConfigFromEnv builds a configuration from CLARA_* environment variables
// on top of the defaults
func ConfigFromEnv() *Config {
	config := DefaultConfig()

	if host := os.Getenv("CLARA_HOST"); host != "" {
		config.Host = host
	}
	if port := os.Getenv("CLARA_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			config.Port = n
		}
	}
	if name := os.Getenv("CLARA_DATABASE"); name != "" {
		config.DatabaseName = name
	}
	if compression := os.Getenv("CLARA_COMPRESSION"); compression != "" {
		config.Compression = compression
	}
	if os.Getenv("CLARA_GRAPHQL") == "true" {
		config.EnableGraphQL = true
	}
	config.AdminUser = os.Getenv("CLARA_ADMIN_USER")
	config.AdminPassword = os.Getenv("CLARA_ADMIN_PASSWORD")

	return config
}
