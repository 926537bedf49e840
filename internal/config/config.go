// Package config loads connection settings from the environment.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	// AppName is the application directory name.
	AppName = "vikta"

	// EnvInstanceURL names the variable holding the Vikunja base URL.
	EnvInstanceURL = "INSTANCE_URL"

	// EnvAPIKey names the variable holding the API token.
	EnvAPIKey = "API_KEY"

	// EnvDebug enables debug logging when set to 1.
	EnvDebug = "VIKTA_DEBUG"
)

// Config holds connection settings and flags.
type Config struct {
	// InstanceURL is the Vikunja base URL, without a trailing slash.
	InstanceURL string

	// APIKey is the bearer token sent on every request.
	APIKey string

	// Debug enables debug logging.
	Debug bool
}

// FromEnv builds a Config from the environment.
// INSTANCE_URL and API_KEY must both be set.
func FromEnv() (*Config, error) {
	instance := strings.TrimSpace(os.Getenv(EnvInstanceURL))
	if instance == "" {
		return nil, errors.New("INSTANCE_URL is not set")
	}
	key := strings.TrimSpace(os.Getenv(EnvAPIKey))
	if key == "" {
		return nil, errors.New("API_KEY is not set")
	}

	return &Config{
		InstanceURL: strings.TrimSuffix(instance, "/"),
		APIKey:      key,
		Debug:       os.Getenv(EnvDebug) == "1",
	}, nil
}

// StateDir returns the directory for runtime state such as the instance
// lock. Uses the user config directory, or a local dotdir when the home
// directory can't be determined.
func StateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "." + AppName
	}
	return filepath.Join(dir, AppName)
}
