// Package config loads, validates, and resolves paths for dealwatch
// configuration.
package config

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Message
}
