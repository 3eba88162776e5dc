package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Telegram.Token == "" {
		issues = append(issues, ValidationIssue{
			Path:    "telegram.token",
			Message: "session token is required (set DEALWATCH_BOT_TOKEN or telegram.token)",
		})
	}
	if len(cfg.Telegram.Channels) == 0 {
		issues = append(issues, ValidationIssue{
			Path:    "telegram.channels",
			Message: "at least one channel must be listed",
		})
	}

	if cfg.Monitor.ReconnectAttempts < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "monitor.reconnectAttempts",
			Message: fmt.Sprintf("must be >= 1, got %d", cfg.Monitor.ReconnectAttempts),
		})
	}

	validStores := []string{"sqlite", "console"}
	if cfg.Sink.Store != "" && !slices.Contains(validStores, cfg.Sink.Store) {
		issues = append(issues, ValidationIssue{
			Path:    "sink.store",
			Message: fmt.Sprintf("must be one of %v, got %q", validStores, cfg.Sink.Store),
		})
	}
	if cfg.Sink.QueueSize < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "sink.queueSize",
			Message: fmt.Sprintf("must be >= 1, got %d", cfg.Sink.QueueSize),
		})
	}

	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Gateway.Port),
		})
	}
	validBinds := []string{"loopback", "lan"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Gateway.Bind),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}
	validStyles := []string{"pretty", "json"}
	if cfg.Logging.Style != "" && !slices.Contains(validStyles, cfg.Logging.Style) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.style",
			Message: fmt.Sprintf("must be one of %v, got %q", validStyles, cfg.Logging.Style),
		})
	}

	return issues
}
