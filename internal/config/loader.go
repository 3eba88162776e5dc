package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so the session token and webhook URL can be stored
// as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Telegram.Token = expandEnvVars(cfg.Telegram.Token)
	cfg.Alerts.Webhook = expandEnvVars(cfg.Alerts.Webhook)
}

// Load reads the config file, applies defaults and environment overrides, and
// returns a merged Config. A missing file produces defaults only.
func Load(path string) (Config, error) {
	cfg := Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyDefaults(&cfg)
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// ApplyDefaults fills zero-value fields with sensible defaults.
func ApplyDefaults(cfg *Config) {
	if len(cfg.Telegram.Keywords) == 0 {
		cfg.Telegram.Keywords = []string{"deal", "offer", "discount", "coupon"}
	}
	if cfg.Monitor.WatchInterval == 0 {
		cfg.Monitor.WatchInterval = Duration(10 * time.Second)
	}
	if cfg.Monitor.ConnectTimeout == 0 {
		cfg.Monitor.ConnectTimeout = Duration(15 * time.Second)
	}
	if cfg.Monitor.ReconnectAttempts == 0 {
		cfg.Monitor.ReconnectAttempts = 3
	}
	if cfg.Monitor.ReconnectBase == 0 {
		cfg.Monitor.ReconnectBase = Duration(time.Second)
	}
	if cfg.Monitor.FloodWaitCap == 0 {
		cfg.Monitor.FloodWaitCap = Duration(30 * time.Second)
	}
	if cfg.Sink.Store == "" {
		cfg.Sink.Store = "sqlite"
	}
	if cfg.Sink.QueueSize == 0 {
		cfg.Sink.QueueSize = 256
	}
	if cfg.Alerts.MinInterval == 0 {
		cfg.Alerts.MinInterval = Duration(30 * time.Second)
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 8765
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = "loopback"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Style == "" {
		cfg.Logging.Style = "pretty"
	}
}

// applyEnvOverrides reads DEALWATCH_* environment variables and overrides
// config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DEALWATCH_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("DEALWATCH_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("DEALWATCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("DEALWATCH_ALERT_WEBHOOK"); v != "" {
		cfg.Alerts.Webhook = v
	}
}
