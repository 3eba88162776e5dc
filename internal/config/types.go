package config

// Config is the root configuration for dealwatch.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Monitor  MonitorConfig  `yaml:"monitor,omitempty"`
	Sink     SinkConfig     `yaml:"sink,omitempty"`
	Alerts   AlertsConfig   `yaml:"alerts,omitempty"`
	Gateway  GatewayConfig  `yaml:"gateway,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
}

// TelegramConfig describes the transport credential and what to watch.
type TelegramConfig struct {
	// Token is the pre-provisioned session credential. Supports ${ENV_VAR}
	// references so the secret can stay out of the file.
	Token string `yaml:"token"`
	// Channels lists the chats visible to the session, by @username or
	// numeric ID. Discovery filters these against Keywords.
	Channels []string `yaml:"channels"`
	// Keywords select which visible channels are monitored (case-insensitive
	// substring match against the channel name).
	Keywords []string `yaml:"keywords,omitempty"`
}

// MonitorConfig tunes the connection supervisor and watchdog.
type MonitorConfig struct {
	WatchInterval     Duration `yaml:"watchInterval,omitempty"`     // liveness poll period
	ConnectTimeout    Duration `yaml:"connectTimeout,omitempty"`    // per connect/reconnect attempt
	ReconnectAttempts int      `yaml:"reconnectAttempts,omitempty"` // before giving up
	ReconnectBase     Duration `yaml:"reconnectBase,omitempty"`     // backoff base, doubles per attempt
	FloodWaitCap      Duration `yaml:"floodWaitCap,omitempty"`      // ceiling on platform-mandated waits
}

// SinkConfig controls where extracted links go and how the handoff is bounded.
type SinkConfig struct {
	Store     string `yaml:"store,omitempty"`     // "sqlite" | "console"
	QueueSize int    `yaml:"queueSize,omitempty"` // bounded handoff between handler and sink
}

// AlertsConfig configures webhook incident notifications.
type AlertsConfig struct {
	Webhook     string   `yaml:"webhook,omitempty"` // supports ${ENV_VAR}
	MinInterval Duration `yaml:"minInterval,omitempty"`
}

// GatewayConfig controls the health/stats HTTP surface.
type GatewayConfig struct {
	Port int    `yaml:"port,omitempty"`
	Bind string `yaml:"bind,omitempty"` // "loopback" | "lan"
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	Style string `yaml:"style,omitempty"` // "pretty" | "json"
}
