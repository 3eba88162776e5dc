package monitor

import "time"

// Options tune the supervisor's timing. Zero values fall back to defaults.
type Options struct {
	// WatchInterval is the watchdog's liveness poll period.
	WatchInterval time.Duration
	// ConnectTimeout bounds each connect/reconnect attempt. Exceeding it
	// counts as a failed attempt, not a separate error class.
	ConnectTimeout time.Duration
	// ReconnectAttempts is the retry budget per loss event.
	ReconnectAttempts int
	// ReconnectBase is the backoff base delay; it doubles per attempt.
	ReconnectBase time.Duration
	// FloodWaitCap caps how long a platform-mandated cooldown is honored.
	FloodWaitCap time.Duration
	// Keywords select channels during discovery (case-insensitive substring
	// match against the channel name).
	Keywords []string
}

func (o Options) withDefaults() Options {
	if o.WatchInterval <= 0 {
		o.WatchInterval = 10 * time.Second
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 15 * time.Second
	}
	if o.ReconnectAttempts <= 0 {
		o.ReconnectAttempts = 3
	}
	if o.ReconnectBase <= 0 {
		o.ReconnectBase = time.Second
	}
	if o.FloodWaitCap <= 0 {
		o.FloodWaitCap = 30 * time.Second
	}
	return o
}
