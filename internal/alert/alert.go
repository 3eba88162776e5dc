// Package alert pushes operational events to an external webhook.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/shankarsamidala/deals/internal/logging"
	"github.com/shankarsamidala/deals/internal/transport"
)

// Event is one operational alert. Kind is a stable machine-readable tag;
// Message is for humans.
type Event struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier POSTs events as JSON to a webhook URL. Delivery is best-effort:
// failures are logged, rate-limited excess is dropped, and neither ever
// propagates to the caller's control flow.
type Notifier struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	log     *logging.Logger
}

// NewNotifier creates a notifier for the given webhook URL. An empty URL
// disables delivery entirely. minInterval is the floor between consecutive
// deliveries; bursts beyond one event are dropped.
func NewNotifier(url string, minInterval time.Duration, log *logging.Logger) *Notifier {
	if minInterval <= 0 {
		minInterval = 30 * time.Second
	}
	return &Notifier{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		log:     log.Sub("alert"),
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n.url != ""
}

// Send delivers the event if the notifier is enabled and the rate limit
// allows. The timestamp is filled in when the caller left it zero.
func (n *Notifier) Send(ctx context.Context, ev Event) {
	if !n.Enabled() {
		return
	}
	if !n.limiter.Allow() {
		n.log.Debug().Str("kind", ev.Kind).Msg("alert suppressed by rate limit")
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	body, err := json.Marshal(ev)
	if err != nil {
		n.log.Warn().Err(err).Msg("alert encode failed")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.log.Warn().Err(err).Msg("alert request build failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Warn().Err(err).Str("kind", ev.Kind).Msg("alert delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.log.Warn().
			Int("status", resp.StatusCode).
			Str("kind", ev.Kind).
			Msg("webhook rejected alert")
		return
	}
	n.log.Debug().Str("kind", ev.Kind).Msg("alert delivered")
}

// Kinds used by the engine lifecycle.
const (
	KindConnectionLost = "connection.lost"
	KindAuthExpired    = "auth.expired"
	KindStarted        = "monitor.started"
	KindStopped        = "monitor.stopped"
)

// ForError builds the alert event for a terminal engine error. Auth expiry
// gets its own kind so the receiving hook can distinguish "refresh the
// credential" from "the network died".
func ForError(err error) Event {
	kind := KindConnectionLost
	if errors.Is(err, transport.ErrAuthExpired) {
		kind = KindAuthExpired
	}
	return Event{
		Kind:    kind,
		Message: fmt.Sprintf("monitoring stopped: %v", err),
		At:      time.Now(),
	}
}
