// Package monitor implements the resilient channel-monitoring engine:
// connection supervision, channel discovery, per-channel event dispatch, and
// the message-to-link pipeline.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shankarsamidala/deals/internal/domain"
	"github.com/shankarsamidala/deals/internal/logging"
	"github.com/shankarsamidala/deals/internal/sink"
	"github.com/shankarsamidala/deals/internal/transport"
)

// Health is a read-only snapshot of the engine, safe to build concurrently
// with normal operation.
type Health struct {
	Running             bool              `json:"running"`
	Conn                domain.ConnStatus `json:"conn"`
	Channels            int               `json:"channels"`
	Monitorable         int               `json:"monitorable"`
	ActiveSubscriptions int               `json:"activeSubscriptions"`
	MessagesSeen        int64             `json:"messagesSeen"`
	LinksFound          int64             `json:"linksFound"`
	StartedAt           time.Time         `json:"startedAt,omitempty"`
}

// Engine composes the supervisor, registry, and dispatcher into the
// start/stop/health surface the rest of the process talks to.
type Engine struct {
	sup  *Supervisor
	reg  *Registry
	disp *Dispatcher
	log  *logging.Logger

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	startedAt time.Time
	wg        sync.WaitGroup
}

// New wires an engine from a transport provider, a credential, and the sink
// that receives extracted links.
func New(provider transport.Provider, cred transport.Credential, opts Options, out sink.Sink, log *logging.Logger) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		sup:  NewSupervisor(provider, cred, opts, log),
		reg:  NewRegistry(opts.Keywords, log),
		disp: NewDispatcher(out, log),
		log:  log.Sub("engine"),
	}
}

// Start connects, discovers channels, subscribes, and launches the watchdog.
// It fails fast, leaving nothing running, when connect or discovery fail, or
// when not a single channel could be subscribed. Partial subscription success
// is tolerated and logged.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return errors.New("monitor: engine already started")
	}

	if err := e.sup.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	sess := e.sup.Session()

	if _, err := e.reg.Discover(ctx, sess, nil); err != nil {
		e.sup.Disconnect()
		return fmt.Errorf("discover: %w", err)
	}

	_, err := e.disp.SubscribeAll(sess, e.reg.Monitorable())
	switch {
	case errors.Is(err, ErrAllSubscriptionsFailed):
		e.sup.Disconnect()
		return err
	case err != nil:
		// Partial failure: keep going with what we have.
		e.log.Warn().Err(err).Msg("continuing with partial subscriptions")
	}

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.sup.Watch(watchCtx, e.resubscribe)
	}()

	e.running = true
	e.startedAt = time.Now()
	e.log.Info().
		Int("channels", e.reg.Count()).
		Int("subscriptions", e.disp.ActiveSubscriptions()).
		Msg("monitoring started")
	return nil
}

// Stop unwinds in reverse order: stop accepting events, stop the watchdog,
// drop the session. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.running = false

	e.disp.UnsubscribeAll(e.sup.Session())
	e.cancel()
	e.wg.Wait()
	e.sup.Disconnect()

	e.log.Info().
		Int64("messagesSeen", e.disp.MessagesSeen()).
		Int64("linksFound", e.disp.LinksFound()).
		Msg("monitoring stopped")
}

// Rediscover re-runs channel discovery on the live session and rebinds
// listeners to the new set. Exposed as an operation; the engine never
// refreshes the channel set on its own.
func (e *Engine) Rediscover(ctx context.Context) error {
	sess := e.sup.Session()
	if sess == nil {
		return ErrNotStarted
	}
	if _, err := e.reg.Discover(ctx, sess, nil); err != nil {
		return err
	}
	return e.resubscribe(ctx)
}

// Channels returns the registry's current channel set.
func (e *Engine) Channels() []domain.ChannelHandle {
	return e.reg.Channels()
}

// Fatal delivers the terminal engine error (reconnect exhaustion, auth
// expiry discovered mid-flight). At most one value is ever sent.
func (e *Engine) Fatal() <-chan error {
	return e.sup.Fatal()
}

// Health returns a non-blocking snapshot for the health surface.
func (e *Engine) Health() Health {
	e.mu.Lock()
	running := e.running
	startedAt := e.startedAt
	e.mu.Unlock()

	return Health{
		Running:             running,
		Conn:                e.sup.Status(),
		Channels:            e.reg.Count(),
		Monitorable:         len(e.reg.Monitorable()),
		ActiveSubscriptions: e.disp.ActiveSubscriptions(),
		MessagesSeen:        e.disp.MessagesSeen(),
		LinksFound:          e.disp.LinksFound(),
		StartedAt:           startedAt,
	}
}

// resubscribe rebuilds all channel bindings on the current session. Called by
// the supervisor after every successful reconnect.
func (e *Engine) resubscribe(_ context.Context) error {
	sess := e.sup.Session()
	if sess == nil {
		return ErrNotStarted
	}
	_, err := e.disp.SubscribeAll(sess, e.reg.Monitorable())
	return err
}
