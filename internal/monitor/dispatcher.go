package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/shankarsamidala/deals/internal/domain"
	"github.com/shankarsamidala/deals/internal/extract"
	"github.com/shankarsamidala/deals/internal/logging"
	"github.com/shankarsamidala/deals/internal/sink"
	"github.com/shankarsamidala/deals/internal/transport"
)

// excerptLen bounds how much message text travels with a record.
const excerptLen = 100

// ackTimeout bounds the fire-and-forget acknowledgment call.
const ackTimeout = 5 * time.Second

// Dispatcher binds one event handler per monitored channel and routes inbound
// messages through extraction to the sink.
//
// The subscription table is rebuilt wholesale on every reconnect, never
// patched incrementally, so a partial pre-disconnect state can't survive
// into the new session.
type Dispatcher struct {
	out sink.Sink
	log *logging.Logger

	mu   sync.Mutex
	subs map[int64]domain.ChannelHandle

	accepting    atomic.Bool
	messagesSeen atomic.Int64
	linksFound   atomic.Int64
}

// NewDispatcher creates a dispatcher emitting to out.
func NewDispatcher(out sink.Sink, log *logging.Logger) *Dispatcher {
	return &Dispatcher{
		out:  out,
		log:  log.Sub("dispatch"),
		subs: make(map[int64]domain.ChannelHandle),
	}
}

// SubscribeAll binds a dedicated handler for each channel. Partial failure
// does not abort the rest: the return value reports how many bindings
// succeeded, with a *PartialSubscriptionError when some failed, or
// ErrAllSubscriptionsFailed when none could be bound.
func (d *Dispatcher) SubscribeAll(sess transport.Session, channels []domain.ChannelHandle) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Rebuild from scratch.
	d.subs = make(map[int64]domain.ChannelHandle, len(channels))
	d.accepting.Store(true)

	failed := 0
	for _, ch := range channels {
		if err := sess.On(ch, d.handlerFor(sess, ch)); err != nil {
			failed++
			d.log.Error().Err(err).Str("channel", ch.Label()).Msg("failed to bind channel listener")
			continue
		}
		d.subs[ch.ID] = ch
		d.log.Debug().Str("channel", ch.Label()).Msg("listener bound")
	}

	bound := len(d.subs)
	d.log.Info().Int("bound", bound).Int("failed", failed).Msg("channel listeners registered")

	if bound == 0 && len(channels) > 0 {
		return 0, ErrAllSubscriptionsFailed
	}
	if failed > 0 {
		return bound, &PartialSubscriptionError{Bound: bound, Failed: failed}
	}
	return bound, nil
}

// UnsubscribeAll releases every binding. Idempotent; safe with a nil session
// (the bindings died with the connection anyway).
func (d *Dispatcher) UnsubscribeAll(sess transport.Session) {
	d.accepting.Store(false)

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.subs) == 0 {
		return
	}
	if sess != nil {
		for id := range d.subs {
			sess.Off(id)
		}
	}
	d.log.Info().Int("released", len(d.subs)).Msg("channel listeners released")
	d.subs = make(map[int64]domain.ChannelHandle)
}

// ActiveSubscriptions returns the number of live bindings.
func (d *Dispatcher) ActiveSubscriptions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}

// MessagesSeen returns the cumulative inbound message count.
func (d *Dispatcher) MessagesSeen() int64 {
	return d.messagesSeen.Load()
}

// LinksFound returns the cumulative extracted link count.
func (d *Dispatcher) LinksFound() int64 {
	return d.linksFound.Load()
}

// handlerFor builds the handler for a single channel. The handler logs the
// identifying fields before any other work so detection latency stays
// user-visible, runs extraction synchronously, hands the record to the sink,
// and acknowledges receipt in the background.
func (d *Dispatcher) handlerFor(sess transport.Session, ch domain.ChannelHandle) transport.Handler {
	log := d.log.WithChannel(ch.Label())
	return func(msg domain.InboundMessage) {
		if !d.accepting.Load() {
			return
		}

		seq := d.messagesSeen.Add(1)
		log.Info().
			Int64("messageId", msg.MessageID).
			Int64("seq", seq).
			Msg("message received")

		links := extract.Links(msg.Text, msg.Media)
		d.linksFound.Add(int64(len(links)))

		rec := sink.Record{
			ID:          uuid.New().String(),
			ChannelID:   msg.ChannelID,
			ChannelName: ch.Name,
			MessageID:   msg.MessageID,
			Excerpt:     excerpt(msg.Text),
			Links:       links,
			ReceivedAt:  time.Now(),
		}
		if err := d.out.Emit(rec); err != nil {
			log.Warn().Err(err).Int64("messageId", msg.MessageID).Msg("sink rejected record")
		}

		// Acknowledge off the hot path; failures are logged and swallowed.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), ackTimeout)
			defer cancel()
			if err := sess.Acknowledge(ctx, msg.ChannelID, msg.MessageID); err != nil {
				log.Debug().Err(err).Int64("messageId", msg.MessageID).Msg("acknowledge failed")
			}
		}()
	}
}

// excerpt truncates on a rune boundary; deal posts are full of emoji and a
// split rune would persist invalid UTF-8.
func excerpt(text string) string {
	if len(text) <= excerptLen {
		return text
	}
	cut := excerptLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
