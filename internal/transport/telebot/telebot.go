// Package telebot adapts the Telegram Bot API, via gopkg.in/telebot.v4, to
// the transport interfaces the monitor engine consumes.
//
// The Bot API cannot enumerate a user's dialogs, so channel discovery works
// from a configured list of chat references (numeric IDs or @usernames) that
// the bot has been added to. Read acknowledgment is implicit in long-poll
// offset commits, so Acknowledge is a no-op.
package telebot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/shankarsamidala/deals/internal/domain"
	"github.com/shankarsamidala/deals/internal/logging"
	"github.com/shankarsamidala/deals/internal/transport"
)

const (
	pollTimeout = 10 * time.Second

	// Consecutive poll failures before the session reports itself down.
	maxPollFailures = 5
)

// Provider creates Bot API sessions for the configured channel references.
type Provider struct {
	channels []string
	log      *logging.Logger
}

// NewProvider creates a provider that will resolve the given channel
// references on every session.
func NewProvider(channels []string, log *logging.Logger) *Provider {
	return &Provider{channels: channels, log: log.Sub("telegram")}
}

// Connect authenticates against the Bot API and starts the long-poll loop.
func (p *Provider) Connect(ctx context.Context, cred transport.Credential) (transport.Session, error) {
	if strings.TrimSpace(cred.Token) == "" {
		return nil, fmt.Errorf("%w: empty bot token", transport.ErrAuthExpired)
	}

	s := &session{
		token:    cred.Token,
		refs:     p.channels,
		handlers: make(map[int64]transport.Handler),
		log:      p.log,
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:  cred.Token,
		Poller: &tele.LongPoller{Timeout: pollTimeout},
		OnError: func(err error, _ tele.Context) {
			s.pollError(err)
		},
	})
	if err != nil {
		return nil, mapConnectError(err)
	}
	if err := ctx.Err(); err != nil {
		bot.Stop()
		return nil, err
	}

	s.bot = bot
	bot.Handle(tele.OnChannelPost, func(c tele.Context) error {
		s.dispatch(c.Message())
		return nil
	})

	s.connected.Store(true)
	go func() {
		p.log.Info().Msg("long-poll started")
		bot.Start()
		s.connected.Store(false)
	}()

	return s, nil
}

type session struct {
	token string
	refs  []string
	bot   *tele.Bot
	log   *logging.Logger

	mu       sync.RWMutex
	handlers map[int64]transport.Handler

	connected    atomic.Bool
	pollFailures atomic.Int32
	closeOnce    sync.Once
}

func (s *session) IsConnected() bool {
	return s.connected.Load()
}

// ListChannels resolves every configured reference through the Bot API. A
// reference the bot cannot see is skipped with a warning rather than failing
// the whole listing.
func (s *session) ListChannels(ctx context.Context) ([]domain.ChannelHandle, error) {
	if !s.connected.Load() {
		return nil, transport.ErrNetworkUnavailable
	}

	var out []domain.ChannelHandle
	for _, ref := range s.refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chat, err := s.resolveChat(ref)
		if err != nil {
			s.log.Warn().Err(err).Str("ref", ref).Msg("channel reference could not be resolved")
			continue
		}

		h := domain.ChannelHandle{
			ID:       chat.ID,
			Name:     chat.Title,
			Username: chat.Username,
		}
		if chat.Type == tele.ChatChannel || chat.Type == tele.ChatChannelPrivate {
			h.AccessToken = s.token
		}
		if n, err := s.bot.Len(chat); err == nil {
			h.Participants = n
		}
		out = append(out, h)
	}
	return out, nil
}

func (s *session) resolveChat(ref string) (*tele.Chat, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return s.bot.ChatByID(id)
	}
	return s.bot.ChatByUsername(strings.TrimPrefix(ref, "@"))
}

func (s *session) On(handle domain.ChannelHandle, h transport.Handler) error {
	if !s.connected.Load() {
		return transport.ErrNetworkUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[handle.ID] = h
	return nil
}

func (s *session) Off(channelID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, channelID)
}

// Acknowledge is a no-op: committing the long-poll offset is the Bot API's
// form of read acknowledgment and telebot does that internally.
func (s *session) Acknowledge(context.Context, int64, int64) error {
	return nil
}

func (s *session) Close() error {
	s.closeOnce.Do(func() {
		s.connected.Store(false)
		if s.bot != nil {
			// Stop is expected to be fast; never block shutdown on a
			// long-poll that is mid-flight.
			go s.bot.Stop()
		}
	})
	return nil
}

// dispatch feeds a channel post to the handler bound for its channel.
// Updates arrive on telebot's single poll goroutine, so per-channel order is
// preserved.
func (s *session) dispatch(m *tele.Message) {
	if m == nil || m.Chat == nil {
		return
	}
	s.mu.RLock()
	h, ok := s.handlers[m.Chat.ID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	s.pollFailures.Store(0)
	h(inboundFromMessage(m))
}

// pollError tracks consecutive poll failures; past the threshold the session
// reports itself disconnected so the supervisor starts recovery.
func (s *session) pollError(err error) {
	n := s.pollFailures.Add(1)
	s.log.Warn().Err(err).Int32("consecutive", n).Msg("poll error")
	if n >= maxPollFailures {
		s.connected.Store(false)
	}
}

// inboundFromMessage maps a Bot API channel post onto the engine's message
// shape. Caption stands in for text on media posts; the first embedded
// text_link entity is surfaced as the media preview.
func inboundFromMessage(m *tele.Message) domain.InboundMessage {
	text := m.Text
	if text == "" {
		text = m.Caption
	}

	var media *domain.MediaRef
	entities := m.Entities
	if len(entities) == 0 {
		entities = m.CaptionEntities
	}
	for _, e := range entities {
		if e.Type == tele.EntityTextLink && e.URL != "" {
			media = &domain.MediaRef{PreviewURL: e.URL}
			break
		}
	}

	name := ""
	if m.Chat != nil {
		name = m.Chat.Title
	}
	var chatID int64
	if m.Chat != nil {
		chatID = m.Chat.ID
	}

	return domain.InboundMessage{
		ChannelID:   chatID,
		ChannelName: name,
		MessageID:   int64(m.ID),
		Text:        text,
		Media:       media,
		Timestamp:   m.Time(),
	}
}

// mapConnectError translates telebot failures into transport sentinels.
func mapConnectError(err error) error {
	var flood *tele.FloodError
	if errors.As(err, &flood) {
		return &transport.RateLimitedError{Wait: time.Duration(flood.RetryAfter) * time.Second}
	}
	if errors.Is(err, tele.ErrUnauthorized) {
		return fmt.Errorf("%w: %v", transport.ErrAuthExpired, err)
	}
	return fmt.Errorf("%w: %v", transport.ErrNetworkUnavailable, err)
}
