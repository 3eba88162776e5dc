package monitor

import (
	"context"
	"strings"
	"sync"

	"github.com/shankarsamidala/deals/internal/domain"
	"github.com/shankarsamidala/deals/internal/logging"
	"github.com/shankarsamidala/deals/internal/transport"
)

// Predicate filters discovered channels.
type Predicate func(domain.ChannelHandle) bool

// Registry holds the set of channels selected for monitoring. Discovery is
// re-runnable and replaces the set on success; a failed discovery leaves the
// previous set untouched.
type Registry struct {
	keywords []string
	log      *logging.Logger

	mu       sync.RWMutex
	channels []domain.ChannelHandle
}

// NewRegistry creates a registry using the given keyword set for the default
// discovery predicate.
func NewRegistry(keywords []string, log *logging.Logger) *Registry {
	return &Registry{
		keywords: keywords,
		log:      log.Sub("registry"),
	}
}

// KeywordPredicate matches channels whose name contains any of the keywords,
// case-insensitively.
func KeywordPredicate(keywords []string) Predicate {
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return func(h domain.ChannelHandle) bool {
		name := strings.ToLower(h.Name)
		for _, k := range lowered {
			if k != "" && strings.Contains(name, k) {
				return true
			}
		}
		return false
	}
}

// Discover enumerates channels visible to the session and keeps those
// matching pred (default: the configured keyword predicate). Channels without
// an access token are kept in the set for reporting but excluded from the
// monitorable subset. An empty match returns ErrNoMatchingChannels and does
// not mutate the current set.
func (r *Registry) Discover(ctx context.Context, sess transport.Session, pred Predicate) ([]domain.ChannelHandle, error) {
	if pred == nil {
		pred = KeywordPredicate(r.keywords)
	}

	visible, err := sess.ListChannels(ctx)
	if err != nil {
		return nil, err
	}

	var matched []domain.ChannelHandle
	for _, h := range visible {
		if !pred(h) {
			continue
		}
		matched = append(matched, h)
		if !h.Monitorable() {
			r.log.Warn().
				Str("channel", h.Label()).
				Msg("channel has no access token, recording but not monitoring")
		}
	}

	if len(matched) == 0 {
		return nil, transport.ErrNoMatchingChannels
	}

	r.mu.Lock()
	r.channels = matched
	r.mu.Unlock()

	r.log.Info().
		Int("visible", len(visible)).
		Int("matched", len(matched)).
		Msg("channel discovery complete")
	for _, h := range matched {
		r.log.Info().
			Str("channel", h.Label()).
			Str("name", h.Name).
			Int("participants", h.Participants).
			Bool("monitorable", h.Monitorable()).
			Msg("selected channel")
	}

	return r.Channels(), nil
}

// Channels returns a copy of the current channel set.
func (r *Registry) Channels() []domain.ChannelHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ChannelHandle, len(r.channels))
	copy(out, r.channels)
	return out
}

// Monitorable returns the subset of channels that can be subscribed to.
func (r *Registry) Monitorable() []domain.ChannelHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.ChannelHandle
	for _, h := range r.channels {
		if h.Monitorable() {
			out = append(out, h)
		}
	}
	return out
}

// Count returns the size of the current channel set.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
