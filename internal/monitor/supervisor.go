package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shankarsamidala/deals/internal/domain"
	"github.com/shankarsamidala/deals/internal/logging"
	"github.com/shankarsamidala/deals/internal/transport"
)

// Supervisor owns the transport session lifecycle: connect, liveness
// watching, reconnect with bounded backoff, and flood-wait compliance.
//
// The session is the one piece of shared mutable state in the engine. Only
// the supervisor replaces it; everyone else reads it through Session().
type Supervisor struct {
	provider transport.Provider
	cred     transport.Credential
	opts     Options
	log      *logging.Logger

	mu         sync.RWMutex
	session    transport.Session
	state      domain.ConnState
	floodUntil time.Time
	lastErr    string

	fatal chan error
}

// NewSupervisor creates a supervisor in the Disconnected state.
func NewSupervisor(provider transport.Provider, cred transport.Credential, opts Options, log *logging.Logger) *Supervisor {
	return &Supervisor{
		provider: provider,
		cred:     cred,
		opts:     opts.withDefaults(),
		log:      log.Sub("supervisor"),
		state:    domain.StateDisconnected,
		fatal:    make(chan error, 1),
	}
}

// Connect establishes an authenticated session. On a rate-limit signal it
// honors the platform's cooldown, capped at FloodWaitCap, before returning so
// the caller may retry. ErrAuthExpired is never retried here: the credential
// has to be refreshed externally.
func (s *Supervisor) Connect(ctx context.Context) error {
	s.setState(domain.StateConnecting, nil)

	attemptCtx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
	defer cancel()

	sess, err := s.provider.Connect(attemptCtx, s.cred)
	if err != nil {
		if rl, ok := transport.AsRateLimited(err); ok {
			wait := min(rl.Wait, s.opts.FloodWaitCap)
			s.setDegraded(time.Now().Add(wait), err)
			s.log.Warn().
				Dur("mandated", rl.Wait).
				Dur("honoring", wait).
				Msg("flood control engaged, waiting before retry")
			if serr := sleepCtx(ctx, wait); serr != nil {
				return serr
			}
			return err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			// A timed-out attempt is an ordinary network failure for
			// backoff purposes.
			err = fmt.Errorf("%w: %v", transport.ErrNetworkUnavailable, err)
		}
		s.setState(domain.StateDisconnected, err)
		return err
	}

	s.mu.Lock()
	s.session = sess
	s.state = domain.StateAuthenticated
	s.lastErr = ""
	s.floodUntil = time.Time{}
	s.mu.Unlock()

	s.log.Info().Msg("transport session authenticated")
	return nil
}

// Session returns the current live session, or nil when disconnected.
func (s *Supervisor) Session() transport.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Status returns a read-only snapshot of the connection state.
func (s *Supervisor) Status() domain.ConnStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.ConnStatus{
		State:          s.state,
		FloodWaitUntil: s.floodUntil,
		LastError:      s.lastErr,
	}
}

// Fatal delivers the terminal error when the supervisor gives up. The channel
// receives at most one value.
func (s *Supervisor) Fatal() <-chan error {
	return s.fatal
}

// Watch polls session liveness until ctx is cancelled. On loss it runs the
// bounded reconnect routine; a successful reconnect calls resubscribe before
// polling resumes, so messages are only lost inside the reconnect window.
// Exhausting the budget transitions to Lost and signals Fatal.
func (s *Supervisor) Watch(ctx context.Context, resubscribe func(ctx context.Context) error) {
	ticker := time.NewTicker(s.opts.WatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if s.alive() {
			continue
		}

		s.log.Warn().Msg("connection lost, starting reconnect")
		if err := s.reconnect(ctx, resubscribe); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.setState(domain.StateLost, err)
			s.log.Error().Err(err).Msg("reconnect failed, monitoring is down")
			select {
			case s.fatal <- err:
			default:
			}
			return
		}
	}
}

// Disconnect tears down the session. The Lost state is terminal and is not
// cleared by a disconnect.
func (s *Supervisor) Disconnect() {
	s.mu.Lock()
	sess := s.session
	s.session = nil
	if s.state != domain.StateLost {
		s.state = domain.StateDisconnected
	}
	s.mu.Unlock()

	if sess != nil {
		if err := sess.Close(); err != nil {
			s.log.Warn().Err(err).Msg("session close failed")
		}
	}
}

func (s *Supervisor) alive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session != nil && s.session.IsConnected()
}

// reconnect runs up to ReconnectAttempts connect attempts with exponential
// backoff. Auth expiry aborts immediately; there is no point retrying a dead
// credential.
func (s *Supervisor) reconnect(ctx context.Context, resubscribe func(ctx context.Context) error) error {
	for attempt := 1; attempt <= s.opts.ReconnectAttempts; attempt++ {
		s.log.Info().
			Int("attempt", attempt).
			Int("budget", s.opts.ReconnectAttempts).
			Msg("reconnecting")

		err := s.Connect(ctx)
		if err == nil {
			if resubscribe != nil {
				if rerr := resubscribe(ctx); rerr != nil {
					s.log.Warn().Err(rerr).Msg("resubscription incomplete after reconnect")
				}
			}
			s.log.Info().Int("attempt", attempt).Msg("reconnected")
			return nil
		}
		if errors.Is(err, transport.ErrAuthExpired) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt < s.opts.ReconnectAttempts {
			delay := s.opts.ReconnectBase << (attempt - 1)
			s.log.Info().Dur("delay", delay).Msg("backing off before next attempt")
			if serr := sleepCtx(ctx, delay); serr != nil {
				return serr
			}
		}
	}
	return fmt.Errorf("%w after %d attempts", ErrReconnectExhausted, s.opts.ReconnectAttempts)
}

func (s *Supervisor) setState(state domain.ConnState, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	if err != nil {
		s.lastErr = err.Error()
	}
}

func (s *Supervisor) setDegraded(until time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = domain.StateDegraded
	s.floodUntil = until
	if err != nil {
		s.lastErr = err.Error()
	}
}

// sleepCtx sleeps for d unless ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
