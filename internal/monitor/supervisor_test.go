package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankarsamidala/deals/internal/domain"
	"github.com/shankarsamidala/deals/internal/transport"
)

func fastOpts() Options {
	return Options{
		WatchInterval:     10 * time.Millisecond,
		ConnectTimeout:    time.Second,
		ReconnectAttempts: 3,
		ReconnectBase:     time.Millisecond,
		FloodWaitCap:      20 * time.Millisecond,
	}
}

func TestSupervisorConnect(t *testing.T) {
	sess := newFakeSession()
	p := &fakeProvider{script: []connectResult{{sess: sess}}}
	s := NewSupervisor(p, transport.Credential{Token: "t"}, fastOpts(), testLog())

	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, domain.StateAuthenticated, s.Status().State)
	assert.Same(t, transport.Session(sess), s.Session())
}

func TestSupervisorConnectAuthExpired(t *testing.T) {
	p := &fakeProvider{script: []connectResult{{err: transport.ErrAuthExpired}}}
	s := NewSupervisor(p, transport.Credential{}, fastOpts(), testLog())

	err := s.Connect(context.Background())
	require.ErrorIs(t, err, transport.ErrAuthExpired)

	st := s.Status()
	assert.Equal(t, domain.StateDisconnected, st.State)
	assert.NotEmpty(t, st.LastError)
	assert.Nil(t, s.Session())
}

func TestSupervisorConnectRateLimitedHonorsCappedWait(t *testing.T) {
	mandated := 500 * time.Millisecond
	p := &fakeProvider{script: []connectResult{{err: &transport.RateLimitedError{Wait: mandated}}}}
	s := NewSupervisor(p, transport.Credential{}, fastOpts(), testLog())

	start := time.Now()
	err := s.Connect(context.Background())
	elapsed := time.Since(start)

	var rl *transport.RateLimitedError
	require.ErrorAs(t, err, &rl)
	// The wait is the capped value, not the full mandated cooldown.
	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
	assert.Less(t, elapsed, mandated)

	st := s.Status()
	assert.Equal(t, domain.StateDegraded, st.State)
	assert.False(t, st.FloodWaitUntil.IsZero())
}

func TestSupervisorConnectTimeoutCountsAsNetworkFailure(t *testing.T) {
	opts := fastOpts()
	opts.ConnectTimeout = 10 * time.Millisecond
	p := &slowProvider{delay: time.Second}
	s := NewSupervisor(p, transport.Credential{}, opts, testLog())

	err := s.Connect(context.Background())
	require.ErrorIs(t, err, transport.ErrNetworkUnavailable)
}

func TestWatchReconnectExhaustionTransitionsToLost(t *testing.T) {
	sess := newFakeSession()
	p := &fakeProvider{script: []connectResult{
		{sess: sess},
		{err: transport.ErrNetworkUnavailable},
	}}
	s := NewSupervisor(p, transport.Credential{}, fastOpts(), testLog())
	require.NoError(t, s.Connect(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Watch(ctx, nil)
	}()

	sess.drop()

	select {
	case err := <-s.Fatal():
		require.ErrorIs(t, err, ErrReconnectExhausted)
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor never signalled fatal")
	}
	<-done

	assert.Equal(t, domain.StateLost, s.Status().State)
	// Initial connect plus exactly three reconnect attempts, never a fourth.
	assert.Equal(t, 4, p.connectCalls())
}

func TestWatchAuthExpiryAbortsRetries(t *testing.T) {
	sess := newFakeSession()
	p := &fakeProvider{script: []connectResult{
		{sess: sess},
		{err: transport.ErrAuthExpired},
	}}
	s := NewSupervisor(p, transport.Credential{}, fastOpts(), testLog())
	require.NoError(t, s.Connect(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Watch(ctx, nil)

	sess.drop()

	select {
	case err := <-s.Fatal():
		require.ErrorIs(t, err, transport.ErrAuthExpired)
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor never signalled fatal")
	}

	// Only the initial connect plus one aborted reconnect attempt.
	assert.Equal(t, 2, p.connectCalls())
	assert.Equal(t, domain.StateLost, s.Status().State)
}

func TestWatchReconnectRunsResubscribe(t *testing.T) {
	sess1 := newFakeSession()
	sess2 := newFakeSession()
	p := &fakeProvider{script: []connectResult{{sess: sess1}, {sess: sess2}}}
	s := NewSupervisor(p, transport.Credential{}, fastOpts(), testLog())
	require.NoError(t, s.Connect(context.Background()))

	resubscribed := make(chan struct{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Watch(ctx, func(context.Context) error {
		select {
		case resubscribed <- struct{}{}:
		default:
		}
		return nil
	})

	sess1.drop()

	select {
	case <-resubscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("resubscribe was never invoked after reconnect")
	}

	require.Eventually(t, func() bool {
		return s.Status().State == domain.StateAuthenticated
	}, time.Second, 5*time.Millisecond)
	assert.Same(t, transport.Session(sess2), s.Session())
}

func TestWatchStopsOnContextCancel(t *testing.T) {
	sess := newFakeSession()
	p := &fakeProvider{script: []connectResult{{sess: sess}}}
	s := NewSupervisor(p, transport.Credential{}, fastOpts(), testLog())
	require.NoError(t, s.Connect(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Watch(ctx, nil)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchdog did not unwind on cancellation")
	}
}

func TestDisconnectKeepsLostTerminal(t *testing.T) {
	p := &fakeProvider{script: []connectResult{{err: transport.ErrNetworkUnavailable}}}
	s := NewSupervisor(p, transport.Credential{}, fastOpts(), testLog())
	s.setState(domain.StateLost, ErrReconnectExhausted)

	s.Disconnect()
	assert.Equal(t, domain.StateLost, s.Status().State)
}

// slowProvider never completes within the attempt timeout.
type slowProvider struct {
	delay time.Duration
}

func (p *slowProvider) Connect(ctx context.Context, _ transport.Credential) (transport.Session, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(p.delay):
		return newFakeSession(), nil
	}
}
