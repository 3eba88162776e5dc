package monitor

import (
	"context"
	"sync"

	"github.com/shankarsamidala/deals/internal/domain"
	"github.com/shankarsamidala/deals/internal/logging"
	"github.com/shankarsamidala/deals/internal/sink"
	"github.com/shankarsamidala/deals/internal/transport"
)

func testLog() *logging.Logger {
	return logging.New(nil, "silent", "json")
}

// fakeSession is an in-memory transport.Session for engine tests.
type fakeSession struct {
	mu        sync.Mutex
	connected bool
	channels  []domain.ChannelHandle
	listErr   error
	handlers  map[int64]transport.Handler
	bindFail  map[int64]bool
	ackErr    error
	acks      [][2]int64
	closed    bool
}

func newFakeSession(channels ...domain.ChannelHandle) *fakeSession {
	return &fakeSession{
		connected: true,
		channels:  channels,
		handlers:  make(map[int64]transport.Handler),
		bindFail:  make(map[int64]bool),
	}
}

func (s *fakeSession) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeSession) ListChannels(context.Context) ([]domain.ChannelHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]domain.ChannelHandle, len(s.channels))
	copy(out, s.channels)
	return out, nil
}

func (s *fakeSession) On(handle domain.ChannelHandle, h transport.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bindFail[handle.ID] {
		return transport.ErrNetworkUnavailable
	}
	s.handlers[handle.ID] = h
	return nil
}

func (s *fakeSession) Off(channelID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, channelID)
}

func (s *fakeSession) Acknowledge(_ context.Context, channelID, messageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ackErr != nil {
		return s.ackErr
	}
	s.acks = append(s.acks, [2]int64{channelID, messageID})
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.closed = true
	return nil
}

// drop simulates connection loss without a clean close.
func (s *fakeSession) drop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
}

// deliver feeds a message to the handler bound for its channel, mimicking the
// platform's per-channel in-order delivery.
func (s *fakeSession) deliver(msg domain.InboundMessage) bool {
	s.mu.Lock()
	h, ok := s.handlers[msg.ChannelID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	h(msg)
	return true
}

func (s *fakeSession) ackCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.acks)
}

func (s *fakeSession) handlerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

// connectResult scripts one Connect call on the fake provider.
type connectResult struct {
	sess *fakeSession
	err  error
}

// fakeProvider replays a script of Connect outcomes. When the script runs
// out, the last entry repeats.
type fakeProvider struct {
	mu     sync.Mutex
	script []connectResult
	calls  int
}

func (p *fakeProvider) Connect(context.Context, transport.Credential) (transport.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.calls
	p.calls++
	if idx >= len(p.script) {
		idx = len(p.script) - 1
	}
	r := p.script[idx]
	if r.err != nil {
		return nil, r.err
	}
	return r.sess, nil
}

func (p *fakeProvider) connectCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// captureSink collects records emitted by the dispatcher.
type captureSink struct {
	mu   sync.Mutex
	recs []sink.Record
}

func (c *captureSink) Emit(rec sink.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs = append(c.recs, rec)
	return nil
}

func (c *captureSink) Close() error { return nil }

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.recs)
}

func (c *captureSink) records() []sink.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sink.Record, len(c.recs))
	copy(out, c.recs)
	return out
}

func handle(id int64, name string) domain.ChannelHandle {
	return domain.ChannelHandle{ID: id, Name: name, AccessToken: "tok"}
}
