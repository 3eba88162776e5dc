package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankarsamidala/deals/internal/logging"
	"github.com/shankarsamidala/deals/internal/transport"
)

func testLog() *logging.Logger {
	return logging.New(nil, "silent", "json")
}

type webhookCapture struct {
	mu     sync.Mutex
	events []Event
	status int
}

func (w *webhookCapture) handler(rw http.ResponseWriter, r *http.Request) {
	var ev Event
	_ = json.NewDecoder(r.Body).Decode(&ev)
	w.mu.Lock()
	w.events = append(w.events, ev)
	status := w.status
	w.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	rw.WriteHeader(status)
}

func (w *webhookCapture) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.events)
}

func TestSendDeliversEvent(t *testing.T) {
	wh := &webhookCapture{}
	srv := httptest.NewServer(http.HandlerFunc(wh.handler))
	defer srv.Close()

	n := NewNotifier(srv.URL, time.Millisecond, testLog())
	n.Send(context.Background(), Event{Kind: KindStarted, Message: "up"})

	require.Equal(t, 1, wh.count())
	assert.Equal(t, KindStarted, wh.events[0].Kind)
	assert.Equal(t, "up", wh.events[0].Message)
	assert.False(t, wh.events[0].At.IsZero())
}

func TestSendRateLimited(t *testing.T) {
	wh := &webhookCapture{}
	srv := httptest.NewServer(http.HandlerFunc(wh.handler))
	defer srv.Close()

	n := NewNotifier(srv.URL, time.Hour, testLog())
	for i := 0; i < 5; i++ {
		n.Send(context.Background(), Event{Kind: KindConnectionLost, Message: "down"})
	}

	// Only the first event within the interval gets through.
	assert.Equal(t, 1, wh.count())
}

func TestSendDisabledWithoutURL(t *testing.T) {
	n := NewNotifier("", time.Millisecond, testLog())
	assert.False(t, n.Enabled())

	// Must not panic or block.
	n.Send(context.Background(), Event{Kind: KindStopped})
}

func TestSendSwallowsServerErrors(t *testing.T) {
	wh := &webhookCapture{status: http.StatusBadGateway}
	srv := httptest.NewServer(http.HandlerFunc(wh.handler))
	defer srv.Close()

	n := NewNotifier(srv.URL, time.Millisecond, testLog())
	n.Send(context.Background(), Event{Kind: KindConnectionLost})
	assert.Equal(t, 1, wh.count())
}

func TestSendSwallowsUnreachableWebhook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	n := NewNotifier(url, time.Millisecond, testLog())
	n.Send(context.Background(), Event{Kind: KindConnectionLost})
}

func TestForError(t *testing.T) {
	ev := ForError(assert.AnError)
	assert.Equal(t, KindConnectionLost, ev.Kind)
	assert.Contains(t, ev.Message, assert.AnError.Error())
	assert.False(t, ev.At.IsZero())
}

func TestForErrorAuthExpired(t *testing.T) {
	ev := ForError(fmt.Errorf("connect: %w", transport.ErrAuthExpired))
	assert.Equal(t, KindAuthExpired, ev.Kind)
	assert.Contains(t, ev.Message, transport.ErrAuthExpired.Error())
}
