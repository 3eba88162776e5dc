package sink

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankarsamidala/deals/internal/logging"
)

// captureSink records everything emitted to it. If gate is non-nil, Emit
// blocks until the gate is closed, simulating a slow downstream consumer.
type captureSink struct {
	mu     sync.Mutex
	recs   []Record
	gate   chan struct{}
	err    error
	closed bool
}

func (c *captureSink) Emit(rec Record) error {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.recs = append(c.recs, rec)
	return nil
}

func (c *captureSink) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *captureSink) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.recs))
	for _, r := range c.recs {
		out = append(out, r.ID)
	}
	return out
}

func testLog() *logging.Logger {
	return logging.New(nil, "silent", "json")
}

func rec(id string) Record {
	return Record{ID: id, ReceivedAt: time.Now()}
}

func TestQueueDeliversInOrder(t *testing.T) {
	inner := &captureSink{}
	q := NewQueue(inner, 8, testLog())

	require.NoError(t, q.Emit(rec("a")))
	require.NoError(t, q.Emit(rec("b")))
	require.NoError(t, q.Emit(rec("c")))
	require.NoError(t, q.Close())

	assert.Equal(t, []string{"a", "b", "c"}, inner.ids())
	assert.True(t, inner.closed)
	assert.Zero(t, q.Dropped())
}

func TestQueueDropsOldestUnderPressure(t *testing.T) {
	gate := make(chan struct{})
	inner := &captureSink{gate: gate}
	q := NewQueue(inner, 2, testLog())

	start := time.Now()
	require.NoError(t, q.Emit(rec("r1")))
	require.NoError(t, q.Emit(rec("r2")))
	require.NoError(t, q.Emit(rec("r3")))
	require.NoError(t, q.Emit(rec("r4")))
	// The handler side must never block, even with the consumer wedged.
	assert.Less(t, time.Since(start), time.Second)

	close(gate)
	require.NoError(t, q.Close())

	assert.GreaterOrEqual(t, q.Dropped(), int64(1))
	ids := inner.ids()
	assert.NotContains(t, ids, "r2")
	assert.Contains(t, ids, "r3")
	assert.Contains(t, ids, "r4")
}

func TestQueueEmitAfterClose(t *testing.T) {
	q := NewQueue(&captureSink{}, 4, testLog())
	require.NoError(t, q.Close())

	err := q.Emit(rec("late"))
	assert.ErrorIs(t, err, ErrQueueClosed)

	// Close is idempotent.
	assert.NoError(t, q.Close())
}

func TestQueueLogsDownstreamErrors(t *testing.T) {
	inner := &captureSink{err: errors.New("disk full")}
	q := NewQueue(inner, 4, testLog())

	// Errors are swallowed: the handler side never sees them.
	require.NoError(t, q.Emit(rec("x")))
	require.NoError(t, q.Close())
}

func TestFanout(t *testing.T) {
	a := &captureSink{}
	b := &captureSink{}
	f := Fanout{a, b}

	require.NoError(t, f.Emit(rec("r")))
	assert.Equal(t, []string{"r"}, a.ids())
	assert.Equal(t, []string{"r"}, b.ids())

	require.NoError(t, f.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestFanoutCollectsErrors(t *testing.T) {
	bad := &captureSink{err: fmt.Errorf("broken")}
	good := &captureSink{}
	f := Fanout{bad, good}

	err := f.Emit(rec("r"))
	require.Error(t, err)
	// The healthy target still received the record.
	assert.Equal(t, []string{"r"}, good.ids())
}

func TestConsoleSink(t *testing.T) {
	c := NewConsole(testLog())
	require.NoError(t, c.Emit(rec("r")))
	require.NoError(t, c.Close())
}
