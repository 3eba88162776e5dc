package sink

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/shankarsamidala/deals/internal/logging"
)

// ErrQueueClosed is returned by Emit after Close.
var ErrQueueClosed = errors.New("sink: queue closed")

// Queue is a bounded, non-blocking handoff in front of another sink. When the
// buffer is full the oldest queued record is dropped to make room: the feed is
// a live stream, and the newest deal beats a stale one.
type Queue struct {
	inner Sink
	log   *logging.Logger

	mu      sync.RWMutex
	closed  bool
	ch      chan Record
	done    chan struct{}
	dropped atomic.Int64
}

// NewQueue wraps inner with a buffer of the given size and starts the drain
// worker. Size must be >= 1.
func NewQueue(inner Sink, size int, log *logging.Logger) *Queue {
	if size < 1 {
		size = 1
	}
	q := &Queue{
		inner: inner,
		log:   log.Sub("sinkqueue"),
		ch:    make(chan Record, size),
		done:  make(chan struct{}),
	}
	go q.drain()
	return q
}

// Emit enqueues the record without ever blocking the caller.
func (q *Queue) Emit(rec Record) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	for {
		select {
		case q.ch <- rec:
			return nil
		default:
		}
		// Buffer full: evict the oldest record, then retry.
		select {
		case old := <-q.ch:
			n := q.dropped.Add(1)
			q.log.Warn().
				Str("id", old.ID).
				Int64("totalDropped", n).
				Msg("sink backlog full, dropping oldest record")
		default:
		}
	}
}

// Dropped returns how many records were evicted under pressure.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Close stops accepting records, drains the buffer, and closes the inner sink.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	<-q.done
	return q.inner.Close()
}

func (q *Queue) drain() {
	defer close(q.done)
	for rec := range q.ch {
		if err := q.inner.Emit(rec); err != nil {
			q.log.Warn().Err(err).Str("id", rec.ID).Msg("downstream sink rejected record")
		}
	}
}
