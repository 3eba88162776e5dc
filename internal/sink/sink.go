// Package sink delivers extracted-link records to downstream consumers.
//
// The engine's handlers must never block on a slow consumer, so the handoff
// between dispatcher and sink goes through a bounded queue with a drop-oldest
// policy (see Queue). Everything behind the queue is free to be slow.
package sink

import (
	"errors"
	"time"

	"github.com/shankarsamidala/deals/internal/domain"
)

// Record is one processed message and the links found in it. Ownership of the
// links passes to whichever sink receives the record.
type Record struct {
	ID          string                 `json:"id"`
	ChannelID   int64                  `json:"channelId"`
	ChannelName string                 `json:"channelName,omitempty"`
	MessageID   int64                  `json:"messageId"`
	Excerpt     string                 `json:"excerpt,omitempty"`
	Links       []domain.ExtractedLink `json:"links"`
	ReceivedAt  time.Time              `json:"receivedAt"`
}

// Sink receives records. Emit may be called concurrently.
type Sink interface {
	Emit(rec Record) error
	Close() error
}

// Fanout delivers every record to all targets, collecting errors.
type Fanout []Sink

// Emit sends the record to every target. Errors are joined, not short-circuited.
func (f Fanout) Emit(rec Record) error {
	var errs []error
	for _, s := range f {
		if err := s.Emit(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes all targets.
func (f Fanout) Close() error {
	var errs []error
	for _, s := range f {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
