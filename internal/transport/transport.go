// Package transport defines the contract between the monitoring engine and an
// already-authenticated messaging platform session. The engine never performs
// interactive login; it consumes a pre-provisioned credential and the three
// error kinds a provider may raise.
package transport

import (
	"context"

	"github.com/shankarsamidala/deals/internal/domain"
)

// Credential is a pre-authenticated session token. Acquisition (login flows,
// token refresh) is out of scope; the credential store hands us a string.
type Credential struct {
	Token string
}

// Handler receives inbound events for the single channel it was bound to.
type Handler func(msg domain.InboundMessage)

// Session is one live, authenticated connection to the platform.
//
// All methods are safe for concurrent use. Callback delivery preserves the
// platform's per-channel ordering: events for one channel arrive at its
// handler in delivery order, while different channels may interleave.
type Session interface {
	// IsConnected reports transport-level liveness. Used by the watchdog.
	IsConnected() bool

	// ListChannels enumerates all broadcast channels visible to the session.
	ListChannels(ctx context.Context) ([]domain.ChannelHandle, error)

	// On binds a handler to a single channel. One handler per channel; a
	// second On for the same channel replaces the first.
	On(handle domain.ChannelHandle, h Handler) error

	// Off releases the binding for a channel. Unknown channels are a no-op.
	Off(channelID int64)

	// Acknowledge marks a message as received on the platform side.
	Acknowledge(ctx context.Context, channelID, messageID int64) error

	// Close tears the session down. Idempotent.
	Close() error
}

// Provider establishes authenticated sessions. Connect must return
// ErrAuthExpired when the credential is no longer valid (never retried
// internally), ErrNetworkUnavailable on transport failure, and a
// *RateLimitedError when the platform mandates a cooldown.
type Provider interface {
	Connect(ctx context.Context, cred Credential) (Session, error)
}
