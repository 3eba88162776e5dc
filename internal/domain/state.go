package domain

import "time"

// ConnState is the lifecycle state of the transport session. It is owned and
// mutated only by the connection supervisor; everyone else reads snapshots.
type ConnState string

const (
	StateDisconnected  ConnState = "disconnected"
	StateConnecting    ConnState = "connecting"
	StateAuthenticated ConnState = "authenticated"
	// StateDegraded means the platform imposed a flood-wait cooldown; the
	// session stays up but requests are paused until the deadline passes.
	StateDegraded ConnState = "degraded"
	// StateLost is terminal: reconnect attempts were exhausted and the engine
	// requires an external restart.
	StateLost ConnState = "lost"
)

// ConnStatus is a read-only snapshot of the supervisor's state.
type ConnStatus struct {
	State          ConnState `json:"state"`
	FloodWaitUntil time.Time `json:"floodWaitUntil,omitempty"`
	LastError      string    `json:"lastError,omitempty"`
}
