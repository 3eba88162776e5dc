// Package domain defines the core types shared across the monitoring engine.
package domain

import "strconv"

// ChannelHandle is the stable address of a broadcast channel discovered on the
// platform. Identity is the numeric ID; the access token is required to bind a
// listener to the channel. Handles are immutable once created.
type ChannelHandle struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Username     string `json:"username,omitempty"`
	Participants int    `json:"participants,omitempty"`
	AccessToken  string `json:"-"`
}

// Monitorable reports whether the channel can actually be subscribed to.
// Channels without an access token are visible but cannot be listened on.
func (h ChannelHandle) Monitorable() bool {
	return h.AccessToken != ""
}

// Label returns a human-readable identifier for logs: the public username when
// present, otherwise the numeric ID.
func (h ChannelHandle) Label() string {
	if h.Username != "" {
		return "@" + h.Username
	}
	return strconv.FormatInt(h.ID, 10)
}
