package domain

import "time"

// MediaRef describes media attached to a message, reduced to what the link
// pipeline cares about: the webpage preview URL, if the platform resolved one.
type MediaRef struct {
	PreviewURL string `json:"previewUrl,omitempty"`
}

// InboundMessage is a message received from a monitored channel. It is
// transient: consumed synchronously by the extraction pipeline and never
// retained by the engine.
type InboundMessage struct {
	ChannelID   int64     `json:"channelId"`
	ChannelName string    `json:"channelName,omitempty"`
	MessageID   int64     `json:"messageId"`
	Text        string    `json:"text"`
	Media       *MediaRef `json:"media,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
