package sink

import (
	"github.com/shankarsamidala/deals/internal/logging"
)

// Console logs every record, one line per link. This is the zero-dependency
// sink: what you see when no store is configured.
type Console struct {
	log *logging.Logger
}

// NewConsole creates a console sink.
func NewConsole(log *logging.Logger) *Console {
	return &Console{log: log.Sub("sink")}
}

// Emit logs the record.
func (c *Console) Emit(rec Record) error {
	evt := c.log.Info().
		Str("channel", rec.ChannelName).
		Int64("channelId", rec.ChannelID).
		Int64("messageId", rec.MessageID).
		Int("links", len(rec.Links))
	if rec.Excerpt != "" {
		evt = evt.Str("text", rec.Excerpt)
	}
	evt.Msg("message captured")

	for i, l := range rec.Links {
		c.log.Info().
			Int("n", i+1).
			Str("url", l.URL).
			Str("source", string(l.Source)).
			Str("domain", l.Domain).
			Msg("link")
	}
	return nil
}

// Close is a no-op.
func (c *Console) Close() error { return nil }
