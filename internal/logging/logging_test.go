package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONStyle(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "json")
	require.NotNil(t, log)

	log.Info().Str("k", "v").Msg("hello")
	out := buf.String()
	assert.Contains(t, out, `"message":"hello"`)
	assert.Contains(t, out, `"k":"v"`)
}

func TestNewPrettyStyle(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "pretty")
	log.Info().Msg("console line")
	assert.Contains(t, buf.String(), "console line")
}

func TestSub(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", "json")
	log.Sub("monitor").Info().Msg("scoped")

	out := buf.String()
	assert.Contains(t, out, "scoped")
	assert.Contains(t, out, `"subsystem":"monitor"`)
}

func TestWithChannel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", "json")
	log.Sub("dispatch").WithChannel("@deals").Info().Msg("bound")

	out := buf.String()
	assert.Contains(t, out, `"channel":"@deals"`)
	assert.Contains(t, out, `"subsystem":"dispatch"`)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "json")

	log.Debug().Msg("dropped")
	log.Info().Msg("dropped too")
	log.Warn().Msg("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"silent", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}
