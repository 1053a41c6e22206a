package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestForTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "production", "info")
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	For("game").Info().Str("session", "g1").Msg("hello")
	For("game").Debug().Msg("dropped")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "game", line["component"])
	assert.Equal(t, "g1", line["session"])
	assert.Equal(t, "hello", line["message"])
}
