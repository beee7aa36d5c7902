package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := Component(New(Config{Level: "debug", ServiceName: "test-bot", JSON: true, Output: buf}), "bundler")

	log.Info().Str("key", "value").Msg("flushed")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "flushed", out["message"])
	assert.Equal(t, "test-bot", out["service"])
	assert.Equal(t, "bundler", out["component"])
	assert.Equal(t, "value", out["key"])
	assert.Equal(t, "info", out["level"])
}

func TestNew_LevelFilters(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Config{Level: "warn", JSON: true, Output: buf})

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}
