package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "intel-service").
		WithComponent("advisor").
		WithRequestID("req-1").
		WithSessionID("sess-1").
		WithMedicine("dolo 650").
		WithError(errors.New("boom"))

	log.Info().Msg("dispatched")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "intel-service", entry["service"])
	assert.Equal(t, "advisor", entry["component"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "sess-1", entry["session_id"])
	assert.Equal(t, "dolo 650", entry["medicine"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "dispatched", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNop(t *testing.T) {
	log := Nop()
	assert.NotPanics(t, func() {
		log.WithComponent("x").Error().Msg("ignored")
	})
}
