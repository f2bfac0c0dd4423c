package consumers

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/nexpharm/pharmacy-intel/pkg/logger"
	"github.com/nexpharm/pharmacy-intel/pkg/messaging"
	"github.com/nexpharm/pharmacy-intel/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConsumer(buf *bytes.Buffer) *ManagerNotificationConsumer {
	return &ManagerNotificationConsumer{logger: logger.NewWithWriter(buf, "intel-service")}
}

func TestHandleReorderRequested(t *testing.T) {
	var buf bytes.Buffer
	c := newTestConsumer(&buf)

	event, err := messaging.NewEvent(messaging.EventReorderRequested, "intel-service", "corr-1", messaging.ReorderRequestedEvent{
		Medicine:  "dolo 650",
		Stock:     testutil.PtrInt(12),
		RequestID: "REQ-20260115103000",
	})
	require.NoError(t, err)

	require.NoError(t, c.handleReorderRequested(context.Background(), event))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "dolo 650", entry["medicine"])
	assert.Equal(t, "REQ-20260115103000", entry["request_id"])
	assert.Equal(t, float64(12), entry["stock"])
	assert.Equal(t, "manager notified of reorder request", entry["message"])
}

func TestHandleExpiryAlerted(t *testing.T) {
	var buf bytes.Buffer
	c := newTestConsumer(&buf)

	event, err := messaging.NewEvent(messaging.EventExpiryAlerted, "intel-service", "", messaging.ExpiryAlertedEvent{
		Medicine: "pan 40",
		Batches: []messaging.ExpiringBatch{
			{DrugName: "pan 40", Batch: "P1", DaysToExpiry: 12},
			{DrugName: "pan 40", Batch: "P2", DaysToExpiry: -2},
		},
	})
	require.NoError(t, err)

	require.NoError(t, c.handleExpiryAlerted(context.Background(), event))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, float64(2), entry["batches"])
	assert.Equal(t, float64(-2), entry["soonest_days"])
}

func TestHandleReorderRequested_BadPayload(t *testing.T) {
	var buf bytes.Buffer
	c := newTestConsumer(&buf)

	event := &messaging.Event{Type: messaging.EventReorderRequested, Data: []byte(`"not an object"`)}

	assert.Error(t, c.handleReorderRequested(context.Background(), event))
}
