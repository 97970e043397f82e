package kafka

import (
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
)

func TestMapMessageToRawMessage(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("ws_daily_metrics"),
		Value:     []byte(`{"table":"ws_daily_metrics","plant":"SUN1"}`),
		Topic:     "warehouse-table-refreshes",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "table", Value: []byte("ws_daily_metrics")},
		},
	}

	raw := mapMessageToRawMessage(msg)

	assert.Equal(t, []byte("ws_daily_metrics"), raw.Key)
	assert.JSONEq(t, `{"table":"ws_daily_metrics","plant":"SUN1"}`, string(raw.Value))
	assert.Equal(t, "warehouse-table-refreshes", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "ws_daily_metrics", raw.Headers["table"])
	assert.Nil(t, raw.Commit)
}

func TestSerializeToMessage(t *testing.T) {
	refreshed := time.Date(2024, 6, 4, 2, 15, 0, 0, time.UTC)
	event := domain.RefreshEvent{Table: "clear_sky_days", Plant: "SUN1", RefreshedAt: refreshed}

	msg, err := serializeToMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("clear_sky_days"), msg.Key)
	var decoded domain.RefreshEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event, decoded)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "table", msg.Headers[0].Key)
	assert.Equal(t, []byte("clear_sky_days"), msg.Headers[0].Value)
	assert.Equal(t, "refreshed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2024-06-04T02:15:00Z"), msg.Headers[1].Value)
}

func TestSerializeToMessage_InvalidTable(t *testing.T) {
	_, err := serializeToMessage(domain.RefreshEvent{Table: "DROP TABLE x"})
	require.Error(t, err)
}
