package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestMapMessageToRawEvent(t *testing.T) {
	ts := time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)
	msg := kafkago.Message{
		Topic:     "transformed-weather-data",
		Partition: 2,
		Offset:    41,
		Key:       []byte("hail-abc123"),
		Value:     []byte(`{"id":"hail-abc123","type":"hail"}`),
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("nws")},
		},
		Time: ts,
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("hail-abc123"), raw.Key)
	assert.Equal(t, msg.Value, raw.Value)
	assert.Equal(t, "transformed-weather-data", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(41), raw.Offset)
	assert.Equal(t, ts, raw.Timestamp)
	assert.Equal(t, map[string]string{"source": "nws"}, raw.Headers)
	assert.Nil(t, raw.Commit, "commit is attached by the reader, not the mapping")
}

func TestMapMessageToRawEvent_NoHeaders(t *testing.T) {
	raw := mapMessageToRawEvent(kafkago.Message{Value: []byte("{}")})
	assert.Empty(t, raw.Headers)
}
