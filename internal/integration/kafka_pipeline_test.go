//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-alert-service/internal/adapter/kafka"
	"github.com/couchcryptid/storm-alert-service/internal/alerting"
	"github.com/couchcryptid/storm-alert-service/internal/channel"
	"github.com/couchcryptid/storm-alert-service/internal/config"
	"github.com/couchcryptid/storm-alert-service/internal/domain"
	"github.com/couchcryptid/storm-alert-service/internal/observability"
	"github.com/couchcryptid/storm-alert-service/internal/pipeline"
)

const (
	testEventTopic = "test-weather-events"
	testPushTopic  = "test-alert-push"
)

// memTerritorySource serves a fixed territory list.
type memTerritorySource struct {
	territories []domain.Territory
}

func (m *memTerritorySource) ListActive(_ context.Context) ([]domain.Territory, error) {
	return m.territories, nil
}

// memAlertStore enforces pair uniqueness in memory, standing in for the
// database constraint.
type memAlertStore struct {
	mu   sync.Mutex
	rows map[string]domain.TerritoryAlert
}

func newMemAlertStore() *memAlertStore {
	return &memAlertStore{rows: make(map[string]domain.TerritoryAlert)}
}

func (m *memAlertStore) Insert(_ context.Context, alert *domain.TerritoryAlert) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%d|%s", alert.TerritoryID, alert.HailEventID)
	if _, exists := m.rows[key]; exists {
		return false, nil
	}
	alert.ID = int64(len(m.rows) + 1)
	m.rows[key] = *alert
	return true, nil
}

func (m *memAlertStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func hailEventPayload(t *testing.T, id string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":         id,
		"type":       "hail",
		"geo":        map[string]float64{"lat": 39.30, "lon": -94.50},
		"magnitude":  1.75,
		"unit":       "in",
		"severity":   "severe",
		"begin_time": "2024-04-26T15:10:00Z",
	})
	require.NoError(t, err)
	return payload
}

// TestKafkaReaderRoundTrip verifies the adapter layer: a produced feed
// message comes back through kafka.Reader with its metadata and a working
// commit callback.
func TestKafkaReaderRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testEventTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaEventTopic:    testEventTopic,
		KafkaGroupID:       fmt.Sprintf("test-reader-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	payload := hailEventPayload(t, "hail-rt-1")
	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testEventTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte("hail-rt-1"),
		Value: payload,
	}))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	var batch []domain.RawEvent
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from event topic")
		}
	}
	require.Len(t, batch, 1)

	raw := batch[0]
	assert.Equal(t, []byte("hail-rt-1"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	assert.Equal(t, testEventTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	event, err := domain.ParseHailEvent(raw, 5)
	require.NoError(t, err)
	assert.Equal(t, "hail-rt-1", event.ID)
	assert.True(t, event.Severe)
}

// TestAlertPipelineEndToEnd runs the full consume-match-dispatch loop
// against real Kafka with the real geometry evaluator and push channel,
// then re-drives the same event and checks the dedup holds.
func TestAlertPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testEventTopic)
	createTopic(t, broker, testPushTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaEventTopic:    testEventTopic,
		KafkaGroupID:       fmt.Sprintf("test-pipeline-%d", time.Now().UnixNano()),
		KafkaPushTopic:     testPushTopic,
		BatchFlushInterval: 5 * time.Second,
	}

	territories := &memTerritorySource{territories: []domain.Territory{{
		ID:       1,
		UserID:   7,
		Name:     "Shop",
		Geometry: domain.Circle(domain.Geo{Lat: 39.10, Lon: -94.58}, 25),
		Policy: domain.AlertPolicy{
			AlertHail:   true,
			AlertSevere: true,
			PushEnabled: true,
		},
		Active: true,
	}}}
	alertStore := newMemAlertStore()

	metrics := observability.NewMetricsForTesting()
	logger := discardLogger()

	push := channel.NewPush(cfg, logger)
	t.Cleanup(func() { _ = push.Close() })

	matcher := alerting.NewMatcher(territories, alerting.EvaluatorFunc(domain.Intersects), logger, metrics)
	dispatcher := alerting.NewDispatcher(alertStore, []alerting.Channel{push}, 10*time.Second, logger, metrics)
	engine := alerting.NewEngine(matcher, dispatcher, logger, metrics)

	reader := kafka.NewReader(cfg, logger)
	t.Cleanup(func() { _ = reader.Close() })

	p := pipeline.New(reader, engine, logger, metrics, 50, 5)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testEventTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	payload := hailEventPayload(t, "hail-e2e-1")
	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte("hail-e2e-1"),
		Value: payload,
	}))

	// Read the push notification off the push topic.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testPushTopic,
		GroupID:     fmt.Sprintf("test-push-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 60*time.Second)
	msg, err := consumer.ReadMessage(readCtx)
	readCancel()
	require.NoError(t, err, "read from push topic")

	assert.Equal(t, []byte("7"), msg.Key, "push messages are keyed by user id")

	var notification struct {
		UserID      int64  `json:"user_id"`
		TerritoryID int64  `json:"territory_id"`
		Territory   string `json:"territory"`
		Title       string `json:"title"`
		AlertType   string `json:"alert_type"`
		EventID     string `json:"event_id"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &notification))
	assert.Equal(t, int64(7), notification.UserID)
	assert.Equal(t, int64(1), notification.TerritoryID)
	assert.Equal(t, "Shop", notification.Territory)
	assert.Equal(t, "Severe hail alert", notification.Title)
	assert.Equal(t, "severe", notification.AlertType)
	assert.Equal(t, "hail-e2e-1", notification.EventID)

	require.Equal(t, 1, alertStore.count())

	// Re-drive the same event: the pair already has an alert, so no new row
	// and no second push message.
	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte("hail-e2e-1"),
		Value: payload,
	}))

	readCtx, readCancel = context.WithTimeout(ctx, 10*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "duplicate event must not produce a second push message")

	assert.Equal(t, 1, alertStore.count(), "dedup keeps exactly one alert per pair")

	pipelineCancel()
	require.NoError(t, <-errCh)
}
