package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-alert-service/internal/alerting"
	"github.com/couchcryptid/storm-alert-service/internal/domain"
	"github.com/couchcryptid/storm-alert-service/internal/observability"
	"github.com/couchcryptid/storm-alert-service/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	events []domain.RawEvent
	index  atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	start := int(m.index.Load())
	if start >= len(m.events) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}

	end := min(start+batchSize, len(m.events))
	m.index.Store(int64(end))
	return m.events[start:end], nil
}

type mockHandler struct {
	mu      sync.Mutex
	handled []domain.HailEvent
	err     error
}

func (m *mockHandler) HandleEvent(_ context.Context, event domain.HailEvent) (alerting.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return alerting.Result{}, m.err
	}
	m.handled = append(m.handled, event)
	return alerting.Result{Created: 1}, nil
}

func (m *mockHandler) handledIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.handled))
	for i, e := range m.handled {
		ids[i] = e.ID
	}
	return ids
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func makeRawEvent(t *testing.T, id, eventType string) domain.RawEvent {
	t.Helper()
	value, err := json.Marshal(map[string]any{
		"id":        id,
		"type":      eventType,
		"magnitude": 1.25,
		"severity":  "moderate",
	})
	require.NoError(t, err)
	return domain.RawEvent{
		Key:       []byte(id),
		Value:     value,
		Topic:     "transformed-weather-data",
		Timestamp: time.Now(),
	}
}

func newPipeline(ext pipeline.BatchExtractor, h pipeline.EventHandler) *pipeline.Pipeline {
	return pipeline.New(ext, h, discardLogger(), newTestMetrics(), 10, 5)
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ext := &mockExtractor{events: []domain.RawEvent{makeRawEvent(t, "hail-1", "hail")}}
	h := &mockHandler{}

	p := newPipeline(ext, h)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hail-1"}, h.handledIDs())
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no events, so ExtractBatch blocks
	h := &mockHandler{}

	p := newPipeline(ext, h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, h.handledIDs())
}

func TestPipeline_Run_SkipsNonHailEvents(t *testing.T) {
	committed := atomic.Int64{}
	raw := makeRawEvent(t, "wind-1", "wind")
	raw.Commit = func(_ context.Context) error {
		committed.Add(1)
		return nil
	}

	ext := &mockExtractor{events: []domain.RawEvent{raw}}
	h := &mockHandler{}

	p := newPipeline(ext, h)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, h.handledIDs())
	assert.Equal(t, int64(1), committed.Load(), "skipped events still commit")
	assert.Error(t, p.CheckReadiness(context.Background()), "skips do not make the service ready")
}

func TestPipeline_Run_SkipsUnparseableMessages(t *testing.T) {
	raw := domain.RawEvent{Value: []byte("not json")}

	ext := &mockExtractor{events: []domain.RawEvent{raw}}
	h := &mockHandler{}

	p := newPipeline(ext, h)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, h.handledIDs())
}

func TestPipeline_Run_CommitsAfterDispatch(t *testing.T) {
	committed := atomic.Bool{}
	raw := makeRawEvent(t, "hail-2", "hail")
	raw.Commit = func(_ context.Context) error {
		committed.Store(true)
		return nil
	}

	ext := &mockExtractor{events: []domain.RawEvent{raw}}
	h := &mockHandler{}

	p := newPipeline(ext, h)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.True(t, committed.Load())
}

func TestPipeline_Run_DispatchErrorDoesNotCommit(t *testing.T) {
	committed := atomic.Bool{}
	raw := makeRawEvent(t, "hail-3", "hail")
	raw.Commit = func(_ context.Context) error {
		committed.Store(true)
		return nil
	}

	ext := &mockExtractor{events: []domain.RawEvent{raw}}
	h := &mockHandler{err: errors.New("storage unavailable")}

	p := newPipeline(ext, h)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.False(t, committed.Load(), "failed dispatches must leave the offset for re-drive")
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ProcessesBatchInOrder(t *testing.T) {
	ext := &mockExtractor{events: []domain.RawEvent{
		makeRawEvent(t, "hail-a", "hail"),
		makeRawEvent(t, "hail-b", "hail"),
		makeRawEvent(t, "hail-c", "hail"),
	}}
	h := &mockHandler{}

	p := newPipeline(ext, h)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hail-a", "hail-b", "hail-c"}, h.handledIDs())
}
