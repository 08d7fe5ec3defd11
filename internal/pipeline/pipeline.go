package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-alert-service/internal/alerting"
	"github.com/couchcryptid/storm-alert-service/internal/domain"
	"github.com/couchcryptid/storm-alert-service/internal/observability"
)

// BatchExtractor reads up to batchSize raw events from the feed.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// EventHandler runs the match-and-dispatch pass for one hail event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event domain.HailEvent) (alerting.Result, error)
}

// Pipeline orchestrates the consume-match-dispatch loop.
type Pipeline struct {
	extractor          BatchExtractor
	handler            EventHandler
	logger             *slog.Logger
	metrics            *observability.Metrics
	ready              atomic.Bool
	batchSize          int
	defaultRadiusMiles float64
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, h EventHandler, logger *slog.Logger, metrics *observability.Metrics, batchSize int, defaultRadiusMiles float64) *Pipeline {
	return &Pipeline{
		extractor:          e,
		handler:            h,
		logger:             logger,
		metrics:            metrics,
		batchSize:          batchSize,
		defaultRadiusMiles: defaultRadiusMiles,
	}
}

// CheckReadiness returns nil if the pipeline has processed at least one event,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any events yet")
	}
	return nil
}

// Run executes the alerting loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during Kafka or
	// database outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one consume-match-dispatch cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.EventsConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	return p.handleBatch(ctx, rawBatch, backoff, maxBackoff)
}

// handleBatch parses and dispatches each event in the batch, committing
// offsets as it goes. Unparseable or non-hail messages are skipped and
// committed. A dispatch failure leaves the offset uncommitted and backs
// off: the whole event re-drives on the next pass, and the dedup constraint
// makes that re-drive safe.
func (p *Pipeline) handleBatch(ctx context.Context, rawBatch []domain.RawEvent, backoff *time.Duration, maxBackoff time.Duration) bool {
	handled := 0

	for _, raw := range rawBatch {
		event, err := domain.ParseHailEvent(raw, p.defaultRadiusMiles)
		if err != nil {
			reason := "parse_error"
			if errors.Is(err, domain.ErrEventIgnored) {
				reason = "ignored_type"
			} else {
				p.logger.Warn("unparseable feed event, skipping",
					"error", err,
					"topic", raw.Topic,
					"partition", raw.Partition,
					"offset", raw.Offset,
				)
			}
			p.metrics.EventsSkipped.WithLabelValues(reason).Inc()
			p.commitOffset(ctx, raw)
			continue
		}

		if _, err := p.handler.HandleEvent(ctx, event); err != nil {
			p.logger.Error("event dispatch failed", "error", err, "event_id", event.ID)
			return p.backoffOrStop(ctx, backoff, maxBackoff)
		}

		p.commitOffset(ctx, raw)
		handled++
	}

	if handled > 0 {
		p.ready.Store(true)
	}
	return true
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
