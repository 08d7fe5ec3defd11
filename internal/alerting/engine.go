package alerting

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-alert-service/internal/domain"
	"github.com/couchcryptid/storm-alert-service/internal/observability"
)

// Engine runs the full match-and-dispatch pass for one event. It holds no
// mutable state of its own; all cross-invocation state lives in storage, so
// a run interrupted mid-flight is recovered by re-driving the event in full.
type Engine struct {
	matcher    *Matcher
	dispatcher *Dispatcher
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewEngine creates an Engine from its two stages.
func NewEngine(matcher *Matcher, dispatcher *Dispatcher, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		matcher:    matcher,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// HandleEvent matches the event against active territories and dispatches
// alerts for the matches. Duplicate pairs are no-ops; a non-duplicate
// storage failure surfaces as *DispatchError and the caller retries the
// event wholesale.
func (e *Engine) HandleEvent(ctx context.Context, event domain.HailEvent) (Result, error) {
	start := time.Now()

	matches, err := e.matcher.Match(ctx, event)
	if err != nil {
		return Result{}, err
	}
	if len(matches) == 0 {
		return Result{}, nil
	}

	res, err := e.dispatcher.Dispatch(ctx, event, matches)
	if err != nil {
		return res, err
	}

	e.metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	e.logger.Info("event dispatched",
		"event_id", event.ID,
		"matches", len(matches),
		"alerts_created", res.Created,
		"duplicates", res.Duplicates,
		"channel_failures", len(res.Warnings),
	)
	return res, nil
}
