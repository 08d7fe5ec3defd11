package alerting

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/storm-alert-service/internal/domain"
	"github.com/couchcryptid/storm-alert-service/internal/observability"
)

// TerritorySource lists the territories eligible for matching. An event
// applies globally, so the matcher reads all active territories regardless
// of owner.
type TerritorySource interface {
	ListActive(ctx context.Context) ([]domain.Territory, error)
}

// Evaluator decides whether an event footprint overlaps a territory.
type Evaluator interface {
	Intersects(territory, footprint domain.Geometry) (bool, error)
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(territory, footprint domain.Geometry) (bool, error)

func (f EvaluatorFunc) Intersects(territory, footprint domain.Geometry) (bool, error) {
	return f(territory, footprint)
}

// Match pairs a matched territory with the alert type its policy produced.
type Match struct {
	Territory domain.Territory
	AlertType domain.AlertType
}

// Matcher computes which active territories a hail event alerts.
type Matcher struct {
	territories TerritorySource
	evaluator   Evaluator
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewMatcher creates a Matcher. Production wiring passes
// EvaluatorFunc(domain.Intersects); tests substitute a mock.
func NewMatcher(territories TerritorySource, evaluator Evaluator, logger *slog.Logger, metrics *observability.Metrics) *Matcher {
	return &Matcher{
		territories: territories,
		evaluator:   evaluator,
		logger:      logger,
		metrics:     metrics,
	}
}

// Match fetches all active territories, applies each one's policy gate, and
// runs geometry evaluation only on the survivors; the gate is cheap and
// geometry is not. Matches come back in store order with no re-sorting.
//
// The pass is a pure read over the store and evaluator; it performs no
// writes, so re-running it for the same event is safe. Alert idempotence is
// enforced one layer up by the Dispatcher.
func (m *Matcher) Match(ctx context.Context, event domain.HailEvent) ([]Match, error) {
	territories, err := m.territories.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active territories: %w", err)
	}

	var matches []Match
	for _, t := range territories {
		alertType, ok := policyGate(t, event)
		if !ok {
			continue
		}

		m.metrics.TerritoriesEvaluated.Inc()
		hit, err := m.evaluator.Intersects(t.Geometry, event.Footprint)
		if err != nil {
			// Malformed territory: excluded from matching until corrected.
			m.logger.Warn("territory geometry rejected",
				"territory_id", t.ID,
				"event_id", event.ID,
				"error", err,
			)
			m.metrics.GeometryErrors.Inc()
			continue
		}
		if !hit {
			continue
		}

		matches = append(matches, Match{Territory: t, AlertType: alertType})
	}

	return matches, nil
}

// policyGate applies the severity/size policy and derives the alert type.
// Severe wins over hail when a territory is subscribed to both.
func policyGate(t domain.Territory, event domain.HailEvent) (domain.AlertType, bool) {
	if event.SizeInches < t.Policy.MinHailSizeInches {
		return "", false
	}

	switch {
	case event.Severe && t.Policy.AlertSevere:
		return domain.AlertTypeSevere, true
	case t.Policy.AlertHail:
		return domain.AlertTypeHail, true
	default:
		return "", false
	}
}
