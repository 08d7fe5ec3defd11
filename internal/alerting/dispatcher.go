package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/storm-alert-service/internal/domain"
	"github.com/couchcryptid/storm-alert-service/internal/observability"
)

// Channel names understood by the dispatcher and territory policies.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelPush  = "push"
)

// AlertStore persists territory alerts under the (territory_id,
// hail_event_id) unique constraint.
type AlertStore interface {
	// Insert creates the alert unless one already exists for the pair.
	// It returns false, nil on the duplicate no-op and fills in the
	// generated ID on success.
	Insert(ctx context.Context, alert *domain.TerritoryAlert) (bool, error)
}

// Recipient carries the context a channel needs to address a delivery.
type Recipient struct {
	UserID        int64
	TerritoryID   int64
	TerritoryName string
}

// Message is a rendered alert ready for delivery. DeliveryID correlates the
// same alert across channel providers.
type Message struct {
	DeliveryID string
	Subject    string
	Body       string
	AlertType  domain.AlertType
	EventID    string
}

// Channel is one notification capability. Implementations own their
// provider protocol; the dispatcher only knows this surface.
type Channel interface {
	Name() string
	Send(ctx context.Context, rcpt Recipient, msg Message) error
}

// ChannelFailure records one failed channel delivery. Failures are
// warnings, not errors: the alert row is the durable guarantee and
// delivery is best effort.
type ChannelFailure struct {
	TerritoryID int64
	Channel     string
	Reason      string
}

// Result summarizes one dispatch call.
type Result struct {
	Created    int
	Duplicates int
	Warnings   []ChannelFailure
}

// DispatchError is fatal for an event's dispatch call: an alert insert
// failed for a reason other than the dedup conflict. No channel sends
// happened for the failing match and the whole call is safe to retry.
type DispatchError struct {
	TerritoryID int64
	EventID     string
	Err         error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch alert for territory %d, event %s: %v", e.TerritoryID, e.EventID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Dispatcher turns matches into persisted alerts and channel deliveries.
type Dispatcher struct {
	alerts   AlertStore
	channels []Channel
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewDispatcher creates a Dispatcher. timeout bounds each individual
// channel send; retries belong to a higher-level job runner.
func NewDispatcher(alerts AlertStore, channels []Channel, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		alerts:   alerts,
		channels: channels,
		timeout:  timeout,
		logger:   logger,
		metrics:  metrics,
	}
}

// Dispatch inserts one alert per match and fans each newly created alert
// out to the channels the territory enabled. The insert's unique constraint
// is the sole deduplication mechanism: concurrent passes for the same event
// race on it, the loser observes a duplicate and treats the pair as already
// handled. An alert counts as sent once its row exists, regardless of
// channel outcomes.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.HailEvent, matches []Match) (Result, error) {
	var res Result

	for _, match := range matches {
		alert := domain.TerritoryAlert{
			TerritoryID: match.Territory.ID,
			HailEventID: event.ID,
			AlertType:   match.AlertType,
			Message:     renderMessage(match.Territory, event, match.AlertType),
			SentAt:      domain.Now(),
		}

		created, err := d.alerts.Insert(ctx, &alert)
		if err != nil {
			return res, &DispatchError{TerritoryID: match.Territory.ID, EventID: event.ID, Err: err}
		}
		if !created {
			// Another pass already recorded this pair.
			res.Duplicates++
			d.metrics.DuplicateAlerts.Inc()
			continue
		}

		res.Created++
		d.metrics.AlertsCreated.WithLabelValues(string(match.AlertType)).Inc()
		res.Warnings = append(res.Warnings, d.deliver(ctx, match.Territory, alert)...)
	}

	return res, nil
}

// deliver sends one alert on every channel its territory enabled. Sends are
// independent I/O to separate providers, so they run concurrently with a
// per-send timeout. A failure never rolls back the alert row.
func (d *Dispatcher) deliver(ctx context.Context, t domain.Territory, alert domain.TerritoryAlert) []ChannelFailure {
	rcpt := Recipient{UserID: t.UserID, TerritoryID: t.ID, TerritoryName: t.Name}
	msg := Message{
		DeliveryID: uuid.NewString(),
		Subject:    subjectFor(alert.AlertType),
		Body:       alert.Message,
		AlertType:  alert.AlertType,
		EventID:    alert.HailEventID,
	}

	var (
		mu       sync.Mutex
		failures []ChannelFailure
		wg       sync.WaitGroup
	)

	for _, ch := range d.channels {
		if !channelEnabled(t.Policy, ch.Name()) {
			continue
		}

		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()

			sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			if err := ch.Send(sendCtx, rcpt, msg); err != nil {
				d.logger.Warn("channel send failed",
					"channel", ch.Name(),
					"territory_id", t.ID,
					"event_id", alert.HailEventID,
					"error", err,
				)
				d.metrics.ChannelSends.WithLabelValues(ch.Name(), "failure").Inc()
				mu.Lock()
				failures = append(failures, ChannelFailure{TerritoryID: t.ID, Channel: ch.Name(), Reason: err.Error()})
				mu.Unlock()
				return
			}
			d.metrics.ChannelSends.WithLabelValues(ch.Name(), "success").Inc()
		}(ch)
	}

	wg.Wait()
	return failures
}

func channelEnabled(p domain.AlertPolicy, name string) bool {
	switch name {
	case ChannelEmail:
		return p.EmailEnabled
	case ChannelSMS:
		return p.SMSEnabled
	case ChannelPush:
		return p.PushEnabled
	default:
		return false
	}
}
